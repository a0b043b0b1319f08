package imageresize

import (
	"bytes"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// memFile is an http.File over an in-memory blob, used when the disk
// cache is disabled.
type memFile struct {
	*bytes.Reader
	fi   os.FileInfo
	size int64
}

func newMemFile(src os.FileInfo, blob []byte) http.File {
	return &memFile{
		Reader: bytes.NewReader(blob),
		fi:     src,
		size:   int64(len(blob)),
	}
}

func (f *memFile) Close() error {
	return nil
}

func (f *memFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, fs.ErrInvalid
}

func (f *memFile) Stat() (os.FileInfo, error) {
	return &memFileInfo{name: f.fi.Name(), size: f.size, modTime: f.fi.ModTime()}, nil
}

type memFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i *memFileInfo) Name() string       { return i.name }
func (i *memFileInfo) Size() int64        { return i.size }
func (i *memFileInfo) Mode() fs.FileMode  { return 0444 }
func (i *memFileInfo) ModTime() time.Time { return i.modTime }
func (i *memFileInfo) IsDir() bool        { return false }
func (i *memFileInfo) Sys() any           { return nil }
