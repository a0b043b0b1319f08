// Package imageresize serves images resized on demand, with resized
// variants cached on disk keyed by the source file's device and inode.
package imageresize

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"sync"
	"syscall"

	"github.com/disintegration/imaging"
)

type Options struct {
	Cachedir string
}

type Resizer struct {
	cachedir string
	tmpExt   string
	// per-source-file locks so concurrent requests resize once
	resizeMutexMap     map[string]*sync.Mutex
	resizeMutexMapLock sync.Mutex
}

func New(config Options) *Resizer {
	return &Resizer{
		cachedir:       config.Cachedir,
		resizeMutexMap: make(map[string]*sync.Mutex),
		tmpExt:         fmt.Sprintf(".%d", os.Getpid()),
	}
}

var isImg = regexp.MustCompile(`\.(png|jpg|jpeg|tbn)$`)

func param2uint(params url.Values, param string) (r uint) {
	if val, ok := params[param]; ok && len(val) > 0 {
		x, _ := strconv.ParseUint(val[0], 10, 32)
		r = uint(x)
	}
	return
}

// cacheName builds a cache key from the source file's dev/ino, which
// survives renames and stays unique across directories.
func cacheName(file http.File) (r string) {
	fi, err := file.Stat()
	if err != nil {
		return
	}
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	return fmt.Sprintf("%08x.%016x", stat.Dev, stat.Ino)
}

// cacheRead returns the cached resized variant, nil on miss.
func (r *Resizer) cacheRead(file http.File, w, h, q uint) (rfile http.File) {
	if r.cachedir == "" {
		return
	}
	cn := cacheName(file)
	if cn == "" {
		return
	}
	fn := fmt.Sprintf("%s/%s:%dx%dq=%d", r.cachedir, cn, w, h, q)
	rfile, err := os.Open(fn)
	if err != nil {
		rfile = nil
	}
	return
}

// cacheWrite stores a resized variant, then returns a read handle to it.
func (r *Resizer) cacheWrite(file http.File, blob []byte, w, h, q uint) (rfile http.File) {
	if r.cachedir == "" {
		return
	}
	cn := cacheName(file)
	if cn == "" {
		return
	}
	fn := fmt.Sprintf("%s/%s:%dx%dq=%d", r.cachedir, cn, w, h, q)
	tmp := fn + r.tmpExt
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0666)
	if err != nil {
		return
	}
	if _, err = fh.Write(blob); err != nil {
		fh.Close()
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, fn); err != nil {
		fh.Close()
		os.Remove(tmp)
		return
	}
	rfile = fh
	rfile.Seek(0, 0)
	return
}

func (r *Resizer) lockFile(name string) *sync.Mutex {
	r.resizeMutexMapLock.Lock()
	defer r.resizeMutexMapLock.Unlock()
	m, ok := r.resizeMutexMap[name]
	if !ok {
		m = &sync.Mutex{}
		r.resizeMutexMap[name] = m
	}
	return m
}

// OpenFile opens an image file, resized per the request's 'w', 'h' and
// 'q' query parameters. Without resize parameters, or for non-image
// files, the original file handle is returned.
func (r *Resizer) OpenFile(rw http.ResponseWriter, rq *http.Request, name string,
	imageQuality int) (file http.File, err error) {
	file, err = os.Open(name)
	if err != nil {
		return
	}

	// only plain files.
	fi, _ := file.Stat()
	if fi.IsDir() {
		return
	}

	// is it a supported image type.
	s := isImg.FindStringSubmatch(name)
	if len(s) == 0 {
		return
	}
	ctype := s[1]
	if ctype == "tbn" || ctype == "jpeg" {
		ctype = "jpg"
	}
	rw.Header().Set("Content-Type", "image/"+ctype)

	if rq.Method != "GET" {
		return
	}

	params := rq.URL.Query()
	w := param2uint(params, "w")
	h := param2uint(params, "h")
	q := param2uint(params, "q")
	if q == 0 && imageQuality > 0 {
		q = uint(imageQuality)
	}
	if w == 0 && h == 0 {
		return
	}

	// serialize resizes of the same source file
	m := r.lockFile(name)
	m.Lock()
	defer m.Unlock()

	if cf := r.cacheRead(file, w, h, q); cf != nil {
		file.Close()
		return cf, nil
	}

	img, _, err2 := image.Decode(file)
	if err2 != nil {
		file.Seek(0, 0)
		return
	}

	// Missing dimension keeps the aspect ratio.
	resized := imaging.Resize(img, int(w), int(h), imaging.Lanczos)

	var buf bytes.Buffer
	switch ctype {
	case "png":
		err2 = png.Encode(&buf, resized)
	default:
		quality := int(q)
		if quality == 0 {
			quality = 90
		}
		err2 = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality})
	}
	if err2 != nil {
		file.Seek(0, 0)
		return
	}

	if cf := r.cacheWrite(file, buf.Bytes(), w, h, q); cf != nil {
		file.Close()
		return cf, nil
	}

	// cache disabled, serve from memory via a temp-less reader
	file.Close()
	return newMemFile(fi, buf.Bytes()), nil
}
