package recordings

import (
	"log"
	"os"
	"time"

	"github.com/djherbis/times"

	"github.com/recast-tv/recast-server/database/model"
)

// statRecordingFile fills in the on-disk file metadata of a recording.
// A missing capture file is tolerated: size stays 0 and the recording
// remains listed, only playback of it will fail.
func statRecordingFile(r *model.Recording) {
	if r.Path == "" {
		return
	}
	fi, err := os.Stat(r.Path)
	if err != nil {
		log.Printf("Recording %s: capture file %s not readable: %s\n", r.ID, r.Path, err)
		return
	}
	r.FileSize = fi.Size()

	// Recordings imported from another DVR may lack a start time in the
	// database, fall back to the file's birth/change time.
	if r.StartTime.IsZero() {
		r.StartTime = fileCreationTime(r.Path, fi.ModTime())
	}
}

// fileCreationTime returns the birth time of a file where the platform
// tracks it, the fallback otherwise.
func fileCreationTime(path string, fallback time.Time) time.Time {
	t, err := times.Stat(path)
	if err != nil {
		return fallback
	}
	if t.HasBirthTime() {
		return t.BirthTime()
	}
	return fallback
}
