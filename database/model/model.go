package model

import (
	"errors"
	"time"
)

var (
	ErrNoConfiguration = errors.New("database filename not set")
	ErrNoDbHandle      = errors.New("db connection not available")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")
)

// RecordingStatus is the lifecycle state of a DVR recording.
type RecordingStatus string

const (
	// StatusPending means the recording job has not started yet.
	StatusPending RecordingStatus = "pending"
	// StatusRecording means the capture is in progress, the file is still growing.
	StatusRecording RecordingStatus = "recording"
	// StatusCompleted means the capture finished normally.
	StatusCompleted RecordingStatus = "completed"
	// StatusFailed means the capture aborted.
	StatusFailed RecordingStatus = "failed"
)

// Recording represents one DVR-captured program instance.
type Recording struct {
	// ID is the unique identifier for the recording.
	ID string
	// Title of the recorded program.
	Title string
	// Subtitle holds episode info, may be empty.
	Subtitle string
	// ChannelID references the channel the program was captured from.
	ChannelID string
	// ChannelName is the display name of the channel.
	ChannelName string
	// Status of the recording lifecycle.
	Status RecordingStatus
	// StartTime is when the capture started.
	StartTime time.Time
	// EndTime is when the capture ended, zero while still recording.
	EndTime time.Time
	// ViewOffset is the last known playback position in milliseconds.
	ViewOffset int64
	// Path of the capture file on disk.
	Path string
	// ThumbnailPath of the poster image, may be empty.
	ThumbnailPath string
	// FileSize in bytes, zero when the file is missing.
	FileSize int64
	// Commercials detected in this recording, sorted ascending by start,
	// non-overlapping. Treated as an immutable snapshot during playback.
	Commercials []Commercial
}

// Commercial is a detected advertisement interval within a recording's
// timeline. Start is inclusive, End exclusive, both in milliseconds.
type Commercial struct {
	Start int64
	End   int64
}

// WatchSession is one watch-tracking entry, opened when playback of an
// item starts and closed with the watched wall-clock duration.
type WatchSession struct {
	// ID is the unique identifier for the watch session.
	ID string
	// ContentID of the item being watched.
	ContentID string
	// ContentType tag, e.g. "dvr_recording".
	ContentType string
	// Title of the item being watched.
	Title string
	// Started is when the session was opened.
	Started time.Time
	// WatchedMs is the elapsed wall-clock watch duration, set on close.
	WatchedMs int64
	// Closed is true once the session has ended.
	Closed bool
}

// User represents a user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Username is the username of the user.
	Username string
	// Password is the hashed password of the user.
	Password string
	// Created is the time the user was created.
	Created time.Time
	// LastLogin is the last time the user logged in.
	LastLogin time.Time
}

// AccessToken represents an access token for a user.
type AccessToken struct {
	// UserID is the ID of the user associated with the token.
	UserID string
	// Token is the access token string.
	Token string
	// DeviceName is the name of the device.
	DeviceName string
	// RemoteAddress is the remote address of the client.
	RemoteAddress string
	// Created is the time the token was created.
	Created time.Time
	// LastUsed is the last time the token was used.
	LastUsed time.Time
}
