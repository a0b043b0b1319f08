// Package playback drives playback of a single DVR recording: it picks
// the start position and stream source for a requested playback mode,
// persists viewing progress, and answers commercial-skip and chapter
// navigation queries against the recording's detected ad breaks.
//
// One Controller owns one playback session. Methods are safe for
// concurrent use; position updates are expected to arrive as a single
// serialized stream per session.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recast-tv/recast-server/database/model"
)

var (
	// ErrNotFound is returned when the requested recording does not exist.
	ErrNotFound = errors.New("recording not found")
	// ErrStaleIndex is returned when a commercial index does not match
	// the current commercial snapshot.
	ErrStaleIndex = errors.New("commercial index out of range")
)

// UpstreamError wraps a failed call to an external collaborator during
// session load. It is fatal to that load only, the caller may retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Mode selects how the start position of a session is chosen.
type Mode int

const (
	// ModeDefault resumes a completed recording at its last view offset,
	// live recordings start at 0.
	ModeDefault Mode = iota
	// ModeLive seeks to the live edge once the player knows the duration.
	ModeLive
	// ModeStart always starts at position 0.
	ModeStart
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeStart:
		return "start"
	default:
		return "default"
	}
}

// ParseMode maps a mode name to a Mode. Unknown names mean ModeDefault.
func ParseMode(s string) Mode {
	switch s {
	case "live":
		return ModeLive
	case "start":
		return ModeStart
	default:
		return ModeDefault
	}
}

// RecordingSource looks up recordings and issues stream URLs.
type RecordingSource interface {
	// GetRecording returns a recording by id, model.ErrNotFound when unknown.
	GetRecording(ctx context.Context, recordingID string) (*model.Recording, error)
	// StreamURL returns a playable URL for a recording. The URL format
	// and lifetime are opaque to this package.
	StreamURL(ctx context.Context, recordingID string) (string, error)
}

// ProgressStore persists playback positions.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, recordingID string, positionMs int64) error
}

// WatchStats is the best-effort watch-tracking collaborator. Failures
// are logged, never surfaced to playback.
type WatchStats interface {
	StartWatchSession(ctx context.Context, contentID, contentType, title string) (sessionID string, err error)
	EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error
}

// Session describes a loaded, ready-to-play recording.
type Session struct {
	RecordingID string
	Mode        Mode
	// IsLiveRecording is true when the capture was still in progress at
	// load time. The playable duration of such a recording grows while
	// it plays, and progress is never persisted for it.
	IsLiveRecording bool
	StreamURL       string
	// StartPositionMs is where playback should begin, always >= 0.
	StartPositionMs int64
	// SeekToLiveOnStart tells the player to seek near the live edge as
	// soon as it knows the duration, see ResolveLiveSeekPosition.
	SeekToLiveOnStart bool
}

// CommercialMatch is the result of a current-commercial lookup.
type CommercialMatch struct {
	// Index of the commercial in the session snapshot.
	Index int
	Start int64
	End   int64
	// RemainingMs until the end of the commercial, >= 0.
	RemainingMs int64
}

const (
	// defaultLiveEdgeBufferMs keeps live seeks clear of the write head.
	defaultLiveEdgeBufferMs = 10000
	// defaultNextToleranceMs avoids a no-op jump when already at a boundary.
	defaultNextToleranceMs = 1000
	// defaultPrevToleranceMs is larger so that chapter-back near the start
	// of a segment jumps to the segment before it.
	defaultPrevToleranceMs = 3000
)

// Options to construct a Controller with.
type Options struct {
	Source   RecordingSource
	Progress ProgressStore
	Stats    WatchStats
	// LiveEdgeBufferMs overrides the live-edge seek buffer, default 10000.
	LiveEdgeBufferMs int64
	// NextToleranceMs overrides the forward chapter tolerance, default 1000.
	NextToleranceMs int64
	// PrevToleranceMs overrides the backward chapter tolerance, default 3000.
	PrevToleranceMs int64
}

// Controller is the playback controller for one session.
type Controller struct {
	source   RecordingSource
	progress ProgressStore
	stats    WatchStats

	liveEdgeBufferMs int64
	nextToleranceMs  int64
	prevToleranceMs  int64

	// now is replaceable in tests
	now func() time.Time

	mu      sync.Mutex
	session *Session
	// commercials is the immutable snapshot taken at load time,
	// refreshed only by the next LoadRecording.
	commercials []model.Commercial
	// autoSkip is the per-session user toggle, on by default.
	autoSkip bool
	// skipped holds commercial indices already auto-skipped this session,
	// cleared on manual seek.
	skipped map[int]struct{}
	// watch-tracking state
	watchSessionID string
	watchStarted   time.Time
}

// New creates a playback Controller.
func New(o *Options) *Controller {
	c := &Controller{
		source:           o.Source,
		progress:         o.Progress,
		stats:            o.Stats,
		liveEdgeBufferMs: o.LiveEdgeBufferMs,
		nextToleranceMs:  o.NextToleranceMs,
		prevToleranceMs:  o.PrevToleranceMs,
		now:              time.Now,
		autoSkip:         true,
		skipped:          make(map[int]struct{}),
	}
	if c.liveEdgeBufferMs == 0 {
		c.liveEdgeBufferMs = defaultLiveEdgeBufferMs
	}
	if c.nextToleranceMs == 0 {
		c.nextToleranceMs = defaultNextToleranceMs
	}
	if c.prevToleranceMs == 0 {
		c.prevToleranceMs = defaultPrevToleranceMs
	}
	return c
}

// Session returns the loaded session, nil before a successful load.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// AutoSkipEnabled reports the per-session auto-skip toggle.
func (c *Controller) AutoSkipEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.autoSkip
}

// ToggleAutoSkip flips the auto-skip toggle and returns the new value.
func (c *Controller) ToggleAutoSkip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoSkip = !c.autoSkip
	return c.autoSkip
}
