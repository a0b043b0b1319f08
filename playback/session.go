package playback

import (
	"context"
	"errors"
	"log"

	"github.com/recast-tv/recast-server/database/model"
)

// contentTypeRecording tags watch-tracking sessions started by this package.
const contentTypeRecording = "dvr_recording"

// LoadRecording fetches a recording and its stream URL and commits a new
// playback session. Returns ErrNotFound when the recording is unknown
// and an *UpstreamError when a collaborator call fails. When ctx is
// cancelled mid-load no session state is committed.
func (c *Controller) LoadRecording(ctx context.Context, recordingID string, mode Mode) (*Session, error) {
	recording, err := c.source.GetRecording(ctx, recordingID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &UpstreamError{Op: "recording lookup", Err: err}
	}

	isLive := recording.Status == model.StatusRecording

	var startPosition int64
	switch mode {
	case ModeStart, ModeLive:
		// Live seeks are resolved later, once the player reports a
		// duration, see ResolveLiveSeekPosition.
		startPosition = 0
	default:
		// Resume points only make sense for finished recordings.
		if !isLive {
			startPosition = recording.ViewOffset
		}
	}
	if startPosition < 0 {
		startPosition = 0
	}

	streamURL, err := c.source.StreamURL(ctx, recordingID)
	if err != nil {
		return nil, &UpstreamError{Op: "stream url retrieval", Err: err}
	}
	if err := ctx.Err(); err != nil {
		// Caller went away while we were loading, commit nothing.
		return nil, err
	}

	// Watch tracking is best-effort, a failure must not fail the load.
	var watchSessionID string
	if c.stats != nil {
		watchSessionID, err = c.stats.StartWatchSession(ctx, recording.ID, contentTypeRecording, recording.Title)
		if err != nil {
			log.Printf("Failed to start watch session for recording %s: %s\n", recording.ID, err)
			watchSessionID = ""
		}
	}

	session := &Session{
		RecordingID:       recording.ID,
		Mode:              mode,
		IsLiveRecording:   isLive,
		StreamURL:         streamURL,
		StartPositionMs:   startPosition,
		SeekToLiveOnStart: mode == ModeLive,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = session
	c.commercials = recording.Commercials
	c.autoSkip = true
	c.skipped = make(map[int]struct{})
	c.watchSessionID = watchSessionID
	c.watchStarted = c.now()

	s := *session
	return &s, nil
}

// ResolveLiveSeekPosition converts a player-reported duration into a
// seek target near the live edge, staying clear of the write head.
// Pure and idempotent, safe to re-derive on every duration update.
func (c *Controller) ResolveLiveSeekPosition(durationMs int64) int64 {
	position := durationMs - c.liveEdgeBufferMs
	if position < 0 {
		return 0
	}
	return position
}

// SaveProgress persists the playback position. A no-op for live
// recordings: progress on a still-growing file is not meaningful.
// Persistence failures are logged, never surfaced, a later call
// overwrites with a fresher value anyway.
func (c *Controller) SaveProgress(ctx context.Context, positionMs int64) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || session.IsLiveRecording {
		return
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if err := c.progress.UpdateProgress(ctx, session.RecordingID, positionMs); err != nil {
		log.Printf("Failed to save progress for recording %s: %s\n", session.RecordingID, err)
	}
}

// EndSession closes the watch-tracking session with the elapsed
// wall-clock watch duration. Safe to call without an active session,
// and more than once.
func (c *Controller) EndSession(ctx context.Context) {
	c.mu.Lock()
	watchSessionID := c.watchSessionID
	watchedMs := int64(0)
	if watchSessionID != "" {
		watchedMs = c.now().Sub(c.watchStarted).Milliseconds()
	}
	c.watchSessionID = ""
	c.mu.Unlock()

	if watchSessionID == "" || c.stats == nil {
		return
	}
	if err := c.stats.EndWatchSession(ctx, watchSessionID, watchedMs); err != nil {
		log.Printf("Failed to end watch session %s: %s\n", watchSessionID, err)
	}
}
