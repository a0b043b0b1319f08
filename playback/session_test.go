package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recast-tv/recast-server/database/model"
)

type fakeSource struct {
	recordings map[string]*model.Recording
	streamURL  string
	streamErr  error
	// cancelCtx, when set, is cancelled before StreamURL returns to
	// mimic a caller that went away mid-load.
	cancelCtx context.CancelFunc
}

func (f *fakeSource) GetRecording(ctx context.Context, recordingID string) (*model.Recording, error) {
	r, ok := f.recordings[recordingID]
	if !ok {
		return nil, model.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *fakeSource) StreamURL(ctx context.Context, recordingID string) (string, error) {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return f.streamURL, f.streamErr
}

type fakeProgress struct {
	calls []int64
	err   error
}

func (f *fakeProgress) UpdateProgress(ctx context.Context, recordingID string, positionMs int64) error {
	f.calls = append(f.calls, positionMs)
	return f.err
}

type fakeStats struct {
	started  int
	ended    int
	endedMs  int64
	startErr error
}

func (f *fakeStats) StartWatchSession(ctx context.Context, contentID, contentType, title string) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started++
	return "ws1", nil
}

func (f *fakeStats) EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error {
	f.ended++
	f.endedMs = watchedMs
	return nil
}

func newTestRig(recordings ...*model.Recording) (*Controller, *fakeSource, *fakeProgress, *fakeStats) {
	source := &fakeSource{
		recordings: make(map[string]*model.Recording),
		streamURL:  "http://localhost:8096/dvr/stream/abc",
	}
	for _, r := range recordings {
		source.recordings[r.ID] = r
	}
	progress := &fakeProgress{}
	stats := &fakeStats{}
	c := New(&Options{Source: source, Progress: progress, Stats: stats})
	return c, source, progress, stats
}

func completedRecording(viewOffset int64) *model.Recording {
	return &model.Recording{
		ID:         "rec1",
		Title:      "Evening News",
		Status:     model.StatusCompleted,
		ViewOffset: viewOffset,
	}
}

func liveRecording() *model.Recording {
	return &model.Recording{
		ID:         "rec2",
		Title:      "Late Show",
		Status:     model.StatusRecording,
		ViewOffset: 99999,
	}
}

func TestLoadRecordingStartPositions(t *testing.T) {
	t.Run("mode start ignores view offset", func(t *testing.T) {
		c, _, _, _ := newTestRig(completedRecording(45000))
		s, err := c.LoadRecording(context.Background(), "rec1", ModeStart)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.StartPositionMs)
		assert.False(t, s.SeekToLiveOnStart)
		assert.False(t, s.IsLiveRecording)
	})

	t.Run("mode default resumes completed recording", func(t *testing.T) {
		c, _, _, _ := newTestRig(completedRecording(45000))
		s, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)
		assert.Equal(t, int64(45000), s.StartPositionMs)
	})

	t.Run("mode default on live recording starts at zero", func(t *testing.T) {
		c, _, _, _ := newTestRig(liveRecording())
		s, err := c.LoadRecording(context.Background(), "rec2", ModeDefault)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.StartPositionMs)
		assert.True(t, s.IsLiveRecording)
	})

	t.Run("mode live defers seek to duration report", func(t *testing.T) {
		c, _, _, _ := newTestRig(liveRecording())
		s, err := c.LoadRecording(context.Background(), "rec2", ModeLive)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.StartPositionMs)
		assert.True(t, s.SeekToLiveOnStart)
	})

	t.Run("negative view offset is clamped", func(t *testing.T) {
		c, _, _, _ := newTestRig(completedRecording(-500))
		s, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.StartPositionMs)
	})
}

func TestLoadRecordingErrors(t *testing.T) {
	t.Run("unknown recording", func(t *testing.T) {
		c, _, _, _ := newTestRig()
		_, err := c.LoadRecording(context.Background(), "nope", ModeDefault)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, c.Session())
	})

	t.Run("stream url failure is an upstream error", func(t *testing.T) {
		c, source, _, _ := newTestRig(completedRecording(0))
		source.streamErr = errors.New("tuner offline")
		_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, "stream url retrieval", upstream.Op)
		assert.Nil(t, c.Session())
	})

	t.Run("cancellation mid-load commits nothing", func(t *testing.T) {
		c, source, _, stats := newTestRig(completedRecording(0))
		ctx, cancel := context.WithCancel(context.Background())
		source.cancelCtx = cancel
		_, err := c.LoadRecording(ctx, "rec1", ModeDefault)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, c.Session())
		assert.Zero(t, stats.started)
	})

	t.Run("watch stats failure does not fail the load", func(t *testing.T) {
		c, _, _, stats := newTestRig(completedRecording(0))
		stats.startErr = errors.New("stats backend down")
		s, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestLoadRecordingResetsSkipState(t *testing.T) {
	r := completedRecording(0)
	r.Commercials = []model.Commercial{{Start: 1000, End: 2000}}
	c, _, _, _ := newTestRig(r)

	_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
	require.NoError(t, err)

	_, err = c.RecordSkip(0)
	require.NoError(t, err)
	c.ToggleAutoSkip()
	require.False(t, c.AutoSkipEnabled())

	// A fresh load starts with a clean tracker and auto-skip on.
	_, err = c.LoadRecording(context.Background(), "rec1", ModeDefault)
	require.NoError(t, err)
	assert.True(t, c.AutoSkipEnabled())
	assert.True(t, c.ShouldAutoSkip(0))
}

func TestResolveLiveSeekPosition(t *testing.T) {
	c, _, _, _ := newTestRig()

	assert.Equal(t, int64(110000), c.ResolveLiveSeekPosition(120000))
	// Durations shorter than the buffer clamp to the start.
	assert.Equal(t, int64(0), c.ResolveLiveSeekPosition(5000))
	assert.Equal(t, int64(0), c.ResolveLiveSeekPosition(0))
}

func TestSaveProgress(t *testing.T) {
	t.Run("live recording progress is never persisted", func(t *testing.T) {
		c, _, progress, _ := newTestRig(liveRecording())
		_, err := c.LoadRecording(context.Background(), "rec2", ModeDefault)
		require.NoError(t, err)

		c.SaveProgress(context.Background(), 1000)
		c.SaveProgress(context.Background(), 2000)
		c.SaveProgress(context.Background(), 3000)
		assert.Empty(t, progress.calls)
	})

	t.Run("completed recording progress is persisted", func(t *testing.T) {
		c, _, progress, _ := newTestRig(completedRecording(0))
		_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)

		c.SaveProgress(context.Background(), 30000)
		c.SaveProgress(context.Background(), -42)
		assert.Equal(t, []int64{30000, 0}, progress.calls)
	})

	t.Run("persistence failure is swallowed", func(t *testing.T) {
		c, _, progress, _ := newTestRig(completedRecording(0))
		progress.err = errors.New("disk full")
		_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)

		c.SaveProgress(context.Background(), 30000)
	})

	t.Run("no-op without a session", func(t *testing.T) {
		c, _, progress, _ := newTestRig()
		c.SaveProgress(context.Background(), 30000)
		assert.Empty(t, progress.calls)
	})
}

func TestEndSession(t *testing.T) {
	t.Run("reports elapsed watch duration", func(t *testing.T) {
		c, _, _, stats := newTestRig(completedRecording(0))
		_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)

		start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		c.watchStarted = start
		c.now = func() time.Time { return start.Add(42 * time.Second) }

		c.EndSession(context.Background())
		assert.Equal(t, 1, stats.ended)
		assert.Equal(t, int64(42000), stats.endedMs)
	})

	t.Run("idempotent", func(t *testing.T) {
		c, _, _, stats := newTestRig(completedRecording(0))
		_, err := c.LoadRecording(context.Background(), "rec1", ModeDefault)
		require.NoError(t, err)

		c.EndSession(context.Background())
		c.EndSession(context.Background())
		assert.Equal(t, 1, stats.ended)
	})

	t.Run("safe without a session", func(t *testing.T) {
		c, _, _, stats := newTestRig()
		c.EndSession(context.Background())
		assert.Zero(t, stats.ended)
	})
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeLive, ParseMode("live"))
	assert.Equal(t, ModeStart, ParseMode("start"))
	assert.Equal(t, ModeDefault, ParseMode("default"))
	assert.Equal(t, ModeDefault, ParseMode(""))
	assert.Equal(t, "live", ModeLive.String())
}
