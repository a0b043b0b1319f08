package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recast-tv/recast-server/database/model"
)

// testController returns a Controller with a commercial snapshot loaded
// directly, bypassing I/O.
func testController(commercials []model.Commercial) *Controller {
	c := New(&Options{})
	c.session = &Session{RecordingID: "rec1"}
	c.commercials = commercials
	return c
}

func TestCurrentCommercial(t *testing.T) {
	commercials := []model.Commercial{
		{Start: 1000, End: 2000},
		{Start: 5000, End: 6000},
		{Start: 31000, End: 41000},
	}
	c := testController(commercials)

	t.Run("inside first interval", func(t *testing.T) {
		m := c.CurrentCommercial(1500)
		require.NotNil(t, m)
		assert.Equal(t, 0, m.Index)
		assert.Equal(t, int64(500), m.RemainingMs)
	})

	t.Run("start is inclusive", func(t *testing.T) {
		m := c.CurrentCommercial(5000)
		require.NotNil(t, m)
		assert.Equal(t, 1, m.Index)
		assert.Equal(t, int64(1000), m.RemainingMs)
	})

	t.Run("end is exclusive", func(t *testing.T) {
		assert.Nil(t, c.CurrentCommercial(2000))
	})

	t.Run("between intervals", func(t *testing.T) {
		assert.Nil(t, c.CurrentCommercial(3000))
	})

	t.Run("before all intervals", func(t *testing.T) {
		assert.Nil(t, c.CurrentCommercial(0))
	})

	t.Run("after all intervals", func(t *testing.T) {
		assert.Nil(t, c.CurrentCommercial(50000))
	})

	t.Run("empty list", func(t *testing.T) {
		empty := testController(nil)
		assert.Nil(t, empty.CurrentCommercial(1500))
	})
}

func TestAutoSkipIdempotence(t *testing.T) {
	c := testController([]model.Commercial{
		{Start: 1000, End: 2000},
		{Start: 5000, End: 6000},
	})

	require.True(t, c.ShouldAutoSkip(0))

	end, err := c.RecordSkip(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), end)

	// Skipped once, never again this session, no matter how often asked.
	assert.False(t, c.ShouldAutoSkip(0))
	assert.False(t, c.ShouldAutoSkip(0))
	assert.True(t, c.ShouldAutoSkip(1))

	// Re-recording the same skip is a no-op.
	end, err = c.RecordSkip(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), end)
	assert.False(t, c.ShouldAutoSkip(0))

	// A manual seek clears the tracker.
	c.ResetSkipTracker()
	assert.True(t, c.ShouldAutoSkip(0))
}

func TestAutoSkipDisabled(t *testing.T) {
	c := testController([]model.Commercial{{Start: 1000, End: 2000}})

	assert.False(t, c.ToggleAutoSkip())
	assert.False(t, c.ShouldAutoSkip(0))

	assert.True(t, c.ToggleAutoSkip())
	assert.True(t, c.ShouldAutoSkip(0))
}

func TestRecordSkipStaleIndex(t *testing.T) {
	c := testController([]model.Commercial{{Start: 1000, End: 2000}})

	_, err := c.RecordSkip(1)
	assert.ErrorIs(t, err, ErrStaleIndex)
	_, err = c.RecordSkip(-1)
	assert.ErrorIs(t, err, ErrStaleIndex)
}

func TestChapterBoundaries(t *testing.T) {
	c := testController([]model.Commercial{
		{Start: 1000, End: 2000},
		{Start: 5000, End: 6000},
	})
	assert.Equal(t, []int64{0, 2000, 6000}, c.ChapterBoundaries())

	empty := testController(nil)
	assert.Empty(t, empty.ChapterBoundaries())
}

func TestNextPreviousChapter(t *testing.T) {
	c := testController([]model.Commercial{
		{Start: 1000, End: 2000},
		{Start: 5000, End: 6000},
	})

	next, ok := c.NextChapterPosition(500)
	require.True(t, ok)
	assert.Equal(t, int64(2000), next)

	// Tolerance skips the immediate boundary.
	next, ok = c.NextChapterPosition(2000)
	require.True(t, ok)
	assert.Equal(t, int64(6000), next)

	_, ok = c.NextChapterPosition(6000)
	assert.False(t, ok)

	prev, ok := c.PreviousChapterPosition(6500)
	require.True(t, ok)
	assert.Equal(t, int64(2000), prev)

	_, ok = c.PreviousChapterPosition(100)
	assert.False(t, ok)
}

// TestSkipFlow walks the combined engine flow: position enters an ad,
// auto-skip fires once, then stays quiet until a manual seek.
func TestSkipFlow(t *testing.T) {
	c := testController([]model.Commercial{
		{Start: 1000, End: 2000},
		{Start: 5000, End: 6000},
		{Start: 31000, End: 41000},
	})

	m := c.CurrentCommercial(31500)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, int64(9500), m.RemainingMs)

	require.True(t, c.ShouldAutoSkip(m.Index))

	target, err := c.RecordSkip(m.Index)
	require.NoError(t, err)
	assert.Equal(t, int64(41000), target)

	// The user seeks back into the ad: without a tracker reset the
	// engine must not offer to auto-skip again.
	m = c.CurrentCommercial(32000)
	require.NotNil(t, m)
	assert.False(t, c.ShouldAutoSkip(m.Index))

	c.ResetSkipTracker()
	assert.True(t, c.ShouldAutoSkip(m.Index))
}
