package playback

import (
	"sort"

	"github.com/recast-tv/recast-server/database/model"
)

// Commercial navigation over the session's commercial snapshot. The
// snapshot is sorted ascending by start and non-overlapping, which the
// lookups below rely on.

// CurrentCommercial returns the commercial containing positionMs, or
// nil when the position is inside program content.
func (c *Controller) CurrentCommercial(positionMs int64) *CommercialMatch {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := findCommercial(c.commercials, positionMs)
	if !ok {
		return nil
	}
	interval := c.commercials[i]
	return &CommercialMatch{
		Index:       i,
		Start:       interval.Start,
		End:         interval.End,
		RemainingMs: interval.End - positionMs,
	}
}

// ShouldAutoSkip reports whether the commercial at index should be
// skipped without user confirmation: auto-skip is enabled and the
// commercial has not been auto-skipped before in this session.
// Does not mutate the skip tracker.
func (c *Controller) ShouldAutoSkip(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.autoSkip {
		return false
	}
	_, alreadySkipped := c.skipped[index]
	return !alreadySkipped
}

// RecordSkip marks the commercial at index as skipped and returns its
// end position as the seek target. Marking is idempotent. Returns
// ErrStaleIndex when index does not match the current snapshot.
func (c *Controller) RecordSkip(index int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.commercials) {
		return 0, ErrStaleIndex
	}
	c.skipped[index] = struct{}{}
	return c.commercials[index].End, nil
}

// ResetSkipTracker clears all tracked skips. Call on every manual seek:
// the user may deliberately re-enter a skipped ad, and the next
// auto-skip decision should be made fresh.
func (c *Controller) ResetSkipTracker() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.skipped = make(map[int]struct{})
}

// ChapterBoundaries returns the start positions of content segments:
// the start of the recording plus the end of every commercial. Empty
// when the recording has no detected commercials, chapters are only
// meaningful relative to ad breaks.
func (c *Controller) ChapterBoundaries() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return chapterBoundaries(c.commercials)
}

// NextChapterPosition returns the first chapter boundary past
// positionMs, with a small tolerance so a press right at a boundary
// jumps to the next one. ok is false in the last segment.
func (c *Controller) NextChapterPosition(positionMs int64) (position int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	boundaries := chapterBoundaries(c.commercials)
	for _, b := range boundaries {
		if b > positionMs+c.nextToleranceMs {
			return b, true
		}
	}
	return 0, false
}

// PreviousChapterPosition returns the last chapter boundary before
// positionMs. The backward tolerance is larger than the forward one so
// a press near the start of a segment lands on the segment before it
// instead of restarting the current one. ok is false before the first
// boundary.
func (c *Controller) PreviousChapterPosition(positionMs int64) (position int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	boundaries := chapterBoundaries(c.commercials)
	for i := len(boundaries) - 1; i >= 0; i-- {
		if boundaries[i] < positionMs-c.prevToleranceMs {
			return boundaries[i], true
		}
	}
	return 0, false
}

// findCommercial locates the interval with start <= position < end.
// Binary search, the list is sorted and non-overlapping.
func findCommercial(commercials []model.Commercial, positionMs int64) (int, bool) {
	i := sort.Search(len(commercials), func(i int) bool {
		return commercials[i].End > positionMs
	})
	if i < len(commercials) && commercials[i].Start <= positionMs {
		return i, true
	}
	return 0, false
}

func chapterBoundaries(commercials []model.Commercial) []int64 {
	if len(commercials) == 0 {
		return nil
	}
	boundaries := make([]int64, 0, len(commercials)+1)
	boundaries = append(boundaries, 0)
	for _, c := range commercials {
		boundaries = append(boundaries, c.End)
	}
	return boundaries
}
