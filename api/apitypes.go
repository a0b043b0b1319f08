package api

import "time"

// RecordingResponse is the JSON view of one DVR recording.
type RecordingResponse struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Subtitle     string               `json:"subtitle,omitempty"`
	ChannelID    string               `json:"channelId"`
	ChannelName  string               `json:"channelName,omitempty"`
	Status       string               `json:"status"`
	StartTime    time.Time            `json:"startTime"`
	EndTime      *time.Time           `json:"endTime,omitempty"`
	ViewOffset   int64                `json:"viewOffset"`
	FileSize     int64                `json:"fileSize,omitempty"`
	HasThumbnail bool                 `json:"hasThumbnail"`
	Commercials  []CommercialResponse `json:"commercials"`
}

// CommercialResponse is one detected ad interval, milliseconds.
type CommercialResponse struct {
	Index int   `json:"index"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// RecordingsResponse wraps a recording list.
type RecordingsResponse struct {
	Recordings []RecordingResponse `json:"recordings"`
}

// LoginRequest is the body of POST /dvr/login.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceName string `json:"deviceName,omitempty"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
}

// PlaybackLoadRequest is the body of POST /dvr/playback.
type PlaybackLoadRequest struct {
	RecordingID string `json:"recordingId"`
	// Mode is "default", "live" or "start".
	Mode string `json:"mode,omitempty"`
}

// PlaybackSessionResponse describes a ready-to-play session.
type PlaybackSessionResponse struct {
	SessionID         string  `json:"sessionId"`
	RecordingID       string  `json:"recordingId"`
	StreamURL         string  `json:"streamUrl"`
	StartPosition     int64   `json:"startPosition"`
	SeekToLiveOnStart bool    `json:"seekToLiveOnStart"`
	IsLiveRecording   bool    `json:"isLiveRecording"`
	AutoSkip          bool    `json:"autoSkip"`
	ChapterBoundaries []int64 `json:"chapterBoundaries"`
}

// ProgressRequest reports a playback position, milliseconds.
type ProgressRequest struct {
	Position int64 `json:"position"`
}

// CommercialMatchResponse answers a current-commercial query. Match is
// nil when the position is inside program content.
type CommercialMatchResponse struct {
	Match    *CommercialMatchDetail `json:"match"`
	AutoSkip bool                   `json:"autoSkip"`
}

// CommercialMatchDetail is the matched interval.
type CommercialMatchDetail struct {
	Index     int   `json:"index"`
	Start     int64 `json:"start"`
	End       int64 `json:"end"`
	Remaining int64 `json:"remaining"`
}

// SkipRequest asks to mark a commercial as skipped.
type SkipRequest struct {
	Index int `json:"index"`
}

// SkipResponse returns the seek target after a skip.
type SkipResponse struct {
	SeekTo int64 `json:"seekTo"`
}

// AutoSkipResponse returns the auto-skip toggle state.
type AutoSkipResponse struct {
	AutoSkip bool `json:"autoSkip"`
}

// ChaptersResponse lists content segment start positions.
type ChaptersResponse struct {
	Boundaries []int64 `json:"boundaries"`
}

// ChapterJumpResponse answers a next/previous chapter query. Position
// is nil when there is no boundary in that direction.
type ChapterJumpResponse struct {
	Position *int64 `json:"position"`
}

// LivePositionResponse answers a live-edge seek query.
type LivePositionResponse struct {
	Position int64 `json:"position"`
}

// WatchHistoryResponse lists watch-tracking entries of a recording.
type WatchHistoryResponse struct {
	Sessions []WatchSessionResponse `json:"sessions"`
}

// WatchSessionResponse is one watch-tracking entry.
type WatchSessionResponse struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	WatchedMs int64     `json:"watchedMs"`
	Closed    bool      `json:"closed"`
}
