package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/recast-tv/recast-server/database/model"
)

// GET /dvr/recordings?status=completed
//
// recordingsHandler returns the recording library, newest first.
func (a *API) recordingsHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	statusFilter := r.URL.Query().Get("status")

	response := RecordingsResponse{Recordings: []RecordingResponse{}}
	for _, rec := range a.library.GetRecordings(r.Context()) {
		if statusFilter != "" && string(rec.Status) != statusFilter {
			continue
		}
		response.Recordings = append(response.Recordings, makeRecordingResponse(&rec))
	}
	serveJSON(response, w)
}

// GET /dvr/recordings/search?q=news
//
// recordingsSearchHandler returns recordings matching a search term.
func (a *API) recordingsSearchHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	query := r.URL.Query().Get("q")
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	matches, err := a.library.Search(r.Context(), query, limit)
	if err != nil {
		apierror(w, "Search failed", http.StatusInternalServerError)
		return
	}

	response := RecordingsResponse{Recordings: []RecordingResponse{}}
	for i := range matches {
		response.Recordings = append(response.Recordings, makeRecordingResponse(&matches[i]))
	}
	serveJSON(response, w)
}

// GET /dvr/recordings/{recording}
//
// recordingHandler returns one recording with its commercial list.
func (a *API) recordingHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	vars := mux.Vars(r)
	rec, err := a.library.GetRecording(r.Context(), vars["recording"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			apierror(w, "Recording not found", http.StatusNotFound)
			return
		}
		apierror(w, "Could not retrieve recording", http.StatusInternalServerError)
		return
	}
	serveJSON(makeRecordingResponse(rec), w)
}

// POST /dvr/recordings/{recording}/progress
//
// recordingProgressHandler updates the stored view offset directly,
// outside of a playback session. Used by clients syncing externally
// tracked positions.
func (a *API) recordingProgressHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	var request ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if request.Position < 0 {
		request.Position = 0
	}

	vars := mux.Vars(r)
	rec, err := a.library.GetRecording(r.Context(), vars["recording"])
	if err != nil {
		apierror(w, "Recording not found", http.StatusNotFound)
		return
	}
	// Progress on a still-growing capture is not meaningful.
	if rec.Status == model.StatusRecording {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := a.library.UpdateProgress(r.Context(), rec.ID, request.Position); err != nil {
		apierror(w, "Could not store progress", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /dvr/recordings/{recording}/watchhistory
//
// recordingWatchHistoryHandler returns the watch-tracking entries of a
// recording, newest first.
func (a *API) recordingWatchHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	vars := mux.Vars(r)
	sessions, err := a.repo.GetWatchSessions(r.Context(), vars["recording"])
	if err != nil {
		apierror(w, "Could not retrieve watch history", http.StatusInternalServerError)
		return
	}

	response := WatchHistoryResponse{Sessions: []WatchSessionResponse{}}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, WatchSessionResponse{
			ID:        s.ID,
			Started:   s.Started,
			WatchedMs: s.WatchedMs,
			Closed:    s.Closed,
		})
	}
	serveJSON(response, w)
}

// GET /dvr/recordings/{recording}/thumbnail?w=400&h=225
//
// recordingThumbnailHandler serves the poster image, resized on demand.
func (a *API) recordingThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := a.library.GetRecording(r.Context(), vars["recording"])
	if err != nil || rec.ThumbnailPath == "" {
		apierror(w, "Thumbnail not found", http.StatusNotFound)
		return
	}

	file, err := a.imageresizer.OpenFile(w, r, rec.ThumbnailPath, a.imageQualityThumbnail)
	if err != nil {
		apierror(w, "Thumbnail not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	fileStat, err := file.Stat()
	if err != nil {
		apierror(w, "Could not retrieve file info", http.StatusInternalServerError)
		return
	}
	w.Header().Set("cache-control", "max-age=2592000")
	http.ServeContent(w, r, fileStat.Name(), fileStat.ModTime(), file)
}

func makeRecordingResponse(rec *model.Recording) RecordingResponse {
	response := RecordingResponse{
		ID:           rec.ID,
		Title:        rec.Title,
		Subtitle:     rec.Subtitle,
		ChannelID:    rec.ChannelID,
		ChannelName:  rec.ChannelName,
		Status:       string(rec.Status),
		StartTime:    rec.StartTime,
		ViewOffset:   rec.ViewOffset,
		FileSize:     rec.FileSize,
		HasThumbnail: rec.ThumbnailPath != "",
		Commercials:  []CommercialResponse{},
	}
	if !rec.EndTime.IsZero() {
		endTime := rec.EndTime
		response.EndTime = &endTime
	}
	for i, c := range rec.Commercials {
		response.Commercials = append(response.Commercials, CommercialResponse{
			Index: i,
			Start: c.Start,
			End:   c.End,
		})
	}
	return response
}
