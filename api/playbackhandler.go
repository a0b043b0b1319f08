package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/recast-tv/recast-server/database/model"
	"github.com/recast-tv/recast-server/idhash"
	"github.com/recast-tv/recast-server/playback"
)

// statsAdapter bridges the playback watch-stats contract to the
// watch_sessions table.
type statsAdapter struct {
	repo interface {
		StartWatchSession(ctx context.Context, session *model.WatchSession) error
		EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error
	}
}

func (s *statsAdapter) StartWatchSession(ctx context.Context, contentID, contentType, title string) (string, error) {
	session := &model.WatchSession{
		ID:          idhash.NewRandomID(),
		ContentID:   contentID,
		ContentType: contentType,
		Title:       title,
	}
	if err := s.repo.StartWatchSession(ctx, session); err != nil {
		return "", err
	}
	return session.ID, nil
}

func (s *statsAdapter) EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error {
	return s.repo.EndWatchSession(ctx, sessionID, watchedMs)
}

// POST /dvr/playback
//
// playbackLoadHandler starts a playback session for a recording and
// returns a ready-to-play descriptor.
func (a *API) playbackLoadHandler(w http.ResponseWriter, r *http.Request) {
	if a.getAccessTokenDetails(w, r) == nil {
		return
	}

	var request PlaybackLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if request.RecordingID == "" {
		apierror(w, "recordingId required", http.StatusBadRequest)
		return
	}

	controller := playback.New(&playback.Options{
		Source:           &sessionSource{api: a},
		Progress:         a.library,
		Stats:            &statsAdapter{repo: a.repo},
		LiveEdgeBufferMs: a.liveEdgeBufferMs,
		NextToleranceMs:  a.nextToleranceMs,
		PrevToleranceMs:  a.prevToleranceMs,
	})

	session, err := controller.LoadRecording(r.Context(), request.RecordingID, playback.ParseMode(request.Mode))
	if err != nil {
		var upstream *playback.UpstreamError
		switch {
		case errors.Is(err, playback.ErrNotFound):
			apierror(w, "Recording not found", http.StatusNotFound)
		case errors.As(err, &upstream):
			apierror(w, upstream.Error(), http.StatusBadGateway)
		default:
			apierror(w, "Could not start playback", http.StatusInternalServerError)
		}
		return
	}

	sessionID := idhash.NewRandomID()
	a.sessionMu.Lock()
	a.sessions[sessionID] = controller
	a.sessionMu.Unlock()

	serveJSON(PlaybackSessionResponse{
		SessionID:         sessionID,
		RecordingID:       session.RecordingID,
		StreamURL:         session.StreamURL,
		StartPosition:     session.StartPositionMs,
		SeekToLiveOnStart: session.SeekToLiveOnStart,
		IsLiveRecording:   session.IsLiveRecording,
		AutoSkip:          controller.AutoSkipEnabled(),
		ChapterBoundaries: boundariesOrEmpty(controller.ChapterBoundaries()),
	}, w)
}

// getSession resolves the playback session referenced by the request
// path. Sends a 404 and returns nil when unknown.
func (a *API) getSession(w http.ResponseWriter, r *http.Request) *playback.Controller {
	vars := mux.Vars(r)
	a.sessionMu.Lock()
	controller, ok := a.sessions[vars["session"]]
	a.sessionMu.Unlock()
	if !ok {
		apierror(w, "Unknown playback session", http.StatusNotFound)
		return nil
	}
	return controller
}

// POST /dvr/playback/{session}/progress
func (a *API) playbackProgressHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	var request ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	// Best-effort: persistence failures never interrupt playback.
	controller.SaveProgress(r.Context(), request.Position)
	w.WriteHeader(http.StatusNoContent)
}

// POST /dvr/playback/{session}/stop
//
// playbackStopHandler persists the final position, closes watch
// tracking and discards the session.
func (a *API) playbackStopHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	var request ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err == nil {
		controller.SaveProgress(r.Context(), request.Position)
	}
	controller.EndSession(r.Context())

	vars := mux.Vars(r)
	a.sessionMu.Lock()
	delete(a.sessions, vars["session"])
	a.sessionMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// GET /dvr/playback/{session}/commercial?position=31500
//
// playbackCommercialHandler reports whether the position is inside a
// commercial and whether the engine would auto-skip it.
func (a *API) playbackCommercialHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}

	response := CommercialMatchResponse{}
	if match := controller.CurrentCommercial(position); match != nil {
		response.Match = &CommercialMatchDetail{
			Index:     match.Index,
			Start:     match.Start,
			End:       match.End,
			Remaining: match.RemainingMs,
		}
		response.AutoSkip = controller.ShouldAutoSkip(match.Index)
	}
	serveJSON(response, w)
}

// POST /dvr/playback/{session}/skip
//
// playbackSkipHandler marks a commercial as skipped and returns the
// seek target.
func (a *API) playbackSkipHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	var request SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apierror(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	seekTo, err := controller.RecordSkip(request.Index)
	if err != nil {
		apierror(w, "Commercial index out of range", http.StatusConflict)
		return
	}
	serveJSON(SkipResponse{SeekTo: seekTo}, w)
}

// POST /dvr/playback/{session}/seeked
//
// playbackSeekedHandler clears the skip tracker after a manual seek, so
// a deliberately re-entered ad gets a fresh auto-skip decision.
func (a *API) playbackSeekedHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	controller.ResetSkipTracker()
	w.WriteHeader(http.StatusNoContent)
}

// POST /dvr/playback/{session}/autoskip
func (a *API) playbackAutoSkipHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	serveJSON(AutoSkipResponse{AutoSkip: controller.ToggleAutoSkip()}, w)
}

// GET /dvr/playback/{session}/chapters
func (a *API) playbackChaptersHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	serveJSON(ChaptersResponse{Boundaries: boundariesOrEmpty(controller.ChapterBoundaries())}, w)
}

// GET /dvr/playback/{session}/chapters/next?position=2000
func (a *API) playbackNextChapterHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}
	response := ChapterJumpResponse{}
	if target, ok := controller.NextChapterPosition(position); ok {
		response.Position = &target
	}
	serveJSON(response, w)
}

// GET /dvr/playback/{session}/chapters/previous?position=6500
func (a *API) playbackPreviousChapterHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}
	response := ChapterJumpResponse{}
	if target, ok := controller.PreviousChapterPosition(position); ok {
		response.Position = &target
	}
	serveJSON(response, w)
}

// GET /dvr/playback/{session}/live-position?duration=120000
//
// playbackLivePositionHandler resolves the live-edge seek target once
// the player knows the duration.
func (a *API) playbackLivePositionHandler(w http.ResponseWriter, r *http.Request) {
	controller := a.getSession(w, r)
	if controller == nil {
		return
	}
	duration, err := strconv.ParseInt(r.URL.Query().Get("duration"), 10, 64)
	if err != nil || duration < 0 {
		apierror(w, "duration parameter required", http.StatusBadRequest)
		return
	}
	serveJSON(LivePositionResponse{Position: controller.ResolveLiveSeekPosition(duration)}, w)
}

func positionParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	position, err := strconv.ParseInt(r.URL.Query().Get("position"), 10, 64)
	if err != nil || position < 0 {
		apierror(w, "position parameter required", http.StatusBadRequest)
		return 0, false
	}
	return position, true
}

func boundariesOrEmpty(boundaries []int64) []int64 {
	if boundaries == nil {
		return []int64{}
	}
	return boundaries
}
