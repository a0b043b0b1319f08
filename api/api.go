// Package api implements the HTTP surface of the DVR server: recording
// library browsing, stream serving, and the playback session endpoints
// driving commercial skip and chapter navigation.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/recast-tv/recast-server/database"
	"github.com/recast-tv/recast-server/database/model"
	"github.com/recast-tv/recast-server/imageresize"
	"github.com/recast-tv/recast-server/playback"
	"github.com/recast-tv/recast-server/recordings"
)

type Options struct {
	Library      *recordings.Repo
	Repo         database.Repository
	Imageresizer *imageresize.Resizer
	// BaseURL is the externally reachable base of this server, used when
	// minting stream URLs.
	BaseURL string
	// JPEG quality for thumbnails
	ImageQualityThumbnail int
	// LiveEdgeBufferMs for live-edge seeks, 0 means the playback default.
	LiveEdgeBufferMs int64
	// Chapter navigation tolerances, 0 means the playback defaults.
	NextToleranceMs int64
	PrevToleranceMs int64
}

type API struct {
	library      *recordings.Repo
	repo         database.Repository
	imageresizer *imageresize.Resizer
	baseURL      string

	imageQualityThumbnail int
	liveEdgeBufferMs      int64
	nextToleranceMs       int64
	prevToleranceMs       int64

	streams *streamStore

	// active playback sessions by session id
	sessionMu sync.Mutex
	sessions  map[string]*playback.Controller
}

func New(o *Options) *API {
	return &API{
		library:               o.Library,
		repo:                  o.Repo,
		imageresizer:          o.Imageresizer,
		baseURL:               o.BaseURL,
		imageQualityThumbnail: o.ImageQualityThumbnail,
		liveEdgeBufferMs:      o.LiveEdgeBufferMs,
		nextToleranceMs:       o.NextToleranceMs,
		prevToleranceMs:       o.PrevToleranceMs,
		streams:               newStreamStore(),
		sessions:              make(map[string]*playback.Controller),
	}
}

func (a *API) RegisterHandlers(r *mux.Router) {
	// middleware for endpoints to check valid auth token
	middleware := func(handler http.HandlerFunc) http.Handler {
		return handlers.CompressHandler(a.authmiddleware(http.HandlerFunc(handler)))
	}

	r.Handle("/health", http.HandlerFunc(a.healthHandler))
	r.Handle("/dvr/login", http.HandlerFunc(a.loginHandler)).Methods("POST")

	r.Handle("/dvr/recordings", middleware(a.recordingsHandler)).Methods("GET")
	r.Handle("/dvr/recordings/search", middleware(a.recordingsSearchHandler)).Methods("GET")
	r.Handle("/dvr/recordings/{recording}", middleware(a.recordingHandler)).Methods("GET")
	r.Handle("/dvr/recordings/{recording}/progress", middleware(a.recordingProgressHandler)).Methods("POST")
	r.Handle("/dvr/recordings/{recording}/watchhistory", middleware(a.recordingWatchHistoryHandler)).Methods("GET")
	// Thumbnails can be fetched without auth, TV image views don't send tokens.
	r.Handle("/dvr/recordings/{recording}/thumbnail", http.HandlerFunc(a.recordingThumbnailHandler)).Methods("GET")

	r.Handle("/dvr/playback", middleware(a.playbackLoadHandler)).Methods("POST")
	s := r.PathPrefix("/dvr/playback/{session}").Subrouter()
	s.Handle("/progress", middleware(a.playbackProgressHandler)).Methods("POST")
	s.Handle("/stop", middleware(a.playbackStopHandler)).Methods("POST")
	s.Handle("/commercial", middleware(a.playbackCommercialHandler)).Methods("GET")
	s.Handle("/skip", middleware(a.playbackSkipHandler)).Methods("POST")
	s.Handle("/seeked", middleware(a.playbackSeekedHandler)).Methods("POST")
	s.Handle("/autoskip", middleware(a.playbackAutoSkipHandler)).Methods("POST")
	s.Handle("/chapters", middleware(a.playbackChaptersHandler)).Methods("GET")
	s.Handle("/chapters/next", middleware(a.playbackNextChapterHandler)).Methods("GET")
	s.Handle("/chapters/previous", middleware(a.playbackPreviousChapterHandler)).Methods("GET")
	s.Handle("/live-position", middleware(a.playbackLivePositionHandler)).Methods("GET")

	// The stream token is the access capability, no auth token required:
	// player engines fetch media without custom headers.
	r.Handle("/dvr/stream/{token}", http.HandlerFunc(a.streamHandler)).Methods("GET", "HEAD")
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(map[string]string{"status": "ok"}, w)
}

type contextKey string

const (
	// Context key holding access token details within a request
	contextAccessTokenDetails contextKey = "AccessTokenDetails"
)

// authmiddleware validates the auth token, token can be provided as a
// bearer header or api_key query parameter.
func (a *API) authmiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if t := r.URL.Query().Get("api_key"); t != "" {
			token = t
		}
		if token == "" {
			http.Error(w, "no token provided", http.StatusUnauthorized)
			return
		}

		tokendetails, err := a.repo.GetAccessToken(r.Context(), token)
		if err != nil {
			log.Printf("invalid access token: %s", err)
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextAccessTokenDetails, tokendetails)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getAccessTokenDetails returns access token details from the request
// context populated by authmiddleware().
//
// if not found sends an HTTP unauthorized error
func (a *API) getAccessTokenDetails(w http.ResponseWriter, r *http.Request) *model.AccessToken {
	details, ok := r.Context().Value(contextAccessTokenDetails).(*model.AccessToken)
	if ok {
		return details
	}
	http.Error(w, "access token not found", http.StatusUnauthorized)
	return nil
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(obj)
}

// HTTPError represents a structured HTTP error response.
type HTTPError struct {
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
}

// apierror writes a structured error response.
func apierror(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPError{Status: status, Title: msg})
}
