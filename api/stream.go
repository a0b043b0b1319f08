package api

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"

	"github.com/recast-tv/recast-server/database/model"
	"github.com/recast-tv/recast-server/idhash"
	"github.com/recast-tv/recast-server/playback"
)

// streamStore maps opaque stream tokens to capture file paths. The
// token is the access capability: whoever holds the URL may play the
// file. Tokens live for the server lifetime.
type streamStore struct {
	mu     sync.Mutex
	tokens map[string]streamEntry
}

type streamEntry struct {
	recordingID string
	path        string
}

func newStreamStore() *streamStore {
	return &streamStore{tokens: make(map[string]streamEntry)}
}

func (s *streamStore) mint(recordingID, path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One token per recording file, reissue the same token on repeat loads.
	for token, entry := range s.tokens {
		if entry.recordingID == recordingID && entry.path == path {
			return token
		}
	}
	token := idhash.NewRandomID()
	s.tokens[token] = streamEntry{recordingID: recordingID, path: path}
	return token
}

func (s *streamStore) lookup(token string) (streamEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	return entry, ok
}

// GET /dvr/stream/{token}
//
// streamHandler serves a recording's capture file. Range requests come
// free with ServeContent. An in-progress recording simply reports a
// larger size on the next request.
func (a *API) streamHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entry, ok := a.streams.lookup(vars["token"])
	if !ok {
		apierror(w, "Unknown stream", http.StatusNotFound)
		return
	}

	file, err := os.Open(entry.path)
	if err != nil {
		apierror(w, "Capture file not available", http.StatusNotFound)
		return
	}
	defer file.Close()

	fileStat, err := file.Stat()
	if err != nil {
		apierror(w, "Could not retrieve file info", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, fileStat.Name(), fileStat.ModTime(), file)
}

// sessionSource adapts the recording library and the stream store to
// the playback collaborator contract.
type sessionSource struct {
	api *API
}

func (s *sessionSource) GetRecording(ctx context.Context, recordingID string) (*model.Recording, error) {
	return s.api.library.GetRecording(ctx, recordingID)
}

func (s *sessionSource) StreamURL(ctx context.Context, recordingID string) (string, error) {
	recording, err := s.api.library.GetRecording(ctx, recordingID)
	if err != nil {
		return "", err
	}
	token := s.api.streams.mint(recording.ID, recording.Path)
	return s.api.baseURL + "/dvr/stream/" + token, nil
}

var _ playback.RecordingSource = (*sessionSource)(nil)
