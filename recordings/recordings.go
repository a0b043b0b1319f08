// Package recordings provides access to the DVR recording library. It
// keeps an in-memory view of the recordings table enriched with on-disk
// file metadata, and maintains a search index over titles and channels.
package recordings

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/recast-tv/recast-server/database"
	"github.com/recast-tv/recast-server/database/model"
	"github.com/recast-tv/recast-server/recordings/search"
)

// Repo is the recording library repository.
type Repo struct {
	repo       database.Repository
	bleveIndex *search.Search

	mu sync.Mutex
	// byID caches the last refreshed library view.
	byID map[string]*model.Recording
	// ordered view, newest first, as loaded from the database.
	ordered []*model.Recording
}

type Options struct {
	Repo database.Repository
}

// New creates a recording library repository.
func New(options *Options) (*Repo, error) {
	idx, err := search.New()
	if err != nil {
		return nil, err
	}
	return &Repo{
		repo:       options.Repo,
		bleveIndex: idx,
		byID:       make(map[string]*model.Recording),
	}, nil
}

// Init loads the library for the first time.
func (r *Repo) Init(ctx context.Context) error {
	log.Printf("Initializing recording library..")
	return r.Refresh(ctx)
}

// Background keeps the library view and search index fresh. In-progress
// recordings change status and size server-side without our involvement.
func (r *Repo) Background(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
		}
		if err := r.Refresh(ctx); err != nil {
			log.Printf("Error refreshing recording library: %s\n", err)
		}
	}
}

// Refresh reloads all recordings from the database, stats their capture
// files and rebuilds the search index.
func (r *Repo) Refresh(ctx context.Context) error {
	recordings, err := r.repo.GetRecordings(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]*model.Recording, len(recordings))
	ordered := make([]*model.Recording, 0, len(recordings))
	docs := make([]search.Document, 0, len(recordings))
	for i := range recordings {
		rec := &recordings[i]
		statRecordingFile(rec)
		byID[rec.ID] = rec
		ordered = append(ordered, rec)
		docs = append(docs, search.Document{
			ID:       rec.ID,
			Title:    rec.Title,
			Subtitle: rec.Subtitle,
			Channel:  rec.ChannelName,
		})
	}

	if err := r.bleveIndex.Index(ctx, docs); err != nil {
		log.Printf("Error indexing recordings: %s\n", err)
	}

	r.mu.Lock()
	r.byID = byID
	r.ordered = ordered
	r.mu.Unlock()

	return nil
}

// GetRecordings returns the library view, newest first.
func (r *Repo) GetRecordings(ctx context.Context) []model.Recording {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordings := make([]model.Recording, 0, len(r.ordered))
	for _, rec := range r.ordered {
		recordings = append(recordings, *rec)
	}
	return recordings
}

// GetRecording returns one recording. It always goes to the database:
// the status and view offset of an in-progress recording must be fresh
// at playback load time, a stale cache entry would misclassify it.
func (r *Repo) GetRecording(ctx context.Context, recordingID string) (*model.Recording, error) {
	rec, err := r.repo.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	statRecordingFile(rec)

	r.mu.Lock()
	r.byID[rec.ID] = rec
	r.mu.Unlock()

	return rec, nil
}

// UpdateProgress stores the playback position of a recording.
func (r *Repo) UpdateProgress(ctx context.Context, recordingID string, positionMs int64) error {
	return r.repo.UpdateProgress(ctx, recordingID, positionMs)
}

// Search returns recordings matching the search term, best match first.
func (r *Repo) Search(ctx context.Context, searchTerm string, size int) ([]model.Recording, error) {
	ids, err := r.bleveIndex.Search(ctx, searchTerm, size)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	recordings := make([]model.Recording, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.byID[id]; ok {
			recordings = append(recordings, *rec)
		}
	}
	return recordings, nil
}
