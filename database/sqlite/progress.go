package sqlite

import (
	"context"
	"log"
	"time"

	"github.com/recast-tv/recast-server/database/model"
)

// in-memory progress store, synced to disk by BackgroundJobs()

// GetProgress returns the last known playback position of a recording
// in milliseconds.
func (s *SqliteRepo) GetProgress(ctx context.Context, recordingID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.progressEntries[recordingID]; ok {
		return entry.positionMs, nil
	}
	return 0, model.ErrNotFound
}

// UpdateProgress stores the playback position of a recording. The write
// lands in the in-memory cache first and reaches the database on the
// next sync.
func (s *SqliteRepo) UpdateProgress(ctx context.Context, recordingID string, positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progressEntries[recordingID] = progressEntry{
		positionMs: positionMs,
		timestamp:  time.Now().UTC(),
	}
	return nil
}

// cachedProgress is the lock-taking variant used while assembling
// recording rows.
func (s *SqliteRepo) cachedProgress(recordingID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.progressEntries[recordingID].positionMs
}

// loadProgressFromDB loads the progress table into memory.
func (s *SqliteRepo) loadProgressFromDB() error {
	var rows []struct {
		RecordingID string    `db:"recordingid"`
		Position    int64     `db:"position"`
		Timestamp   time.Time `db:"timestamp"`
	}
	if err := s.dbReadHandle.Select(&rows, "SELECT recordingid, position, timestamp FROM progress"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.progressEntries[row.RecordingID] = progressEntry{
			positionMs: row.Position,
			timestamp:  row.Timestamp,
		}
	}
	s.progressSyncTime = time.Now()
	return nil
}

// writeProgressToDB writes all changed progress entries to the database.
func (s *SqliteRepo) writeProgressToDB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for recordingID, entry := range s.progressEntries {
		if entry.timestamp.After(s.progressSyncTime) {
			log.Printf("Persisting progress for recording %s: %d ms\n", recordingID, entry.positionMs)
			_, err := tx.Exec(
				"INSERT OR REPLACE INTO progress (recordingid, position, timestamp) VALUES (?, ?, ?)",
				recordingID, entry.positionMs, entry.timestamp)
			if err != nil {
				return err
			}
		}
	}

	s.progressSyncTime = time.Now()
	return tx.Commit()
}
