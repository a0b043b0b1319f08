package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/recast-tv/recast-server/database/model"
)

// StartWatchSession opens a watch-tracking entry and returns its id.
func (s *SqliteRepo) StartWatchSession(ctx context.Context, session *model.WatchSession) error {
	session.Started = time.Now().UTC()
	_, err := s.dbWriteHandle.ExecContext(ctx,
		`INSERT INTO watch_sessions (id, contentid, contenttype, title, started, watchedms, closed)
VALUES (?, ?, ?, ?, ?, 0, FALSE)`,
		session.ID, session.ContentID, session.ContentType, session.Title, session.Started)
	return err
}

// EndWatchSession closes a watch-tracking entry with the watched
// duration. Closing an unknown or already closed session is a no-op.
func (s *SqliteRepo) EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error {
	_, err := s.dbWriteHandle.ExecContext(ctx,
		"UPDATE watch_sessions SET watchedms = ?, closed = TRUE WHERE id = ? AND closed = FALSE",
		watchedMs, sessionID)
	return err
}

// GetWatchSessions returns the watch history of one content item,
// newest first.
func (s *SqliteRepo) GetWatchSessions(ctx context.Context, contentID string) ([]model.WatchSession, error) {
	var rows []struct {
		ID          string         `db:"id"`
		ContentID   string         `db:"contentid"`
		ContentType string         `db:"contenttype"`
		Title       sql.NullString `db:"title"`
		Started     time.Time      `db:"started"`
		WatchedMs   int64          `db:"watchedms"`
		Closed      bool           `db:"closed"`
	}
	err := s.dbReadHandle.SelectContext(ctx, &rows,
		"SELECT id, contentid, contenttype, title, started, watchedms, closed FROM watch_sessions WHERE contentid = ? ORDER BY started DESC",
		contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sessions := make([]model.WatchSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, model.WatchSession{
			ID:          row.ID,
			ContentID:   row.ContentID,
			ContentType: row.ContentType,
			Title:       row.Title.String,
			Started:     row.Started,
			WatchedMs:   row.WatchedMs,
			Closed:      row.Closed,
		})
	}
	return sessions, nil
}
