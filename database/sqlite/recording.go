package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/recast-tv/recast-server/database/model"
)

// dbRecording mirrors the recordings table row.
type dbRecording struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Subtitle      sql.NullString `db:"subtitle"`
	ChannelID     string         `db:"channelid"`
	ChannelName   sql.NullString `db:"channelname"`
	Status        string         `db:"status"`
	StartTime     time.Time      `db:"starttime"`
	EndTime       sql.NullTime   `db:"endtime"`
	Path          string         `db:"path"`
	ThumbnailPath sql.NullString `db:"thumbnailpath"`
}

// GetRecordings returns all recordings, commercials included.
func (s *SqliteRepo) GetRecordings(ctx context.Context) ([]model.Recording, error) {
	var rows []dbRecording
	err := s.dbReadHandle.SelectContext(ctx, &rows,
		"SELECT id, title, subtitle, channelid, channelname, status, starttime, endtime, path, thumbnailpath FROM recordings ORDER BY starttime DESC")
	if err != nil {
		return nil, err
	}

	recordings := make([]model.Recording, 0, len(rows))
	for _, row := range rows {
		r := row.toModel()
		r.Commercials, err = s.getCommercials(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.ViewOffset = s.cachedProgress(r.ID)
		recordings = append(recordings, r)
	}
	return recordings, nil
}

// GetRecording returns one recording by id, commercials included.
func (s *SqliteRepo) GetRecording(ctx context.Context, recordingID string) (*model.Recording, error) {
	var row dbRecording
	err := s.dbReadHandle.GetContext(ctx, &row,
		"SELECT id, title, subtitle, channelid, channelname, status, starttime, endtime, path, thumbnailpath FROM recordings WHERE id = ?", recordingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r := row.toModel()
	r.Commercials, err = s.getCommercials(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.ViewOffset = s.cachedProgress(r.ID)
	return &r, nil
}

// InsertRecording stores a recording and its commercial list.
func (s *SqliteRepo) InsertRecording(ctx context.Context, r *model.Recording) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO recordings (id, title, subtitle, channelid, channelname, status, starttime, endtime, path, thumbnailpath)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Subtitle, r.ChannelID, r.ChannelName, string(r.Status),
		r.StartTime, nullTime(r.EndTime), r.Path, r.ThumbnailPath)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM commercials WHERE recordingid = ?", r.ID); err != nil {
		return err
	}
	for i, c := range r.Commercials {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO commercials (recordingid, ord, startms, endms) VALUES (?, ?, ?, ?)",
			r.ID, i, c.Start, c.End)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetRecordingStatus updates the lifecycle status of a recording.
func (s *SqliteRepo) SetRecordingStatus(ctx context.Context, recordingID string, status model.RecordingStatus) error {
	res, err := s.dbWriteHandle.ExecContext(ctx,
		"UPDATE recordings SET status = ? WHERE id = ?", string(status), recordingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *SqliteRepo) getCommercials(ctx context.Context, recordingID string) ([]model.Commercial, error) {
	var rows []struct {
		Start int64 `db:"startms"`
		End   int64 `db:"endms"`
	}
	err := s.dbReadHandle.SelectContext(ctx, &rows,
		"SELECT startms, endms FROM commercials WHERE recordingid = ? ORDER BY ord ASC", recordingID)
	if err != nil {
		return nil, err
	}
	commercials := make([]model.Commercial, 0, len(rows))
	for _, row := range rows {
		commercials = append(commercials, model.Commercial{Start: row.Start, End: row.End})
	}
	return commercials, nil
}

func (r *dbRecording) toModel() model.Recording {
	return model.Recording{
		ID:            r.ID,
		Title:         r.Title,
		Subtitle:      r.Subtitle.String,
		ChannelID:     r.ChannelID,
		ChannelName:   r.ChannelName.String,
		Status:        model.RecordingStatus(r.Status),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime.Time,
		Path:          r.Path,
		ThumbnailPath: r.ThumbnailPath.String,
	}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
