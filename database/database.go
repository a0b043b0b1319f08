package database

import (
	"context"
	"time"

	"github.com/recast-tv/recast-server/database/model"
	"github.com/recast-tv/recast-server/database/sqlite"
)

type (
	Options struct {
		Filename string
		// SyncInterval is how often cached writes are flushed to disk.
		SyncInterval time.Duration
	}

	// Repository is the set of database operations used by the rest of
	// the server.
	Repository interface {
		RecordingRepo
		ProgressRepo
		WatchStatsRepo
		UserRepo
		AccessTokenRepo

		// BackgroundJobs flushes cached writes to disk on a timer, runs forever.
		BackgroundJobs()
	}

	RecordingRepo interface {
		// GetRecordings returns all recordings, commercials included.
		GetRecordings(ctx context.Context) ([]model.Recording, error)
		// GetRecording returns one recording by id.
		GetRecording(ctx context.Context, recordingID string) (*model.Recording, error)
		// InsertRecording stores a recording and its commercial list.
		InsertRecording(ctx context.Context, r *model.Recording) error
		// SetRecordingStatus updates the lifecycle status of a recording.
		SetRecordingStatus(ctx context.Context, recordingID string, status model.RecordingStatus) error
	}

	ProgressRepo interface {
		// GetProgress returns the last known playback position in milliseconds.
		GetProgress(ctx context.Context, recordingID string) (int64, error)
		// UpdateProgress stores the playback position of a recording.
		UpdateProgress(ctx context.Context, recordingID string, positionMs int64) error
	}

	WatchStatsRepo interface {
		// StartWatchSession opens a watch-tracking entry.
		StartWatchSession(ctx context.Context, session *model.WatchSession) error
		// EndWatchSession closes a watch-tracking entry with the watched duration.
		EndWatchSession(ctx context.Context, sessionID string, watchedMs int64) error
		// GetWatchSessions returns the watch history of one content item.
		GetWatchSessions(ctx context.Context, contentID string) ([]model.WatchSession, error)
	}

	UserRepo interface {
		// GetUser retrieves a user by username.
		GetUser(ctx context.Context, username string) (*model.User, error)
		// GetUserByID retrieves a user by ID.
		GetUserByID(ctx context.Context, userID string) (*model.User, error)
		// UpsertUser upserts a user.
		UpsertUser(ctx context.Context, user *model.User) error
	}

	AccessTokenRepo interface {
		// CreateAccessToken creates a new token for a user.
		CreateAccessToken(ctx context.Context, userID, deviceName, remoteAddress string) (string, error)
		// GetAccessToken returns accesstoken details based upon tokenid.
		GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error)
	}
)

// New opens the sqlite-backed repository.
func New(o *Options) (Repository, error) {
	return sqlite.New(&sqlite.Options{
		Filename:     o.Filename,
		SyncInterval: o.SyncInterval,
	})
}
