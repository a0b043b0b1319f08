package sqlite

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/recast-tv/recast-server/database/model"
)

type SqliteRepo struct {
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specifically for writes
	dbWriteHandle *sqlx.DB
	// in-memory access token store, entries written to the database on sync.
	accessTokenCache map[string]*model.AccessToken
	// last time the access token cache was synced to the database
	accessTokenCacheSyncTime time.Time
	// in-memory progress store, entries are written to the database on sync.
	progressEntries map[string]progressEntry
	// last time the progress entries were synced to the database
	progressSyncTime time.Time
	// how often the caches are flushed to the database
	syncInterval time.Duration
	// mutex to protect access to in-memory stores
	mu sync.Mutex
}

// progressEntry is the cached viewoffset of a recording.
type progressEntry struct {
	positionMs int64
	timestamp  time.Time
}

// Options holds configuration options
type Options struct {
	Filename string `yaml:"filename"`
	// SyncInterval is how often cached writes are flushed to disk.
	SyncInterval time.Duration `yaml:"syncinterval"`
}

// New initializes a sqlite database and creates schema if necessary.
func New(o *Options) (*SqliteRepo, error) {
	if o == nil || o.Filename == "" {
		return nil, model.ErrNoConfiguration
	}

	dbHandle, err := sqlx.Connect("sqlite3", o.Filename)
	if err != nil {
		return nil, err
	}
	dbHandle.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect("sqlite3", o.Filename)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, fmt.Errorf("schema init: %w", err)
	}

	syncInterval := o.SyncInterval
	if syncInterval == 0 {
		syncInterval = 10 * time.Second
	}

	d := &SqliteRepo{
		dbReadHandle:     dbHandle,
		dbWriteHandle:    writeDB,
		accessTokenCache: make(map[string]*model.AccessToken),
		progressEntries:  make(map[string]progressEntry),
		syncInterval:     syncInterval,
	}

	if err := d.loadProgressFromDB(); err != nil {
		return nil, err
	}
	d.loadAccessTokensFromDB()

	return d, nil
}

// BackgroundJobs flushes the in-memory stores to the database on a timer.
// Runs forever, start in a goroutine.
func (s *SqliteRepo) BackgroundJobs() {
	for {
		time.Sleep(s.syncInterval)
		if err := s.writeProgressToDB(); err != nil {
			log.Printf("Error writing progress to db: %s\n", err)
		}
		if err := s.writeAccessTokensToDB(); err != nil {
			log.Printf("Error writing access tokens to db: %s\n", err)
		}
	}
}
