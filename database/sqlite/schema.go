package sqlite

import (
	"log"

	"github.com/jmoiron/sqlx"
)

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		// Without this foreign key constraints won't be enforced and cascade deletes won't happen.
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS recordings (
id TEXT NOT NULL PRIMARY KEY,
title TEXT NOT NULL,
subtitle TEXT,
channelid TEXT NOT NULL,
channelname TEXT,
status TEXT NOT NULL,
starttime DATETIME NOT NULL,
endtime DATETIME,
path TEXT NOT NULL,
thumbnailpath TEXT);`,

		`CREATE INDEX IF NOT EXISTS recordings_status_idx ON recordings (status);`,

		`CREATE TABLE IF NOT EXISTS commercials (
recordingid TEXT NOT NULL,
ord INTEGER NOT NULL,
startms INTEGER NOT NULL,
endms INTEGER NOT NULL,
PRIMARY KEY (recordingid, ord),
FOREIGN KEY (recordingid) REFERENCES recordings(id) ON DELETE CASCADE
);`,

		`CREATE TABLE IF NOT EXISTS progress (
recordingid TEXT NOT NULL PRIMARY KEY,
position INTEGER NOT NULL,
timestamp DATETIME NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS watch_sessions (
id TEXT NOT NULL PRIMARY KEY,
contentid TEXT NOT NULL,
contenttype TEXT NOT NULL,
title TEXT,
started DATETIME NOT NULL,
watchedms INTEGER NOT NULL DEFAULT 0,
closed BOOLEAN NOT NULL DEFAULT FALSE);`,

		`CREATE INDEX IF NOT EXISTS watch_sessions_contentid_idx ON watch_sessions (contentid);`,

		`CREATE TABLE IF NOT EXISTS users (
id TEXT NOT NULL PRIMARY KEY,
username TEXT NOT NULL,
password TEXT NOT NULL,
created DATETIME,
lastlogin DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS users_name_idx ON users (username);`,

		`CREATE TABLE IF NOT EXISTS accesstokens (
userid TEXT NOT NULL,
token TEXT NOT NULL,
devicename TEXT,
remoteaddress TEXT,
created DATETIME,
lastused DATETIME,
PRIMARY KEY (token),
FOREIGN KEY (userid) REFERENCES users(id) ON DELETE CASCADE
);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			log.Printf("dbInitSchema error: %s\n", err)
			return err
		}
	}
	return nil
}
