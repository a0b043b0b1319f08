package sqlite

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/recast-tv/recast-server/database/model"
)

// CreateAccessToken creates a new token for a user.
func (s *SqliteRepo) CreateAccessToken(ctx context.Context, userID, deviceName, remoteAddress string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := rand.Text()
	t := &model.AccessToken{
		Token:         token,
		UserID:        userID,
		DeviceName:    deviceName,
		RemoteAddress: remoteAddress,
		Created:       time.Now().UTC(),
		LastUsed:      time.Now().UTC(),
	}
	// Store accesstoken in database
	if err := s.storeToken(t); err != nil {
		return "", err
	}

	// Store accesstoken in memory
	s.accessTokenCache[token] = t

	return token, nil
}

// GetAccessToken returns accesstoken details based upon tokenid.
func (s *SqliteRepo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try our in-memory store first
	if at, ok := s.accessTokenCache[token]; ok {
		// Update token timestamp so we can keep track of in-use tokens
		at.LastUsed = time.Now().UTC()
		return at, nil
	}

	// try database
	var t model.AccessToken
	sqlerr := s.dbReadHandle.Get(&t,
		"SELECT userid, token, devicename, remoteaddress, created, lastused FROM accesstokens WHERE token=? LIMIT 1", token)
	if sqlerr == nil {
		t.LastUsed = time.Now().UTC()
		s.accessTokenCache[token] = &t
		return &t, nil
	}

	return nil, model.ErrNotFound
}

// loadAccessTokensFromDB primes the in-memory token cache.
func (s *SqliteRepo) loadAccessTokensFromDB() {
	var tokens []model.AccessToken
	if err := s.dbReadHandle.Select(&tokens,
		"SELECT userid, token, devicename, remoteaddress, created, lastused FROM accesstokens"); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range tokens {
		s.accessTokenCache[tokens[i].Token] = &tokens[i]
	}
	s.accessTokenCacheSyncTime = time.Now().UTC()
}

// writeAccessTokensToDB writes updated access tokens to db to persist last use date.
func (s *SqliteRepo) writeAccessTokensToDB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, value := range s.accessTokenCache {
		if value.LastUsed.After(s.accessTokenCacheSyncTime) {
			if err := s.storeToken(value); err != nil {
				return err
			}
		}
	}
	s.accessTokenCacheSyncTime = time.Now().UTC()
	return nil
}

// storeToken stores an access token in the database. Caller holds the lock.
func (s *SqliteRepo) storeToken(t *model.AccessToken) error {
	if s.dbWriteHandle == nil {
		return model.ErrNoDbHandle
	}
	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO accesstokens (userid, token, devicename, remoteaddress, created, lastused)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Token, t.DeviceName, t.RemoteAddress, t.Created, t.LastUsed)
	if err != nil {
		return err
	}
	return tx.Commit()
}
