package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mcpizza/internal/services/order"
)

// SessionStore keeps order sessions as JSONB snapshots
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*order.Session, error) {
	var data []byte
	err := s.db.Pool.QueryRow(ctx, GetSessionSQL, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	return order.UnmarshalSession(data)
}

func (s *SessionStore) Put(ctx context.Context, session *order.Session) error {
	data, err := session.Marshal()
	if err != nil {
		return err
	}

	var storeID *string
	if session.Store != nil {
		storeID = &session.Store.StoreID
	}

	err = s.db.Exec(ctx, UpsertSessionSQL,
		session.ID, storeID, session.ItemCount(), data, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// DeleteStale removes sessions untouched for longer than maxAge
func (s *SessionStore) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, DeleteStaleSessionsSQL, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
