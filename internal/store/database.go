package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tracker-backend/internal/db"
)

// DatabaseSessionStore keeps quick-update slot state in the
// quick_update_sessions table so conversations survive restarts and are
// shared between processes.
type DatabaseSessionStore struct {
	db      *db.DB
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	janitor *janitor
}

// NewDatabaseSessionStore creates a database session store. When ttl and
// sweepEvery are positive, expired rows are deleted in the background.
func NewDatabaseSessionStore(database *db.DB, ttl, sweepEvery time.Duration, logger *zap.Logger) *DatabaseSessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	ds := &DatabaseSessionStore{
		db:     database,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	if ttl > 0 && sweepEvery > 0 {
		ds.janitor = startJanitor(sweepEvery, func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepEvery)
			defer cancel()
			if n, err := ds.Sweep(ctx); err != nil {
				ds.logger.Warn("session sweep failed", zap.Error(err))
			} else if n > 0 {
				ds.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		})
	}
	return ds
}

// Get returns the slots stored for a session, ignoring expired rows.
func (ds *DatabaseSessionStore) Get(ctx context.Context, sessionID string) (map[string]string, bool, error) {
	if sessionID == "" {
		return nil, false, fmt.Errorf("session_id is required")
	}

	var raw string
	var updatedAt time.Time
	err := ds.db.QueryRowContext(ctx,
		`SELECT slots, updated_at FROM quick_update_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}
	if ds.ttl > 0 && ds.now().Sub(updatedAt) > ds.ttl {
		return nil, false, nil
	}

	slots := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return slots, true, nil
}

// Set saves or replaces the slots for a session
func (ds *DatabaseSessionStore) Set(ctx context.Context, sessionID string, slots map[string]string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	b, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	query := `
		INSERT INTO quick_update_sessions (session_id, slots, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id)
		DO UPDATE SET
			slots = EXCLUDED.slots,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := ds.db.ExecContext(ctx, query, sessionID, string(b), ds.now()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the slots for a session
func (ds *DatabaseSessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if _, err := ds.db.ExecContext(ctx, `DELETE FROM quick_update_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Sweep deletes rows older than the TTL.
func (ds *DatabaseSessionStore) Sweep(ctx context.Context) (int, error) {
	if ds.ttl <= 0 {
		return 0, nil
	}
	res, err := ds.db.ExecContext(ctx,
		`DELETE FROM quick_update_sessions WHERE updated_at < $1`,
		ds.now().Add(-ds.ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close stops the background sweeper; the database itself is owned by the
// caller.
func (ds *DatabaseSessionStore) Close() error {
	ds.janitor.stop()
	return nil
}
