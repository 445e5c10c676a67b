package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"detaltap/internal/domain"
)

// SessionRepo persists conversation sessions so a restart does not drop half-finished uploads.
// A session idle for longer than TTL is treated as absent. TTL <= 0 disables expiry.
type SessionRepo struct {
	db  *sqlx.DB
	TTL time.Duration
	Now func() time.Time
}

func NewSessionRepo(db *sqlx.DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, TTL: ttl, Now: time.Now}
}

func (r *SessionRepo) cutoff() int64 {
	if r.TTL <= 0 {
		return 0
	}
	return r.Now().Add(-r.TTL).UnixMilli()
}

func (r *SessionRepo) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	var row struct {
		Data      string `db:"data"`
		UpdatedAt int64  `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT data, updated_at FROM sessions WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError("session.get", err)
	}
	if c := r.cutoff(); c > 0 && row.UpdatedAt < c {
		if err := r.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	var s domain.Session
	if err := json.Unmarshal([]byte(row.Data), &s); err != nil {
		return nil, domain.StorageError("session.decode", err)
	}
	return &s, nil
}

func (r *SessionRepo) Set(ctx context.Context, s *domain.Session) error {
	s.UpdatedAt = r.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return domain.StorageError("session.encode", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions(user_id, data, updated_at) VALUES(?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, s.UserID, string(data), s.UpdatedAt.UnixMilli())
	return domain.StorageError("session.set", err)
}

func (r *SessionRepo) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return domain.StorageError("session.clear", err)
}

// Sweep deletes expired sessions and reports how many were removed.
func (r *SessionRepo) Sweep(ctx context.Context) (int, error) {
	c := r.cutoff()
	if c == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, c)
	if err != nil {
		return 0, domain.StorageError("session.sweep", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *SessionRepo) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sessions WHERE updated_at >= ?`, r.cutoff()); err != nil {
		return 0, domain.StorageError("session.len", err)
	}
	return n, nil
}
