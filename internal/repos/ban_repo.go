package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"detaltap/internal/domain"
)

type BanRepo struct{ db *sqlx.DB }

func NewBanRepo(db *sqlx.DB) *BanRepo { return &BanRepo{db: db} }

// Ban records or refreshes a ban for b.UserID.
func (r *BanRepo) Ban(ctx context.Context, b domain.Ban) error {
	if b.BannedAt.IsZero() {
		b.BannedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bans(user_id, reason, banned_by, banned_at) VALUES(?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET reason = excluded.reason, banned_by = excluded.banned_by, banned_at = excluded.banned_at
	`, b.UserID, b.Reason, b.BannedBy, b.BannedAt.UnixMilli())
	return domain.StorageError("ban.save", err)
}

func (r *BanRepo) Unban(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bans WHERE user_id = ?`, userID)
	if err != nil {
		return domain.StorageError("ban.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BanRepo) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bans WHERE user_id = ?`, userID); err != nil {
		return false, domain.StorageError("ban.check", err)
	}
	return n > 0, nil
}

func (r *BanRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bans`); err != nil {
		return 0, domain.StorageError("ban.count", err)
	}
	return n, nil
}

// List returns bans newest first.
func (r *BanRepo) List(ctx context.Context) ([]domain.Ban, error) {
	var rows []struct {
		UserID   int64  `db:"user_id"`
		Reason   string `db:"reason"`
		BannedBy int64  `db:"banned_by"`
		BannedAt int64  `db:"banned_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT user_id, reason, banned_by, banned_at FROM bans ORDER BY banned_at DESC`); err != nil {
		return nil, domain.StorageError("ban.list", err)
	}
	out := make([]domain.Ban, 0, len(rows))
	for _, x := range rows {
		out = append(out, domain.Ban{UserID: x.UserID, Reason: x.Reason, BannedBy: x.BannedBy, BannedAt: time.UnixMilli(x.BannedAt).UTC()})
	}
	return out, nil
}
