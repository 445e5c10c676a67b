package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"detaltap/internal/domain"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingCols = `id, vin, oem, name, price, description, photo_ref, uploader_id, uploader_name, COALESCE(commit_token,'') AS commit_token, created_at`

type listingRow struct {
	ID           int64           `db:"id"`
	VIN          string          `db:"vin"`
	OEM          string          `db:"oem"`
	Name         string          `db:"name"`
	Price        decimal.Decimal `db:"price"`
	Description  string          `db:"description"`
	PhotoRef     string          `db:"photo_ref"`
	UploaderID   int64           `db:"uploader_id"`
	UploaderName string          `db:"uploader_name"`
	CommitToken  string          `db:"commit_token"`
	CreatedAt    int64           `db:"created_at"`
}

func (r listingRow) toDomain() domain.Listing {
	return domain.Listing{
		ID:           r.ID,
		VIN:          r.VIN,
		OEM:          r.OEM,
		Name:         r.Name,
		Price:        r.Price,
		Description:  r.Description,
		PhotoRef:     r.PhotoRef,
		UploaderID:   r.UploaderID,
		UploaderName: r.UploaderName,
		CommitToken:  r.CommitToken,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func toListings(rows []listingRow) []domain.Listing {
	out := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// Create inserts l and returns its id. A listing whose CommitToken was already
// committed is not inserted twice; the id of the existing row is returned instead.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) (int64, error) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	oem := l.OEM
	if oem == "" {
		oem = domain.NoOEM
	}
	token := sql.NullString{String: l.CommitToken, Valid: l.CommitToken != ""}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO listings(vin, oem, name, price, description, photo_ref, uploader_id, uploader_name, commit_token, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(commit_token) DO NOTHING
	`, l.VIN, oem, l.Name, l.Price.String(), l.Description, l.PhotoRef, l.UploaderID, l.UploaderName, token, l.CreatedAt.UnixMilli())
	if err != nil {
		return 0, domain.StorageError("listing.create", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.StorageError("listing.create", err)
	}
	if n == 0 {
		var id int64
		if err := r.db.GetContext(ctx, &id, `SELECT id FROM listings WHERE commit_token = ?`, l.CommitToken); err != nil {
			return 0, domain.StorageError("listing.create", err)
		}
		l.ID = id
		return id, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StorageError("listing.create", err)
	}
	l.ID = id
	l.OEM = oem
	return id, nil
}

func (r *ListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("listing.get", err)
	}
	l := row.toDomain()
	return &l, nil
}

// escapeLike makes q match literally inside a LIKE pattern using '\' as the escape.
func escapeLike(q string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
}

// SearchByKeyword matches q case-insensitively as a substring of name or description.
func (r *ListingRepo) SearchByKeyword(ctx context.Context, q string) ([]domain.Listing, error) {
	pat := "%" + escapeLike(foldText(strings.TrimSpace(q))) + "%"
	return r.selectMany(ctx, "listing.search.keyword", `
		SELECT `+listingCols+` FROM listings
		WHERE fold(name) LIKE ? ESCAPE '\' OR fold(description) LIKE ? ESCAPE '\'
		ORDER BY id DESC`, pat, pat)
}

func (r *ListingRepo) SearchByVIN(ctx context.Context, vin string) ([]domain.Listing, error) {
	return r.selectMany(ctx, "listing.search.vin", `
		SELECT `+listingCols+` FROM listings WHERE vin = ? ORDER BY id DESC`, strings.TrimSpace(vin))
}

func (r *ListingRepo) SearchByOEM(ctx context.Context, oem string) ([]domain.Listing, error) {
	return r.selectMany(ctx, "listing.search.oem", `
		SELECT `+listingCols+` FROM listings WHERE oem = ? ORDER BY id DESC`, strings.TrimSpace(oem))
}

func (r *ListingRepo) SearchByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Listing, error) {
	return r.selectMany(ctx, "listing.search.price", `
		SELECT `+listingCols+` FROM listings
		WHERE price >= ? AND price <= ?
		ORDER BY price ASC, id DESC`, min.InexactFloat64(), max.InexactFloat64())
}

func (r *ListingRepo) Page(ctx context.Context, limit, offset int) ([]domain.Listing, error) {
	return r.selectMany(ctx, "listing.page", `
		SELECT `+listingCols+` FROM listings ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (r *ListingRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM listings`); err != nil {
		return 0, domain.StorageError("listing.count", err)
	}
	return n, nil
}

func (r *ListingRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return domain.StorageError("listing.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats fills the listing counters as of now; bans and sessions are counted by their own stores.
func (r *ListingRepo) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	var s domain.Stats
	since := now.Add(-24 * time.Hour).UnixMilli()
	err := r.db.GetContext(ctx, &s, `
		SELECT
		  COUNT(*) AS listings,
		  COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS last_24h,
		  COUNT(DISTINCT uploader_id) AS sellers
		FROM listings`, since)
	if err != nil {
		return s, domain.StorageError("listing.stats", err)
	}
	return s, nil
}

func (r *ListingRepo) selectMany(ctx context.Context, op, query string, args ...any) ([]domain.Listing, error) {
	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.StorageError(op, err)
	}
	return toListings(rows), nil
}
