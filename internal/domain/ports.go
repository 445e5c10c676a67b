package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ListingStore persists listings. Reads are newest first unless stated otherwise.
type ListingStore interface {
	Create(ctx context.Context, l *Listing) (int64, error)
	GetByID(ctx context.Context, id int64) (*Listing, error)
	SearchByKeyword(ctx context.Context, q string) ([]Listing, error)
	SearchByVIN(ctx context.Context, vin string) ([]Listing, error)
	SearchByOEM(ctx context.Context, oem string) ([]Listing, error)
	// SearchByPriceRange is inclusive at both bounds and ordered by ascending price.
	SearchByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]Listing, error)
	Page(ctx context.Context, limit, offset int) ([]Listing, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
	// Stats counts Last24h relative to now.
	Stats(ctx context.Context, now time.Time) (Stats, error)
}

// SessionStore holds at most one live session per user.
// Get returns nil, nil when the user has no live session.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Clear(ctx context.Context, userID int64) error
	Sweep(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}

type BanStore interface {
	Ban(ctx context.Context, b Ban) error
	Unban(ctx context.Context, userID int64) error
	IsBanned(ctx context.Context, userID int64) (bool, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]Ban, error)
}

// Transport delivers units to users. Send reports ErrDelivery when the recipient cannot be reached.
type Transport interface {
	Send(ctx context.Context, userID int64, u Unit) error
	Answer(ctx context.Context, callbackID, text string) error
	FetchImage(ctx context.Context, fileID string) ([]byte, error)
}

// ImageStore keeps raw image bytes and hands back an opaque reference.
type ImageStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Open(ref string) (io.ReadCloser, error)
}
