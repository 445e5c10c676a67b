package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoOEM is the marker sellers type when a part has no OEM code.
const NoOEM = "none"

type Listing struct {
	ID           int64           `json:"id"`
	VIN          string          `json:"vin"`
	OEM          string          `json:"oem"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	PhotoRef     string          `json:"photo_ref,omitempty"`
	UploaderID   int64           `json:"uploader_id"`
	UploaderName string          `json:"uploader_name,omitempty"`
	CommitToken  string          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SellerHandle is how the uploader is shown to buyers: @username when known, the numeric id otherwise.
func (l Listing) SellerHandle() string {
	if l.UploaderName != "" {
		return "@" + l.UploaderName
	}
	return FormatUserID(l.UploaderID)
}

type Stats struct {
	Listings       int `json:"listings" db:"listings"`
	Last24h        int `json:"last_24h" db:"last_24h"`
	Sellers        int `json:"sellers" db:"sellers"`
	Bans           int `json:"bans"`
	ActiveSessions int `json:"active_sessions"`
}
