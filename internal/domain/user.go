package domain

import (
	"strconv"
	"time"
)

type Ban struct {
	UserID   int64     `json:"user_id"`
	Reason   string    `json:"reason"`
	BannedBy int64     `json:"banned_by"`
	BannedAt time.Time `json:"banned_at"`
}

func FormatUserID(id int64) string { return strconv.FormatInt(id, 10) }
