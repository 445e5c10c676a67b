package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"detaltap/internal/domain"
)

const (
	MaxVIN         = 64
	MaxOEM         = 64
	MaxName        = 120
	MaxDescription = 1000
	MaxQuery       = 50
	MaxReason      = 200
)

var (
	rePrice = regexp.MustCompile(`^[0-9]{1,12}(\.[0-9]{1,6})?$`)
)

// Price accepts a non-negative number such as "120", "99.50" or "99,50".
func Price(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !rePrice.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// Text trims s and clips it to max runes. Empty input is rejected.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return Clip(s, max), true
}

// Clip cuts s to at most max runes.
func Clip(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// VIN is stored verbatim apart from trimming; matching later is exact.
func VIN(s string) (string, bool) {
	return Text(s, MaxVIN)
}

// OEM maps "none" (any case) and empty input to domain.NoOEM.
func OEM(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, domain.NoOEM) {
		return domain.NoOEM, true
	}
	return Clip(s, MaxOEM), true
}

// Q validates a search query: trims and clips.
func Q(s string) (string, bool) {
	return Text(s, MaxQuery)
}

// ID parses a positive numeric identifier (listing ids, user ids).
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Page parses a zero-based page number; anything invalid is page 0.
func Page(s string) int {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return PageNumber(n)
}

// MaxPage bounds page numbers so offsets stay far from overflow.
const MaxPage = 100000

// PageNumber clamps n into [0, MaxPage].
func PageNumber(n int64) int {
	if n < 0 {
		return 0
	}
	if n > MaxPage {
		return MaxPage
	}
	return int(n)
}
