package validate_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"detaltap/internal/domain"
	"detaltap/internal/validate"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"120", "120", true},
		{" 99.50 ", "99.5", true},
		{"99,5", "99.5", true},
		{"0", "0", true},
		{"10.005", "10.01", true},
		{"-5", "", false},
		{"abc", "", false},
		{"", "", false},
		{"1e3", "", false},
		{"12 AZN", "", false},
	}
	for _, c := range cases {
		got, ok := validate.Price(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.Equal(t, c.want, got.String(), c.in)
		}
	}
}

func TestTextAndClip(t *testing.T) {
	_, ok := validate.Text("   ", 10)
	assert.False(t, ok)

	s, ok := validate.Text("  Front Brake Pads ", 10)
	assert.True(t, ok)
	assert.Equal(t, "Front Brak", s)

	assert.Equal(t, "Şəki", validate.Clip("Şəki maşın", 4), "clips runes, not bytes")
}

func TestCodes(t *testing.T) {
	v, ok := validate.VIN(" WDB2110421A123456 ")
	assert.True(t, ok)
	assert.Equal(t, "WDB2110421A123456", v)

	v, ok = validate.VIN(strings.Repeat("X", validate.MaxVIN+1))
	assert.True(t, ok)
	assert.Len(t, v, validate.MaxVIN)

	_, ok = validate.VIN("  ")
	assert.False(t, ok)

	o, ok := validate.OEM("NONE")
	assert.True(t, ok)
	assert.Equal(t, domain.NoOEM, o)

	o, ok = validate.OEM("0 986 494 104")
	assert.True(t, ok)
	assert.Equal(t, "0 986 494 104", o)

	o, ok = validate.OEM("")
	assert.True(t, ok)
	assert.Equal(t, domain.NoOEM, o)
}

func TestIDAndPage(t *testing.T) {
	id, ok := validate.ID("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = validate.ID("0")
	assert.False(t, ok)
	_, ok = validate.ID("x")
	assert.False(t, ok)

	assert.Equal(t, 3, validate.Page("3"))
	assert.Equal(t, 0, validate.Page("-1"))
	assert.Equal(t, 0, validate.Page("abc"))
	assert.Equal(t, validate.MaxPage, validate.Page("9223372036854775807"))

	assert.Equal(t, 7, validate.PageNumber(7))
	assert.Equal(t, 0, validate.PageNumber(-5))
	assert.Equal(t, validate.MaxPage, validate.PageNumber(math.MaxInt64))
}
