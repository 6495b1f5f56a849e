package retriever

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveRelativeDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		expr string
		want string
	}{
		{"<<NOW>>", "2026-03-15T12:00:00Z"},
		{"<<NOW-7D>>", "2026-03-08T12:00:00Z"},
		{"<<NOW+3D>>", "2026-03-18T12:00:00Z"},
		{"<<NOW-2W>>", "2026-03-01T12:00:00Z"},
		{"<<NOW-1M>>", "2026-02-15T12:00:00Z"},
		{"<<NOW-1Y>>", "2025-03-15T12:00:00Z"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveRelativeDate(tc.expr, now), tc.expr)
	}
}

func TestResolveRelativeDatePassthrough(t *testing.T) {
	now := time.Now()

	// Absolute dates and malformed expressions are left untouched.
	assert.Equal(t, "2026-01-01T00:00:00Z", ResolveRelativeDate("2026-01-01T00:00:00Z", now))
	assert.Equal(t, "<<LATER>>", ResolveRelativeDate("<<LATER>>", now))
	assert.Equal(t, "<<NOW-7H>>", ResolveRelativeDate("<<NOW-7H>>", now))
	assert.Equal(t, "", ResolveRelativeDate("", now))
}

func TestResolveTimeRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	r := ResolveTimeRange("<<NOW-7D>>", "<<NOW>>", now)
	assert.Equal(t, "2026-03-08T12:00:00Z", r.From)
	assert.Equal(t, "2026-03-15T12:00:00Z", r.To)
	assert.False(t, r.Empty())

	assert.True(t, ResolveTimeRange("", "", now).Empty())
}
