package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAt(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		want time.Time
	}{
		{"1h", now.Add(-time.Hour)},
		{"1h30m", now.Add(-90 * time.Minute)},
		{"2026-10-17T09:00:00Z", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		{"2026-10-16", time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseAt(tt.spec, now)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.want.UnixMilli(), got, tt.spec)
	}

	for _, bad := range []string{"", "yesterday", "-1h"} {
		_, err := ParseAt(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	r, err := ParseRange("2h", "1h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour).UnixMilli(), r.SinceMs)
	assert.Equal(t, now.Add(-time.Hour).UnixMilli(), r.UntilMs)

	r, err = ParseRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, Range{}, r)

	_, err = ParseRange("1h", "2h", now)
	assert.ErrorContains(t, err, "--since must be before --until")

	_, err = ParseRange("bogus", "", now)
	assert.ErrorContains(t, err, "invalid --since")
}
