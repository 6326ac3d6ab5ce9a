package timeutil_test

import (
	"testing"
	"time"

	"github.com/kevin07696/reconciliation-service/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := timeutil.ParseDate(time.RFC3339, "2026-08-01T09:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = timeutil.ParseDate(time.RFC3339, "not-a-date")
	assert.Error(t, err)
}

func TestInWindow(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, timeutil.InWindow(start, start, end), "start is inclusive")
	assert.True(t, timeutil.InWindow(end.Add(-time.Nanosecond), start, end))
	assert.False(t, timeutil.InWindow(end, start, end), "end is exclusive")
	assert.False(t, timeutil.InWindow(start.Add(-time.Nanosecond), start, end))
}

func TestNowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, timeutil.Now().Location())
}
