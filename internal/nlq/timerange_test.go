package nlq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"siem-assistant/internal/common/logger"
)

func newTestResolver(t *testing.T) *TimeRangeResolver {
	return NewTimeRangeResolver(map[string]string{
		"last_hour":     "now-1h",
		"last_24_hours": "now-24h",
		"yesterday":     "now-1d/d",
		"last_week":     "now-7d",
	}, logger.NewTestLogger(t))
}

func TestResolveNamedRanges(t *testing.T) {
	resolver := newTestResolver(t)

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"underscored key matches spaced phrase", "events in the last hour", "now-1h"},
		{"yesterday", "failed logins yesterday", "now-1d/d"},
		{"last week", "malware in the last week", "now-7d"},
		{"last 24 hours", "activity in the last 24 hours", "now-24h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeRange := resolver.Resolve(tt.text)
			assert.Equal(t, tt.expected, timeRange["gte"])
			assert.Equal(t, "now", timeRange["lte"])
		})
	}
}

func TestResolveDateCues(t *testing.T) {
	resolver := newTestResolver(t)

	t.Run("from date to now", func(t *testing.T) {
		timeRange := resolver.Resolve("events since 2024-03-01")
		assert.Equal(t, "2024-03-01T00:00:00", timeRange["gte"])
		assert.Equal(t, "now", timeRange["lte"])
	})

	t.Run("until date gets 30 day lookback", func(t *testing.T) {
		timeRange := resolver.Resolve("events before 2024-03-15")
		assert.Equal(t, "now-30d", timeRange["gte"])
		assert.Equal(t, "2024-03-15T00:00:00", timeRange["lte"])
	})

	t.Run("on date is a whole day window", func(t *testing.T) {
		timeRange := resolver.Resolve("events on 2024-02-28")
		assert.Equal(t, "2024-02-28T00:00:00", timeRange["gte"])
		assert.Equal(t, "2024-02-29T00:00:00", timeRange["lte"])
	})
}

func TestResolveNamedRangeBeatsDateCue(t *testing.T) {
	resolver := newTestResolver(t)

	timeRange := resolver.Resolve("events yesterday since 2024-03-01")
	assert.Equal(t, "now-1d/d", timeRange["gte"])
}

func TestResolveDefaultsToLast24Hours(t *testing.T) {
	resolver := newTestResolver(t)

	timeRange := resolver.Resolve("show me all the things")
	assert.Equal(t, "now-24h", timeRange["gte"])
	assert.Equal(t, "now", timeRange["lte"])
}

func TestResolveSkipsUnparsableDates(t *testing.T) {
	resolver := newTestResolver(t)

	// 2024-13-45 matches the cue shape but is not a real date; the
	// resolver logs and falls through to the default window.
	timeRange := resolver.Resolve("events since 2024-13-45")
	assert.Equal(t, "now-24h", timeRange["gte"])
}
