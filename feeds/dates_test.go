package feeds_test

import (
	"testing"
	"time"

	"watchfeed/feeds"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{
			name:     "rfc3339",
			raw:      "2024-06-01T10:30:00Z",
			expected: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "rfc1123z email style",
			raw:      "Sat, 01 Jun 2024 10:30:00 +0000",
			expected: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "space separated",
			raw:      "2024-06-01 10:30:00",
			expected: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := feeds.ParseDate(tt.raw)
			assert.True(t, tt.expected.Equal(parsed), "got %v", parsed)
		})
	}
}

func TestParseDateFallsBackToNow(t *testing.T) {
	for _, raw := range []string{"", "not a date at all"} {
		parsed := feeds.ParseDate(raw)
		assert.WithinDuration(t, time.Now(), parsed, 5*time.Second, "input %q", raw)
	}
}
