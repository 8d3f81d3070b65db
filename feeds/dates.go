package feeds

import (
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Formats seen in the wild that neither dateparse nor the RFC-822
// parser accept.
var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
}

// ParseDate parses heterogeneous feed timestamps. An unparseable or
// missing date falls back to now: an imprecise timestamp is preferred
// over dropping the entry.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}

	if parsed, err := dateparse.ParseAny(raw); err == nil {
		return parsed
	}

	if parsed, err := mail.ParseDate(raw); err == nil {
		return parsed
	}

	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return parsed
		}
	}

	return time.Now()
}
