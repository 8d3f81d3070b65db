package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeImagePath(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "plain path unchanged",
			url:      "https://www.fratellowatches.com/wp-content/uploads/watch.jpg",
			expected: "https://www.fratellowatches.com/wp-content/uploads/watch.jpg",
		},
		{
			name:     "directory segments encoded, filename verbatim",
			url:      "https://www.fratellowatches.com/wp content/my uploads/my watch.jpg",
			expected: "https://www.fratellowatches.com/wp%20content/my%20uploads/my watch.jpg",
		},
		{
			name:     "special characters in directory segments",
			url:      "https://www.fratellowatches.com/images (new)/watch (1).jpg",
			expected: "https://www.fratellowatches.com/images%20(new)/watch (1).jpg",
		},
		{
			name:     "directory named like the filename still encoded",
			url:      "https://www.fratellowatches.com/a b/a b",
			expected: "https://www.fratellowatches.com/a%20b/a b",
		},
		{
			name:     "query preserved",
			url:      "https://www.fratellowatches.com/wp content/watch.jpg?v=12345",
			expected: "https://www.fratellowatches.com/wp%20content/watch.jpg?v=12345",
		},
		{
			name:     "trailing slash dropped with last segment encoded",
			url:      "https://www.fratellowatches.com/wp content/uploads/",
			expected: "https://www.fratellowatches.com/wp%20content/uploads",
		},
		{
			name:     "scheme-less input gets https",
			url:      "//www.fratellowatches.com/wp content/watch.jpg",
			expected: "https://www.fratellowatches.com/wp%20content/watch.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeImagePath(tt.url))
		})
	}
}

func TestSpoofHeaders(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		referer string
		origin  string
	}{
		{
			name:    "referer derived from the target domain",
			domain:  "www.ablogtowatch.com",
			referer: "https://www.ablogtowatch.com/",
			origin:  "https://www.ablogtowatch.com",
		},
		{
			name:    "shopify cdn gets the storefront origin",
			domain:  "cdn.shopify.com",
			referer: "https://windupwatchshop.com/",
			origin:  "https://windupwatchshop.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "https://"+tt.domain+"/watch.jpg", nil)
			require.NoError(t, err)

			spoofHeaders(req, tt.domain)

			assert.Equal(t, tt.referer, req.Header.Get("Referer"))
			assert.Equal(t, tt.origin, req.Header.Get("Origin"))
			assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla/5.0")
			assert.Contains(t, req.Header.Get("Accept"), "image/")
		})
	}
}
