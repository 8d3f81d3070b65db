package images

import (
	"net/http"
	"strings"
)

// Domains that intermittently serve error pages or HTML at image URLs.
// Everything else is trusted without a probe to keep ingestion cheap.
var probeDomains = []string{"ablogtowatch.com", "watchtime.com", "fratellowatches.com"}

// Validate checks that an image URL actually serves an image, using a
// HEAD request. Only URLs on known-problematic domains are probed.
func (r *Resolver) Validate(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	probe := false
	for _, domain := range probeDomains {
		if strings.Contains(lower, domain) {
			probe = true
			break
		}
	}
	if !probe {
		return true
	}

	req, err := http.NewRequest(http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return resp.StatusCode == http.StatusOK &&
		(strings.Contains(contentType, "image") || strings.HasSuffix(contentType, "/webp"))
}
