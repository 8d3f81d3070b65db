package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	imageAccept      = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"
	proxyTimeout     = 10 * time.Second

	// Shopify's CDN rejects requests whose referer is not the
	// storefront itself.
	shopifyOrigin = "https://windupwatchshop.com"
)

// proxyImage relays a remote image through the server with spoofed
// browser headers to defeat hotlink protection. Foreground path:
// contract violations surface as distinguishable status classes
// instead of being swallowed.
func proxyImage() fiber.Handler {
	client := &http.Client{Timeout: proxyTimeout}

	return func(c *fiber.Ctx) error {
		target := c.Query("url")
		if target == "" {
			log.Error("No URL provided to proxy")
			return c.Status(fiber.StatusBadRequest).SendString("No URL provided")
		}

		parsed, err := url.Parse(target)
		if err != nil || parsed.Host == "" {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid URL")
		}
		domain := parsed.Host

		// Fratello's image paths contain characters its CDN expects
		// percent-encoded, except in the filename itself.
		if strings.Contains(domain, "fratellowatches.com") {
			target = encodeImagePath(target)
		}

		req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, target, nil)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid URL")
		}

		spoofHeaders(req, domain)

		resp, err := client.Do(req)
		if err != nil {
			log.WithFields(log.Fields{
				"url":   target,
				"error": err,
			}).Error("Request error proxying image")
			return c.Status(fiber.StatusBadGateway).SendString("Error fetching image")
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.WithFields(log.Fields{
				"url":    target,
				"status": resp.StatusCode,
			}).Error("Upstream error proxying image")
			return c.Status(fiber.StatusBadGateway).SendString("Error fetching image")
		}

		// Guard against relaying an error page as if it were an image.
		contentType := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			log.WithFields(log.Fields{
				"url":          target,
				"content_type": contentType,
			}).Error("Invalid content type for proxied image")
			return c.Status(fiber.StatusBadRequest).SendString("Invalid content type: " + contentType)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.WithFields(log.Fields{
				"url":   target,
				"error": err,
			}).Error("Error reading proxied image")
			return c.Status(fiber.StatusInternalServerError).SendString("Error proxying image")
		}

		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")

		return c.Send(body)
	}
}

// spoofHeaders makes the outbound request look like a browser visit
// coming from the image's own site. Shopify's CDN only accepts the
// storefront itself as the referer, so it gets a fixed origin.
func spoofHeaders(req *http.Request, domain string) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", imageAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	if strings.Contains(domain, "cdn.shopify.com") {
		req.Header.Set("Referer", shopifyOrigin+"/")
		req.Header.Set("Origin", shopifyOrigin)
	} else {
		req.Header.Set("Referer", "https://"+domain+"/")
		req.Header.Set("Origin", "https://"+domain)
	}
}

// encodeImagePath percent-encodes every path segment except the final
// filename segment, which stays verbatim.
func encodeImagePath(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	segments := strings.Split(parsed.Path, "/")
	encoded := make([]string, 0, len(segments))
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if i == len(segments)-1 {
			encoded = append(encoded, segment)
		} else {
			encoded = append(encoded, url.PathEscape(segment))
		}
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rebuilt := scheme + "://" + parsed.Host + "/" + strings.Join(encoded, "/")
	if parsed.RawQuery != "" {
		rebuilt += "?" + parsed.RawQuery
	}
	return rebuilt
}
