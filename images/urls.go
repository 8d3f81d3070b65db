package images

import (
	"net/url"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ToAbsolute resolves a possibly relative URL against the given base.
// Returns false when no usable absolute URL can be produced.
func ToAbsolute(raw string, base string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, true
	}

	if strings.HasPrefix(raw, "//") {
		return "https:" + raw, true
	}

	parsedBase, err := url.Parse(base)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		log.WithFields(log.Fields{
			"base": base,
			"url":  raw,
		}).Warn("Cannot resolve URL against unparseable base")
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if strings.HasPrefix(raw, "/") {
		root := &url.URL{Scheme: parsedBase.Scheme, Host: parsedBase.Host}
		return root.ResolveReference(ref).String(), true
	}

	return parsedBase.ResolveReference(ref).String(), true
}

// A rewrite rule transforms a stored image URL for one source. Rules
// run in order; each receives the previous rule's output.
type rewriteRule func(string) string

var (
	shopifySizeSuffix = regexp.MustCompile(`_\d+x\d+\.`)
	shopifyVersion    = regexp.MustCompile(`\?v=\d+`)
)

// domainPrefix prepends the source's canonical domain to scheme-less
// URLs. Some feeds emit bare paths for their own assets.
func domainPrefix(domain string) rewriteRule {
	return func(u string) string {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u
		}
		return domain + "/" + strings.TrimLeft(u, "/")
	}
}

// cdnImageResize routes wp-content assets through the Cloudflare image
// optimization endpoint unless already routed.
func cdnImageResize(u string) string {
	if strings.Contains(u, "/wp-content/") && !strings.Contains(u, "/cdn-cgi/image/") {
		return strings.Replace(u, "/wp-content/", "/cdn-cgi/image/format=auto,quality=85/wp-content/", 1)
	}
	return u
}

// shopifyFullSize strips the WxH size suffix and version query from
// Shopify CDN URLs so the highest resolution asset is requested.
func shopifyFullSize(u string) string {
	if !strings.Contains(u, "//cdn.shopify.com/") {
		return u
	}
	u = shopifySizeSuffix.ReplaceAllString(u, ".")
	return shopifyVersion.ReplaceAllString(u, "")
}

// httpsFallback makes any remaining scheme-less URL absolute.
func httpsFallback(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + strings.TrimLeft(u, "/")
}

var sourceRules = map[string][]rewriteRule{
	"Fratello": {
		domainPrefix("https://www.fratellowatches.com"),
		cdnImageResize,
	},
	"Time+Tide": {
		domainPrefix("https://timeandtidewatches.com"),
		cdnImageResize,
	},
	"ABTW": {
		domainPrefix("https://www.ablogtowatch.com"),
	},
	"Worn & Wound": {
		domainPrefix("https://wornandwound.com"),
	},
	"Monochrome": {
		domainPrefix("https://monochrome-watches.com"),
	},
	"Windup Watch Shop": {
		domainPrefix("https://windupwatchshop.com"),
		shopifyFullSize,
	},
}

// ApplySourceRules rewrites a stored article image URL according to
// the source's rule chain. Applied once before persistence, not to
// every resolver candidate.
func ApplySourceRules(imageURL string, source string) string {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return ""
	}

	for _, rule := range sourceRules[source] {
		imageURL = rule(imageURL)
	}

	return httpsFallback(imageURL)
}
