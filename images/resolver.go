package images

import (
	"net/http"
	"strings"
	"time"

	"watchfeed/models"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	pageAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	pageTimeout      = 10 * time.Second
)

// contentBlocklist filters decorative images embedded in feed content.
var contentBlocklist = []string{"avatar", "logo", "icon"}

// pageBlocklist additionally filters banners and ads when probing the
// live article page, which carries far more chrome than feed content.
var pageBlocklist = []string{"avatar", "logo", "icon", "banner", "ad-"}

// highSignalMarkers mark srcs that are very likely the article's lead
// image rather than an arbitrary inline one.
var highSignalMarkers = []string{"large", "full", "original", "hero", "featured", "wp-content/uploads"}

// Resolver finds a representative image for a feed entry through a
// fixed cascade of strategies. The first strategy producing a usable
// absolute URL wins; there is no backtracking.
type Resolver struct {
	client *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: pageTimeout},
	}
}

// Resolve runs the image cascade for one entry. An empty result means
// the article has no image, which is not an error.
func (r *Resolver) Resolve(entry models.Entry, selector string) string {
	base := entry.Link
	if base == "" {
		return ""
	}

	strategies := []func() string{
		func() string { return firstUsable(entry.MediaContent, base) },
		func() string { return firstUsable(entry.MediaThumbnails, base) },
		func() string { return imageFromContent(inlineContent(entry), base) },
		func() string { return r.imageFromPage(base, selector) },
	}

	for _, strategy := range strategies {
		if found := strategy(); found != "" {
			return found
		}
	}

	return ""
}

func inlineContent(entry models.Entry) string {
	if entry.Content != "" {
		return entry.Content
	}
	return entry.Summary
}

func firstUsable(candidates []string, base string) string {
	for _, candidate := range candidates {
		if absolute, ok := ToAbsolute(candidate, base); ok {
			return absolute
		}
	}
	return ""
}

func blocked(src string, blocklist []string) bool {
	lower := strings.ToLower(src)
	for _, marker := range blocklist {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// imageFromContent scans the entry's inline HTML for the best <img>.
// High-signal srcs win over lazy-load attributes, which win over the
// first arbitrary non-decorative image.
func imageFromContent(content string, base string) string {
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var highSignal, lazy, first string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src != "" && !blocked(src, contentBlocklist) {
			lower := strings.ToLower(src)
			for _, marker := range highSignalMarkers {
				if strings.Contains(lower, marker) {
					highSignal = src
					return false
				}
			}
			if first == "" {
				first = src
			}
		}

		if lazy == "" {
			if dataSrc, ok := img.Attr("data-src"); ok && !blocked(dataSrc, contentBlocklist) {
				lazy = dataSrc
			} else if dataLazy, ok := img.Attr("data-lazy-src"); ok && !blocked(dataLazy, contentBlocklist) {
				lazy = dataLazy
			}
		}
		return true
	})

	for _, candidate := range []string{highSignal, lazy, first} {
		if candidate == "" {
			continue
		}
		if absolute, ok := ToAbsolute(candidate, base); ok {
			return absolute
		}
	}
	return ""
}

// imageFromPage fetches the live article page and probes it for a lead
// image. Any failure degrades to "no image".
func (r *Resolver) imageFromPage(pageURL string, selector string) string {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", pageAccept)

	resp, err := r.client.Do(req)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   pageURL,
			"error": err,
		}).Warn("Error fetching article page for image")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	candidates := []func() string{
		func() string { return fromSelector(doc, selector) },
		func() string { return metaContent(doc, "og:image") },
		func() string { return metaContent(doc, "twitter:image") },
		func() string { return featuredImage(doc) },
		func() string { return firstPageImage(doc) },
	}

	for _, candidate := range candidates {
		if found := candidate(); found != "" {
			if absolute, ok := ToAbsolute(found, pageURL); ok {
				return absolute
			}
		}
	}
	return ""
}

// fromSelector honors a per-source selector hint from the config.
// Meta selections yield their content attribute, anything else its src.
func fromSelector(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	selection := doc.Find(selector).First()
	if selection.Length() == 0 {
		return ""
	}
	if goquery.NodeName(selection) == "meta" {
		content, _ := selection.Attr("content")
		return content
	}
	src, _ := selection.Attr("src")
	return src
}

func metaContent(doc *goquery.Document, property string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		prop, _ := meta.Attr("property")
		name, _ := meta.Attr("name")
		if prop == property || name == property {
			if value, ok := meta.Attr("content"); ok && value != "" {
				content = value
				return false
			}
		}
		return true
	})
	return content
}

func featuredImage(doc *goquery.Document) string {
	var src string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		class, _ := img.Attr("class")
		lower := strings.ToLower(class)
		if strings.Contains(lower, "featured") || strings.Contains(lower, "hero") {
			if value, ok := img.Attr("src"); ok && value != "" {
				src = value
				return false
			}
		}
		return true
	})
	return src
}

func firstPageImage(doc *goquery.Document) string {
	var src string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if value, ok := img.Attr("src"); ok && value != "" && !blocked(value, pageBlocklist) {
			src = value
			return false
		}
		return true
	})
	return src
}
