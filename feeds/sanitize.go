package feeds

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

const (
	summaryLimit = 200
	maxTagLength = 50
)

// Summarize strips HTML from a feed entry's description, removes
// embedded images and truncates the plain text to the summary limit.
func Summarize(content string) string {
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	doc.Find("img").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(text) > summaryLimit {
		return string([]rune(text)[:summaryLimit]) + "..."
	}
	return text
}

// CleanTags deduplicates tag values and drops empty or overlong ones.
func CleanTags(tags []string) []string {
	trimmed := lo.Map(tags, func(tag string, _ int) string {
		return strings.TrimSpace(tag)
	})
	kept := lo.Filter(trimmed, func(tag string, _ int) bool {
		return tag != "" && utf8.RuneCountInString(tag) < maxTagLength
	})
	return lo.Uniq(kept)
}
