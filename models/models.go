package models

import "time"

// Article is the persisted representation of a single feed entry.
// Link is the natural key; re-ingesting the same link overwrites the
// other fields.
type Article struct {
	Id        int64     `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary"`
	Published time.Time `json:"published"`
	Source    string    `json:"source"`
	ImageURL  string    `json:"image_url,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is the normalized intermediate shape of a raw feed item. All
// downstream processing (image resolution, sanitization) operates on
// this struct, never on the parser's own types.
type Entry struct {
	Title           string
	Link            string
	Published       string
	PublishedParsed *time.Time
	Updated         string
	UpdatedParsed   *time.Time
	Summary         string
	Content         string
	Categories      []string
	MediaContent    []string
	MediaThumbnails []string
}

// ArticleFilters are the optional query parameters of the articles
// API. Zero values mean "no filter".
type ArticleFilters struct {
	Search string
	Source string
	Tag    string
	Page   int
	Limit  int
}

// ArticlesResponse is the paginated articles API payload.
type ArticlesResponse struct {
	Articles []Article `json:"articles"`
	Page     int       `json:"page"`
	HasMore  bool      `json:"has_more"`
}
