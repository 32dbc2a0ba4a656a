package core

import "time"

// Provenance tags which provider produced a ResultRecord.
type Provenance string

const (
	ProvenanceProvider Provenance = "provider"
	ProvenanceIndex    Provenance = "index"
)

// Link is a titled URL, used for deep links and featured collection entries.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Thumbnail describes an image result's preview asset.
type Thumbnail struct {
	URL         string `json:"url"`
	MediaURL    string `json:"media_url,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	FileSize    int    `json:"file_size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ResultRecord is the canonical normalized result unit. Records with a blank
// title or an excluded URL never reach the caller; the normalizer drops them
// before counting or pagination.
type ResultRecord struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	CacheURL    string     `json:"cache_url,omitempty"`
	DeepLinks   []Link     `json:"deep_links,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
	Provenance  Provenance `json:"provenance"`
}

// BoostedContent is a tenant-curated result promoted above provider results.
type BoostedContent struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// FeaturedCollection is a curated set of links surfaced for matching queries.
type FeaturedCollection struct {
	Title string `json:"title"`
	Links []Link `json:"links"`
}

// NewsItem is a single entry from a tenant news feed.
type NewsItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Feed        string    `json:"feed"`
	Video       bool      `json:"video"`
	PublishedAt time.Time `json:"published_at"`
}

// MedTopic is a matched medical topic summary.
type MedTopic struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Locale  string `json:"locale"`
}

// Agency is a matched government agency record.
type Agency struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	URL          string `json:"url"`
}
