package assemble

import (
	"net/url"
	"strings"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/normalize"
)

// DropLocalDuplicates removes local-index records that duplicate an external
// result. A local record is a duplicate when its URL matches after trailing
// slash normalization, or when its request URI (path plus query string)
// matches and the highlight-stripped titles are equal.
func DropLocalDuplicates(local, external []core.ResultRecord) []core.ResultRecord {
	if len(local) == 0 || len(external) == 0 {
		return local
	}

	type externalKey struct {
		url   string
		path  string
		title string
	}
	keys := make([]externalKey, 0, len(external))
	for _, rec := range external {
		keys = append(keys, externalKey{
			url:   normalizeURL(rec.URL),
			path:  urlPath(rec.URL),
			title: normalize.StripHighlights(rec.Title),
		})
	}

	kept := local[:0:0]
	for _, rec := range local {
		u := normalizeURL(rec.URL)
		path := urlPath(rec.URL)
		title := normalize.StripHighlights(rec.Title)
		duplicate := false
		for _, key := range keys {
			if u == key.url || (path != "" && path == key.path && title == key.title) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, rec)
		}
	}
	return kept
}

func normalizeURL(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

func urlPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
