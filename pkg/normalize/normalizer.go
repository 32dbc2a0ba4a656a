// Package normalize maps raw provider responses into canonical result
// records. It drops malformed and excluded results before they are counted or
// paginated, and cleans spelling suggestions of provider markup.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/provider"
)

// Provider highlight markers wrapping matched terms in titles, snippets and
// spelling suggestions.
const (
	highlightOpen  = ""
	highlightClose = ""
)

var scopeDisclosure = regexp.MustCompile(` \(scopeid.*$`)

// ExcludedDomainsFunc returns the current globally blacklisted domains. The
// list is refreshed out-of-band; staleness is tolerated.
type ExcludedDomainsFunc func() []string

// PublishedAtFunc looks up a locally-known publish date for a result URL,
// used to backfill dates the provider omits. A miss is not an error.
type PublishedAtFunc func(url string) (time.Time, bool)

// Normalizer converts provider responses to []core.ResultRecord. Both
// collaborator lookups are optional; a nil func disables that enrichment.
type Normalizer struct {
	excludedDomains ExcludedDomainsFunc
	publishedAt     PublishedAtFunc
}

// New builds a Normalizer with the given collaborator lookups.
func New(excludedDomains ExcludedDomainsFunc, publishedAt PublishedAtFunc) *Normalizer {
	return &Normalizer{
		excludedDomains: excludedDomains,
		publishedAt:     publishedAt,
	}
}

// WebResults maps the web section of a response. Results with a blank title
// or an excluded URL are dropped silently; placeholder results are common and
// must not surface.
func (n *Normalizer) WebResults(resp *provider.Response, scope core.TenantScope) []core.ResultRecord {
	if resp == nil || resp.Web == nil {
		return nil
	}
	records := make([]core.ResultRecord, 0, len(resp.Web.Results))
	for _, raw := range resp.Web.Results {
		if strings.TrimSpace(raw.Title) == "" {
			continue
		}
		if n.urlExcluded(raw.URL, scope) {
			continue
		}
		rec := core.ResultRecord{
			Title:      raw.Title,
			URL:        raw.URL,
			Snippet:    raw.Description,
			CacheURL:   raw.CacheURL,
			Provenance: core.ProvenanceProvider,
		}
		for _, dl := range raw.DeepLinks {
			rec.DeepLinks = append(rec.DeepLinks, core.Link{Title: dl.Title, URL: dl.URL})
		}
		if n.publishedAt != nil {
			if at, ok := n.publishedAt(raw.URL); ok {
				rec.PublishedAt = &at
			}
		}
		records = append(records, rec)
	}
	return records
}

// ImageResults maps the image section of a response, carrying thumbnail
// descriptors through.
func (n *Normalizer) ImageResults(resp *provider.Response, scope core.TenantScope) []core.ResultRecord {
	if resp == nil || resp.Image == nil {
		return nil
	}
	records := make([]core.ResultRecord, 0, len(resp.Image.Results))
	for _, raw := range resp.Image.Results {
		if strings.TrimSpace(raw.Title) == "" {
			continue
		}
		if n.urlExcluded(raw.URL, scope) {
			continue
		}
		rec := core.ResultRecord{
			Title:      raw.Title,
			URL:        raw.URL,
			Provenance: core.ProvenanceProvider,
			Thumbnail: &core.Thumbnail{
				MediaURL:    raw.MediaURL,
				Width:       raw.Width,
				Height:      raw.Height,
				FileSize:    raw.FileSize,
				ContentType: raw.ContentType,
			},
		}
		if raw.Thumbnail != nil {
			rec.Thumbnail.URL = raw.Thumbnail.URL
			if raw.Thumbnail.ContentType != "" {
				rec.Thumbnail.ContentType = raw.Thumbnail.ContentType
			}
		}
		records = append(records, rec)
	}
	return records
}

// SpellingSuggestion extracts the first spelling candidate, cleans provider
// markup and the scope-disclosure parenthetical, and suppresses suggestions
// identical to the cleaned original query.
func (n *Normalizer) SpellingSuggestion(resp *provider.Response, originalQuery string) string {
	candidate := ""
	if resp != nil {
		candidate = resp.FirstSpellingCandidate()
	}
	if candidate == "" {
		return ""
	}
	cleaned := CleanSuggestion(candidate)
	if cleaned == CleanSuggestion(originalQuery) {
		return ""
	}
	return cleaned
}

// CleanSuggestion strips highlight markers, a trailing "(scopeid..."
// disclosure, parentheses and dashes, and collapses whitespace.
func CleanSuggestion(s string) string {
	s = scopeDisclosure.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, highlightOpen, "")
	s = strings.ReplaceAll(s, highlightClose, "")
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.Join(strings.Fields(s), " ")
}

// StripHighlights removes only the provider highlight markers, leaving all
// other characters untouched. Used when comparing titles during dedup.
func StripHighlights(s string) string {
	s = strings.ReplaceAll(s, highlightOpen, "")
	return strings.ReplaceAll(s, highlightClose, "")
}

// urlExcluded reports whether rawurl is globally blacklisted by host suffix
// or matches a tenant excluded-URL entry exactly. An unparseable URL is only
// checked against the tenant list.
func (n *Normalizer) urlExcluded(rawurl string, scope core.TenantScope) bool {
	if n.excludedDomains != nil {
		if parsed, err := url.Parse(rawurl); err == nil && parsed.Host != "" {
			host := strings.ToLower(parsed.Host)
			for _, domain := range n.excludedDomains() {
				domain = strings.ToLower(strings.TrimSpace(domain))
				if domain != "" && strings.HasSuffix(host, domain) {
					return true
				}
			}
		}
	}
	return scope.URLExcluded(rawurl)
}
