package normalize

import (
	"testing"
	"time"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/provider"
)

func webResponse(results ...provider.WebResult) *provider.Response {
	return &provider.Response{
		Web: &provider.WebSection{Total: len(results), Results: results},
	}
}

func TestWebResultsDropsBlankTitles(t *testing.T) {
	n := New(nil, nil)
	resp := webResponse(
		provider.WebResult{Title: "Kept", URL: "https://usa.gov/a"},
		provider.WebResult{Title: "   ", URL: "https://usa.gov/b"},
		provider.WebResult{URL: "https://usa.gov/c"},
	)

	records := n.WebResults(resp, core.TenantScope{})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Title != "Kept" {
		t.Errorf("expected Kept, got %q", records[0].Title)
	}
	if records[0].Provenance != core.ProvenanceProvider {
		t.Errorf("expected provider provenance, got %q", records[0].Provenance)
	}
}

func TestWebResultsGlobalDomainExclusion(t *testing.T) {
	n := New(func() []string { return []string{"blocked.gov"} }, nil)
	resp := webResponse(
		provider.WebResult{Title: "Fine", URL: "https://usa.gov/a"},
		provider.WebResult{Title: "Blocked", URL: "https://blocked.gov/page"},
		provider.WebResult{Title: "Subdomain", URL: "https://www.blocked.gov/page"},
	)

	records := n.WebResults(resp, core.TenantScope{})
	if len(records) != 1 || records[0].Title != "Fine" {
		t.Errorf("expected only Fine to survive, got %v", records)
	}
}

func TestWebResultsTenantURLExclusion(t *testing.T) {
	n := New(nil, nil)
	scope := core.TenantScope{ExcludedURLs: []string{"https://usa.gov/old"}}
	resp := webResponse(
		provider.WebResult{Title: "Old", URL: "https://usa.gov/old"},
		provider.WebResult{Title: "New", URL: "https://usa.gov/new"},
	)

	records := n.WebResults(resp, scope)
	if len(records) != 1 || records[0].Title != "New" {
		t.Errorf("expected only New to survive, got %v", records)
	}
}

func TestWebResultsDeepLinksAndPublishedAt(t *testing.T) {
	known := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	n := New(nil, func(url string) (time.Time, bool) {
		if url == "https://usa.gov/a" {
			return known, true
		}
		return time.Time{}, false
	})
	resp := webResponse(provider.WebResult{
		Title: "A",
		URL:   "https://usa.gov/a",
		DeepLinks: []provider.DeepLink{
			{Title: "Sub", URL: "https://usa.gov/a/sub"},
		},
	})

	records := n.WebResults(resp, core.TenantScope{})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(records[0].DeepLinks) != 1 || records[0].DeepLinks[0].Title != "Sub" {
		t.Errorf("deep links not mapped: %v", records[0].DeepLinks)
	}
	if records[0].PublishedAt == nil || !records[0].PublishedAt.Equal(known) {
		t.Errorf("published date not backfilled: %v", records[0].PublishedAt)
	}
}

func TestWebResultsNilSections(t *testing.T) {
	n := New(nil, nil)
	if got := n.WebResults(nil, core.TenantScope{}); got != nil {
		t.Errorf("nil response should yield nil, got %v", got)
	}
	if got := n.WebResults(&provider.Response{}, core.TenantScope{}); got != nil {
		t.Errorf("missing web section should yield nil, got %v", got)
	}
}

func TestImageResultsThumbnailMerge(t *testing.T) {
	n := New(nil, nil)
	resp := &provider.Response{
		Image: &provider.ImageSection{
			Total: 1,
			Results: []provider.ImageResult{{
				Title:       "Flag",
				URL:         "https://usa.gov/flag",
				MediaURL:    "https://usa.gov/flag.png",
				ContentType: "image/png",
				Width:       800,
				Height:      600,
				Thumbnail: &provider.ThumbnailInfo{
					URL: "https://usa.gov/flag_t.png",
				},
			}},
		},
	}

	records := n.ImageResults(resp, core.TenantScope{})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	thumb := records[0].Thumbnail
	if thumb == nil {
		t.Fatal("expected thumbnail")
	}
	if thumb.URL != "https://usa.gov/flag_t.png" || thumb.MediaURL != "https://usa.gov/flag.png" {
		t.Errorf("thumbnail descriptor not merged: %+v", thumb)
	}
	if thumb.Width != 800 || thumb.ContentType != "image/png" {
		t.Errorf("image metadata not carried: %+v", thumb)
	}
}

func TestCleanSuggestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "taxes", "taxes"},
		{"highlights", "taxes due", "taxes due"},
		{"scope disclosure", "taxes (scopeid:usagovall OR site:gov)", "taxes"},
		{"dashes and parens", "tax-form (irs)", "taxform irs"},
		{"whitespace collapse", "  tax   form ", "tax form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSuggestion(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSpellingSuggestion(t *testing.T) {
	n := New(nil, nil)
	resp := &provider.Response{
		Spell: &provider.SpellSection{
			Results: []provider.SpellResult{{Value: "benefits"}},
		},
	}

	if got := n.SpellingSuggestion(resp, "benifits"); got != "benefits" {
		t.Errorf("expected benefits, got %q", got)
	}
}

func TestSpellingSuggestionSuppressedWhenIdentical(t *testing.T) {
	n := New(nil, nil)
	resp := &provider.Response{
		Spell: &provider.SpellSection{
			Results: []provider.SpellResult{{Value: "tax-form"}},
		},
	}

	// After cleanup both sides become "taxform".
	if got := n.SpellingSuggestion(resp, "taxform"); got != "" {
		t.Errorf("identical suggestion should be suppressed, got %q", got)
	}
}

func TestSpellingSuggestionAbsent(t *testing.T) {
	n := New(nil, nil)
	if got := n.SpellingSuggestion(&provider.Response{}, "q"); got != "" {
		t.Errorf("expected empty suggestion, got %q", got)
	}
	if got := n.SpellingSuggestion(nil, "q"); got != "" {
		t.Errorf("expected empty suggestion for nil response, got %q", got)
	}
}

func TestStripHighlights(t *testing.T) {
	in := "Tax Forms"
	if got := StripHighlights(in); got != "Tax Forms" {
		t.Errorf("expected %q, got %q", "Tax Forms", got)
	}
}
