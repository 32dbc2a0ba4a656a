package assemble

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedsearch/fedsearch/pkg/cache"
	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/index"
	"github.com/fedsearch/fedsearch/pkg/provider"
	"github.com/fedsearch/fedsearch/pkg/tenant"
)

const testTenants = `
[tenants.usagov]
domains = ["usa.gov"]
local_index_eligible = true
agency_enabled = true
medline_enabled = true
govbox_feeds = ["press", "video:briefings"]

[tenants.localonly]
domains = ["local.gov"]
local_index_only = true

[tenants.plain]
domains = ["plain.gov"]
`

const emptyProviderBody = `{"SearchResponse": {}}`

const oneHitBody = `{
	"SearchResponse": {
		"Web": {
			"Total": 25,
			"Offset": 0,
			"Results": [
				{"Title": "Benefits", "Url": "https://usa.gov/benefits", "Description": "federal benefits"},
				{"Title": "More benefits", "Url": "https://usa.gov/more", "Description": "more"}
			]
		}
	}
}`

type stack struct {
	assembler *Assembler
	store     *index.Store
	calls     *atomic.Int64
}

func newStack(t *testing.T, handler http.HandlerFunc) *stack {
	t.Helper()

	tenantsPath := filepath.Join(t.TempDir(), "tenants.toml")
	if err := os.WriteFile(tenantsPath, []byte(testTenants), 0644); err != nil {
		t.Fatalf("writing tenants: %v", err)
	}
	tenants, err := tenant.Load(tenantsPath)
	if err != nil {
		t.Fatalf("loading tenants: %v", err)
	}

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing index: %v", err)
		}
	})

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := provider.NewClient(server.URL, "test-app", time.Second)
	responseCache := cache.New(cache.NewMemoryBackend(64, time.Minute), time.Minute)
	t.Cleanup(func() {
		if err := responseCache.Close(); err != nil {
			t.Errorf("closing cache: %v", err)
		}
	})

	return &stack{
		assembler: New(tenants, responseCache, client, store, nil),
		store:     store,
		calls:     &calls,
	}
}

func serveBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(body)); err != nil {
			panic(err)
		}
	}
}

func TestSearchWeb(t *testing.T) {
	var gotQuery string
	s := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		if _, err := w.Write([]byte(oneHitBody)); err != nil {
			t.Errorf("writing body: %v", err)
		}
	})

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if gotQuery != "(benefits) (site:usa.gov)" {
		t.Errorf("unexpected provider query: %q", gotQuery)
	}
	if page.Total != 25 {
		t.Errorf("expected total 25, got %d", page.Total)
	}
	if len(page.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(page.Results))
	}
	if page.StartRecord != 1 || page.EndRecord != 2 {
		t.Errorf("expected records 1-2, got %d-%d", page.StartRecord, page.EndRecord)
	}
	if page.Error != "" {
		t.Errorf("unexpected error indicator: %q", page.Error)
	}
	if !slices.Contains(page.ModuleTags(), core.ModuleWeb) {
		t.Errorf("expected web module tag, got %v", page.ModuleTags())
	}
}

func TestSearchServesRepeatFromCache(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))
	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)

	for i := 0; i < 3; i++ {
		if _, err := s.assembler.Search(context.Background(), req); err != nil {
			t.Fatalf("search %d failed: %v", i, err)
		}
	}

	if got := s.calls.Load(); got != 1 {
		t.Errorf("expected 1 provider call, got %d", got)
	}
}

func TestSearchPaginationChangesCacheKey(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	first := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	if _, err := s.assembler.Search(context.Background(), first); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	second := first
	second.Page = 2
	if _, err := s.assembler.Search(context.Background(), second); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if got := s.calls.Load(); got != 2 {
		t.Errorf("expected 2 provider calls for distinct pages, got %d", got)
	}
}

func TestProviderFailureDegrades(t *testing.T) {
	s := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("provider failure must not fail the request: %v", err)
	}

	if page.Error == "" {
		t.Error("expected error indicator on degraded page")
	}
	if page.Total != 0 || len(page.Results) != 0 {
		t.Errorf("degraded page should be empty, got total=%d results=%d", page.Total, len(page.Results))
	}
	if page.StartRecord != 0 || page.EndRecord != 0 {
		t.Errorf("degraded page should have zero records, got %d-%d", page.StartRecord, page.EndRecord)
	}
}

func TestFallbackToLocalIndexOnZeroHits(t *testing.T) {
	s := newStack(t, serveBody(emptyProviderBody))

	doc := index.Document{Tenant: "usagov", URL: "https://usa.gov/benefits", Title: "Benefits", Body: "federal benefits info"}
	if err := s.store.AddDocument(doc); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if !page.FromLocalIndex {
		t.Error("expected fallback to local index")
	}
	if page.Total != 1 || len(page.Results) != 1 {
		t.Errorf("expected 1 local hit, got total=%d results=%d", page.Total, len(page.Results))
	}
	if page.Results[0].Provenance != core.ProvenanceIndex {
		t.Errorf("expected index provenance, got %q", page.Results[0].Provenance)
	}
}

func TestNoFallbackForImageVertical(t *testing.T) {
	s := newStack(t, serveBody(emptyProviderBody))

	doc := index.Document{Tenant: "usagov", URL: "https://usa.gov/benefits", Title: "Benefits", Body: "federal benefits info"}
	if err := s.store.AddDocument(doc); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalImage)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.FromLocalIndex {
		t.Error("image vertical must not fall back to the document index")
	}
	if page.Total != 0 || len(page.Results) != 0 {
		t.Errorf("expected empty image page, got total=%d results=%d", page.Total, len(page.Results))
	}
}

func TestNoFallbackForIneligibleTenant(t *testing.T) {
	s := newStack(t, serveBody(emptyProviderBody))

	doc := index.Document{Tenant: "plain", URL: "https://plain.gov/a", Title: "Benefits", Body: "benefits"}
	if err := s.store.AddDocument(doc); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "plain", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.FromLocalIndex {
		t.Error("ineligible tenant must not fall back")
	}
	if page.Total != 0 {
		t.Errorf("expected empty page, got %d", page.Total)
	}
}

func TestNoFallbackWhenProviderHasHits(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	doc := index.Document{Tenant: "usagov", URL: "https://usa.gov/local", Title: "Local", Body: "benefits"}
	if err := s.store.AddDocument(doc); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.FromLocalIndex {
		t.Error("provider hits must not be replaced by local results")
	}
	if page.Total != 25 {
		t.Errorf("expected provider total, got %d", page.Total)
	}
}

func TestNoSpellingSuggestionOnZeroHits(t *testing.T) {
	spellOnlyBody := `{"SearchResponse": {"Spell": {"Results": [{"Value": "benefits"}]}}}`
	s := newStack(t, serveBody(spellOnlyBody))

	req := core.NewSearchRequest("benifits", "plain", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.SpellingSuggestion != "" {
		t.Errorf("zero-hit page must not carry a suggestion, got %q", page.SpellingSuggestion)
	}
	if tags := page.ModuleTags(); slices.Contains(tags, core.ModuleSpelling) {
		t.Errorf("zero-hit page must not carry spelling tags, got %v", tags)
	}
}

func TestSpellingSuggestionWithHits(t *testing.T) {
	body := `{
		"SearchResponse": {
			"Web": {
				"Total": 5,
				"Results": [{"Title": "Benefits", "Url": "https://usa.gov/benefits", "Description": "info"}]
			},
			"Spell": {"Results": [{"Value": "benefits"}]}
		}
	}`
	s := newStack(t, serveBody(body))

	req := core.NewSearchRequest("benifits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.SpellingSuggestion != "benefits" {
		t.Errorf("expected suggestion on a page with hits, got %q", page.SpellingSuggestion)
	}
}

func TestLocalIndexOnlyTenantSkipsProvider(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	doc := index.Document{Tenant: "localonly", URL: "https://local.gov/a", Title: "Benefits", Body: "benefits"}
	if err := s.store.AddDocument(doc); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "localonly", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if got := s.calls.Load(); got != 0 {
		t.Errorf("provider should not be called, got %d calls", got)
	}
	if !page.FromLocalIndex || page.Total != 1 {
		t.Errorf("expected 1 local hit, got fromLocal=%v total=%d", page.FromLocalIndex, page.Total)
	}
}

func TestSupplementaryModulesFirstPageOnly(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	if err := s.store.AddBoostedContent("usagov", "Benefit finder", "https://usa.gov/finder", "", "benefits"); err != nil {
		t.Fatalf("seeding boosted: %v", err)
	}

	first := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), first)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(page.Boosted) != 1 {
		t.Errorf("expected boosted content on first page, got %v", page.Boosted)
	}

	second := first
	second.Page = 2
	page, err = s.assembler.Search(context.Background(), second)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(page.Boosted) != 0 {
		t.Errorf("page 2 should skip supplementary modules, got %v", page.Boosted)
	}
}

func TestSupplementaryModulesMerged(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	if err := s.store.AddAgency("Centers for Disease Control", "CDC", "https://cdc.gov", []string{"flu"}); err != nil {
		t.Fatalf("seeding agency: %v", err)
	}
	if err := s.store.AddMedTopic("en", "Influenza", "About the flu", "https://medlineplus.gov/flu", []string{"flu"}); err != nil {
		t.Fatalf("seeding med topic: %v", err)
	}
	if err := s.store.AddBoostedContent("usagov", "Flu shots", "https://usa.gov/flu-shots", "", "flu"); err != nil {
		t.Fatalf("seeding boosted: %v", err)
	}
	if err := s.store.AddSaytSuggestion("usagov", "flu symptoms"); err != nil {
		t.Fatalf("seeding suggestion: %v", err)
	}
	news := index.NewsEntry{Tenant: "usagov", Feed: "press", Title: "Flu season update", Link: "https://usa.gov/n1", PublishedAt: time.Now().UTC()}
	if err := s.store.AddNewsItem(news); err != nil {
		t.Fatalf("seeding news: %v", err)
	}
	video := index.NewsEntry{Tenant: "usagov", Feed: "briefings", Video: true, Title: "Flu briefing", Link: "https://usa.gov/v1", PublishedAt: time.Now().UTC()}
	if err := s.store.AddNewsItem(video); err != nil {
		t.Fatalf("seeding video news: %v", err)
	}

	req := core.NewSearchRequest("flu", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.Agency == nil || page.Agency.Abbreviation != "CDC" {
		t.Errorf("expected agency module, got %v", page.Agency)
	}
	if page.MedTopic == nil || page.MedTopic.Title != "Influenza" {
		t.Errorf("expected med topic module, got %v", page.MedTopic)
	}
	if len(page.Boosted) != 1 {
		t.Errorf("expected boosted module, got %v", page.Boosted)
	}
	if len(page.RelatedSearches) != 1 || page.RelatedSearches[0] != "flu symptoms" {
		t.Errorf("expected related searches, got %v", page.RelatedSearches)
	}
	if len(page.NewsItems) != 1 || page.NewsItems[0].Video {
		t.Errorf("expected non-video news module, got %v", page.NewsItems)
	}
	if len(page.VideoNewsItems) != 1 || !page.VideoNewsItems[0].Video {
		t.Errorf("expected video news module, got %v", page.VideoNewsItems)
	}

	tags := page.ModuleTags()
	for _, want := range []string{core.ModuleWeb, core.ModuleAgency, core.ModuleMedline, core.ModuleBoosted, core.ModuleRelated, core.ModuleNews, core.ModuleVideoNews} {
		if !slices.Contains(tags, want) {
			t.Errorf("expected tag %s in %v", want, tags)
		}
	}
}

func TestIndexedDocumentsDeduped(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	dup := index.Document{Tenant: "usagov", URL: "https://usa.gov/benefits/", Title: "Benefits", Body: "benefits"}
	if err := s.store.AddDocument(dup); err != nil {
		t.Fatalf("seeding index: %v", err)
	}
	unique := index.Document{Tenant: "usagov", URL: "https://usa.gov/unique", Title: "Benefits unique", Body: "benefits"}
	if err := s.store.AddDocument(unique); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	req := core.NewSearchRequest("benefits", "usagov", core.VerticalWeb)
	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	for _, rec := range page.IndexedDocuments {
		if rec.URL == "https://usa.gov/benefits/" {
			t.Errorf("duplicate of a provider result should be dropped: %v", page.IndexedDocuments)
		}
	}
}

func TestNewsVertical(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))
	now := time.Now().UTC()

	items := []index.NewsEntry{
		{Tenant: "usagov", Feed: "press", Title: "Storm update", Link: "https://usa.gov/n1", PublishedAt: now.Add(-2 * time.Hour)},
		{Tenant: "usagov", Feed: "press", Title: "Storm archive", Link: "https://usa.gov/n2", PublishedAt: now.Add(-72 * time.Hour)},
		{Tenant: "usagov", Feed: "blog", Title: "Storm blog", Link: "https://usa.gov/n3", PublishedAt: now.Add(-2 * time.Hour)},
	}
	for _, item := range items {
		if err := s.store.AddNewsItem(item); err != nil {
			t.Fatalf("seeding news: %v", err)
		}
	}

	req := core.NewSearchRequest("storm", "usagov", core.VerticalNews)
	req.Channel = "press"
	req.TBS = "d"

	page, err := s.assembler.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if got := s.calls.Load(); got != 0 {
		t.Errorf("news vertical must not call the provider, got %d calls", got)
	}
	if page.Total != 1 || len(page.Results) != 1 {
		t.Fatalf("expected 1 item after channel and time filters, got total=%d", page.Total)
	}
	if page.Results[0].URL != "https://usa.gov/n1" {
		t.Errorf("unexpected item: %v", page.Results[0])
	}
	if !page.FromLocalIndex {
		t.Error("news pages come from the local index")
	}
}

func TestUnknownTenant(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	req := core.NewSearchRequest("benefits", "nope", core.VerticalWeb)
	_, err := s.assembler.Search(context.Background(), req)
	if !errors.Is(err, ErrUnknownTenant) {
		t.Errorf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestEmptyQuery(t *testing.T) {
	s := newStack(t, serveBody(oneHitBody))

	req := core.NewSearchRequest("   ", "usagov", core.VerticalWeb)
	_, err := s.assembler.Search(context.Background(), req)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSinceForTBS(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		tbs  string
		want time.Duration
		ok   bool
	}{
		{"h", time.Hour, true},
		{"d", 24 * time.Hour, true},
		{"w", 7 * 24 * time.Hour, true},
		{"m", 30 * 24 * time.Hour, true},
		{"y", 365 * 24 * time.Hour, true},
		{"", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := sinceForTBS(tt.tbs, now)
		if ok != tt.ok {
			t.Errorf("tbs %q: expected ok=%v", tt.tbs, tt.ok)
			continue
		}
		if ok && !got.Equal(now.Add(-tt.want)) {
			t.Errorf("tbs %q: expected %v, got %v", tt.tbs, now.Add(-tt.want), got)
		}
	}
}
