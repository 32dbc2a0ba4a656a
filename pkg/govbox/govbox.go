// Package govbox exposes the supplementary content modules merged into a
// result page: boosted content, featured collections, related news, medical
// topics and agency lookup. Each provider is independently callable with no
// ordering dependency, and each respects the tenant's module toggles.
package govbox

import (
	"context"
	"strings"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/index"
)

const (
	boostedLimit  = 3
	newsLimit     = 3
	relatedLimit  = 5
	videoPrefix   = "video:"
	defaultLocale = "en"
)

// Providers bundles the supplementary lookups over the shared local store.
type Providers struct {
	store *index.Store
}

// New builds the provider set over store.
func New(store *index.Store) *Providers {
	return &Providers{store: store}
}

// Boosted returns tenant-curated results for the query.
func (p *Providers) Boosted(ctx context.Context, query string, scope core.TenantScope) ([]core.BoostedContent, error) {
	return p.store.BoostedForQuery(ctx, scope.Name, query, boostedLimit)
}

// Collection returns the best featured collection match, or nil.
func (p *Providers) Collection(ctx context.Context, query string, scope core.TenantScope) (*core.FeaturedCollection, error) {
	return p.store.CollectionForQuery(ctx, scope.Name, query)
}

// News returns top matches from the tenant's govbox-enabled non-video feeds.
func (p *Providers) News(ctx context.Context, query string, scope core.TenantScope) ([]core.NewsItem, error) {
	feeds := feedNames(scope.GovboxFeeds, false)
	if len(feeds) == 0 {
		return nil, nil
	}
	video := false
	return p.store.SearchNews(ctx, index.NewsQuery{
		Tenant: scope.Name,
		Query:  query,
		Feeds:  feeds,
		Video:  &video,
		Limit:  newsLimit,
	})
}

// VideoNews returns top matches from the tenant's govbox-enabled video feeds.
func (p *Providers) VideoNews(ctx context.Context, query string, scope core.TenantScope) ([]core.NewsItem, error) {
	feeds := feedNames(scope.GovboxFeeds, true)
	if len(feeds) == 0 {
		return nil, nil
	}
	video := true
	return p.store.SearchNews(ctx, index.NewsQuery{
		Tenant: scope.Name,
		Query:  query,
		Feeds:  feeds,
		Video:  &video,
		Limit:  newsLimit,
	})
}

// MedTopic returns a locale-aware medical topic match when the tenant has
// the medline module enabled.
func (p *Providers) MedTopic(ctx context.Context, query, locale string, scope core.TenantScope) (*core.MedTopic, error) {
	if !scope.MedlineEnabled {
		return nil, nil
	}
	if locale == "" {
		locale = defaultLocale
	}
	return p.store.MedTopicFor(ctx, query, locale)
}

// Agency resolves the query phrase to an agency record when the tenant has
// the agency module enabled.
func (p *Providers) Agency(ctx context.Context, query string, scope core.TenantScope) (*core.Agency, error) {
	if !scope.AgencyEnabled {
		return nil, nil
	}
	return p.store.AgencyForPhrase(ctx, query)
}

// Related returns related-search phrases for the query.
func (p *Providers) Related(ctx context.Context, query string, scope core.TenantScope) ([]string, error) {
	return p.store.RelatedSearches(ctx, scope.Name, query, relatedLimit)
}

// IndexedDocuments returns first-page local index hits shown alongside
// provider-backed results.
func (p *Providers) IndexedDocuments(ctx context.Context, query string, scope core.TenantScope, limit int) ([]core.ResultRecord, error) {
	_, hits, err := p.store.SearchDocuments(ctx, scope.Name, query, limit, 0)
	return hits, err
}

// feedNames filters a tenant feed list by the video: prefix, returning bare
// feed names.
func feedNames(feeds []string, video bool) []string {
	var names []string
	for _, feed := range feeds {
		feed = strings.TrimSpace(feed)
		if feed == "" {
			continue
		}
		isVideo := strings.HasPrefix(feed, videoPrefix)
		if isVideo != video {
			continue
		}
		names = append(names, strings.TrimPrefix(feed, videoPrefix))
	}
	return names
}
