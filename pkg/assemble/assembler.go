// Package assemble orchestrates one search request end to end: compose the
// provider query, consult the cache, call the provider or the local index,
// normalize, merge supplementary modules and paginate.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fedsearch/fedsearch/pkg/cache"
	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/govbox"
	"github.com/fedsearch/fedsearch/pkg/impression"
	"github.com/fedsearch/fedsearch/pkg/index"
	"github.com/fedsearch/fedsearch/pkg/log"
	"github.com/fedsearch/fedsearch/pkg/normalize"
	"github.com/fedsearch/fedsearch/pkg/provider"
	"github.com/fedsearch/fedsearch/pkg/query"
	"github.com/fedsearch/fedsearch/pkg/tenant"
)

// Request lifecycle states, surfaced in debug logs.
type state string

const (
	stateComposing       state = "composing"
	stateAwaitingCache   state = "awaiting_cache"
	stateAwaitingBackend state = "awaiting_provider"
	stateNormalizing     state = "normalizing"
	stateMerging         state = "merging_supplementary"
	statePaginated       state = "paginated"
	stateFailed          state = "failed"
)

const (
	// supplementaryTasks bounds concurrent govbox fetches per request.
	supplementaryTasks = 6

	// newsFetchCap bounds how many news items one request pages over.
	newsFetchCap = 500

	indexedDocumentsLimit = 3
)

var (
	ErrUnknownTenant = errors.New("assemble: unknown tenant")
	ErrEmptyQuery    = errors.New("assemble: empty query")
)

// Assembler builds result pages. It is safe for concurrent use; all per
// request state lives on the stack of Search.
type Assembler struct {
	tenants     *tenant.Store
	cache       *cache.ResponseCache
	client      *provider.Client
	norm        *normalize.Normalizer
	store       *index.Store
	govbox      *govbox.Providers
	impressions *impression.Logger
	logger      *log.Logger
}

// New wires an assembler from its collaborators. impressions may be nil when
// analytics are not wanted.
func New(tenants *tenant.Store, responseCache *cache.ResponseCache, client *provider.Client, store *index.Store, impressions *impression.Logger) *Assembler {
	return &Assembler{
		tenants:     tenants,
		cache:       responseCache,
		client:      client,
		norm:        normalize.New(tenants.ExcludedDomains, store.LookupPublishedAt),
		store:       store,
		govbox:      govbox.New(store),
		impressions: impressions,
		logger:      log.ForService("assembler"),
	}
}

// Search runs one request through its full lifecycle and returns the
// assembled page. Provider failures degrade to an empty page with the Error
// field set; only request validation and unknown tenants return an error.
func (a *Assembler) Search(ctx context.Context, req core.SearchRequest) (*core.ResultPage, error) {
	req = req.Normalize()
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}
	scope, ok := a.tenants.Tenant(req.Tenant)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, req.Tenant)
	}

	var page *core.ResultPage
	if req.Vertical == core.VerticalNews {
		page = a.searchNews(ctx, req, scope)
	} else if scope.LocalIndexOnly {
		page = a.searchLocal(ctx, req, scope)
	} else {
		page = a.searchProvider(ctx, req, scope)
	}

	a.transition(req, statePaginated)
	page.Paginate(req.Offset())
	if a.impressions != nil {
		a.impressions.Log(req.Tenant, req.Vertical, req.Query, page.ModuleTags())
	}
	return page, nil
}

// searchProvider is the main path: composed query against the external
// provider with cache, local-index fallback on zero hits, and first page
// supplementary modules.
func (a *Assembler) searchProvider(ctx context.Context, req core.SearchRequest, scope core.TenantScope) *core.ResultPage {
	page := newPage(req)

	a.transition(req, stateComposing)
	composed := query.Compose(req, scope)
	page.MatchingSiteLimits = composed.MatchingSiteLimits
	page.DroppedSiteLimits = composed.DroppedSiteLimits

	sources := provider.SourcesWeb
	if req.Vertical == core.VerticalImage {
		sources = provider.SourcesImage
	}

	resp, err := a.cachedQuery(ctx, req, composed.Text, sources)
	if err != nil {
		a.transition(req, stateFailed)
		a.logger.Errorf("provider query failed for tenant %s: %v", req.Tenant, err)
		page.Error = "search is temporarily unavailable"
		return page
	}

	a.transition(req, stateNormalizing)
	if req.Vertical == core.VerticalImage {
		page.Results = a.norm.ImageResults(resp, scope)
		page.Total = resp.ImageTotal()
	} else {
		page.Results = a.norm.WebResults(resp, scope)
		page.Total = resp.WebTotal()
	}
	if page.Total > 0 {
		page.SpellingSuggestion = a.norm.SpellingSuggestion(resp, req.Query)
	}

	// One fallback attempt against the local document index, only for the web
	// vertical and only when the provider found nothing at all.
	if page.Total == 0 && req.Vertical == core.VerticalWeb && scope.LocalIndexEligible {
		if local, err := a.store.SearchForTenant(ctx, req, scope); err == nil {
			page.Results = local.Results
			page.Total = local.Total
			page.FromLocalIndex = true
		} else if !errors.Is(err, index.ErrNotConfigured) {
			a.logger.Warnf("local fallback failed for tenant %s: %v", req.Tenant, err)
		}
	}

	if req.FirstPage() {
		a.transition(req, stateMerging)
		a.mergeSupplementary(ctx, req, scope, page)
	}
	return page
}

// searchLocal serves tenants that never call the external provider.
func (a *Assembler) searchLocal(ctx context.Context, req core.SearchRequest, scope core.TenantScope) *core.ResultPage {
	page := newPage(req)
	page.FromLocalIndex = true

	local, err := a.store.SearchForTenant(ctx, req, scope)
	if err != nil {
		a.transition(req, stateFailed)
		a.logger.Errorf("local search failed for tenant %s: %v", req.Tenant, err)
		page.Error = "search is temporarily unavailable"
		return page
	}
	page.Results = local.Results
	page.Total = local.Total

	if req.FirstPage() {
		a.transition(req, stateMerging)
		a.mergeSupplementary(ctx, req, scope, page)
	}
	return page
}

// searchNews serves the news vertical from the local news index. Channel
// narrows to one feed; TBS narrows by publish age.
func (a *Assembler) searchNews(ctx context.Context, req core.SearchRequest, scope core.TenantScope) *core.ResultPage {
	page := newPage(req)
	page.FromLocalIndex = true

	q := index.NewsQuery{
		Tenant: scope.Name,
		Query:  req.Query,
		Limit:  newsFetchCap,
	}
	if req.Channel != "" {
		q.Feeds = []string{req.Channel}
	}
	if since, ok := sinceForTBS(req.TBS, time.Now()); ok {
		q.Since = &since
	}

	items, err := a.store.SearchNews(ctx, q)
	if err != nil {
		a.transition(req, stateFailed)
		a.logger.Errorf("news search failed for tenant %s: %v", req.Tenant, err)
		page.Error = "search is temporarily unavailable"
		return page
	}

	page.Total = len(items)
	for _, item := range pageSlice(items, req.Offset(), req.PerPage) {
		at := item.PublishedAt
		page.Results = append(page.Results, core.ResultRecord{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Description,
			PublishedAt: &at,
			Provenance:  core.ProvenanceIndex,
		})
	}

	if req.FirstPage() {
		if related, err := a.govbox.Related(ctx, req.Query, scope); err == nil {
			page.RelatedSearches = related
		}
	}
	return page
}

// cachedQuery returns the parsed provider response for the composed query,
// consulting the response cache first. Cache failures are treated as misses
// and a fresh provider body is written back on success.
func (a *Assembler) cachedQuery(ctx context.Context, req core.SearchRequest, composed, sources string) (*provider.Response, error) {
	key := cache.Key(composed, sources, req.Offset(), req.PerPage, req.EnableHighlighting, req.Filter)

	a.transition(req, stateAwaitingCache)
	if body, ok := a.cache.Get(ctx, key); ok {
		if resp, err := provider.Parse(body); err == nil {
			return resp, nil
		}
		a.logger.Warnf("discarding unparseable cached response for key %s", key)
	}

	a.transition(req, stateAwaitingBackend)
	body, err := a.client.Query(ctx, composed, sources, req.Offset(), req.PerPage, req.EnableHighlighting, req.Filter)
	if err != nil {
		return nil, err
	}
	resp, err := provider.Parse(body)
	if err != nil {
		return nil, err
	}
	a.cache.Set(ctx, key, body)
	return resp, nil
}

// mergeSupplementary fetches the govbox modules concurrently and merges
// whatever succeeded. Individual failures are logged and tolerated.
func (a *Assembler) mergeSupplementary(ctx context.Context, req core.SearchRequest, scope core.TenantScope, page *core.ResultPage) {
	locale := req.EffectiveLocale(scope)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(supplementaryTasks)

	group.Go(func() error {
		boosted, err := a.govbox.Boosted(gctx, req.Query, scope)
		if err == nil {
			page.Boosted = boosted
		}
		return a.tolerate("boosted", req.Tenant, err)
	})
	group.Go(func() error {
		collection, err := a.govbox.Collection(gctx, req.Query, scope)
		if err == nil {
			page.FeaturedCollection = collection
		}
		return a.tolerate("collection", req.Tenant, err)
	})
	group.Go(func() error {
		topic, err := a.govbox.MedTopic(gctx, req.Query, locale, scope)
		if err == nil {
			page.MedTopic = topic
		}
		return a.tolerate("medtopic", req.Tenant, err)
	})
	group.Go(func() error {
		agency, err := a.govbox.Agency(gctx, req.Query, scope)
		if err == nil {
			page.Agency = agency
		}
		return a.tolerate("agency", req.Tenant, err)
	})
	group.Go(func() error {
		related, err := a.govbox.Related(gctx, req.Query, scope)
		if err == nil {
			page.RelatedSearches = related
		}
		return a.tolerate("related", req.Tenant, err)
	})
	if req.Vertical == core.VerticalWeb {
		group.Go(func() error {
			news, err := a.govbox.News(gctx, req.Query, scope)
			if err == nil {
				page.NewsItems = news
			}
			return a.tolerate("news", req.Tenant, err)
		})
		group.Go(func() error {
			videos, err := a.govbox.VideoNews(gctx, req.Query, scope)
			if err == nil {
				page.VideoNewsItems = videos
			}
			return a.tolerate("videonews", req.Tenant, err)
		})
		if scope.LocalIndexEligible && !page.FromLocalIndex {
			group.Go(func() error {
				docs, err := a.govbox.IndexedDocuments(gctx, req.Query, scope, indexedDocumentsLimit)
				if err == nil {
					page.IndexedDocuments = docs
				}
				return a.tolerate("indexeddocs", req.Tenant, err)
			})
		}
	}

	// tolerate never returns an error, so Wait is only a barrier.
	_ = group.Wait()

	page.IndexedDocuments = DropLocalDuplicates(page.IndexedDocuments, page.Results)
}

// tolerate logs a supplementary fetch failure and swallows it so one module
// never fails the whole page.
func (a *Assembler) tolerate(module, tenantName string, err error) error {
	if err != nil {
		a.logger.Warnf("%s fetch failed for tenant %s: %v", module, tenantName, err)
	}
	return nil
}

func (a *Assembler) transition(req core.SearchRequest, s state) {
	a.logger.Debugf("tenant=%s vertical=%s state=%s", req.Tenant, req.Vertical, s)
}

func newPage(req core.SearchRequest) *core.ResultPage {
	return &core.ResultPage{
		Vertical: req.Vertical,
		Query:    req.Query,
		Page:     req.Page,
		PerPage:  req.PerPage,
	}
}

// sinceForTBS maps a time-bucket code to a cutoff before now. Unknown codes
// apply no cutoff.
func sinceForTBS(tbs string, now time.Time) (time.Time, bool) {
	var d time.Duration
	switch tbs {
	case "h":
		d = time.Hour
	case "d":
		d = 24 * time.Hour
	case "w":
		d = 7 * 24 * time.Hour
	case "m":
		d = 30 * 24 * time.Hour
	case "y":
		d = 365 * 24 * time.Hour
	default:
		return time.Time{}, false
	}
	return now.Add(-d), true
}

func pageSlice(items []core.NewsItem, offset, perPage int) []core.NewsItem {
	if offset >= len(items) {
		return nil
	}
	end := offset + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
