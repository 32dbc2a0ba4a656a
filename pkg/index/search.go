package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fedsearch/fedsearch/pkg/core"
)

// Highlight markers for FTS snippets, matching the external provider's so
// downstream cleanup treats both sources the same way.
const (
	snippetOpen  = ""
	snippetClose = ""
)

// LocalResponse is the structured reply of the local index provider.
type LocalResponse struct {
	Total   int
	Results []core.ResultRecord
}

// SearchForTenant runs the local-index equivalent of a provider query. It
// fails only with ErrNotConfigured when the tenant is not eligible for
// local-index mode; no results is a valid empty response.
func (s *Store) SearchForTenant(ctx context.Context, req core.SearchRequest, scope core.TenantScope) (*LocalResponse, error) {
	if !scope.LocalIndexOnly && !scope.LocalIndexEligible {
		return nil, ErrNotConfigured
	}
	total, hits, err := s.SearchDocuments(ctx, scope.Name, req.Query, req.PerPage, req.Offset())
	if err != nil {
		return nil, err
	}
	return &LocalResponse{Total: total, Results: hits}, nil
}

// SearchDocuments runs a paginated FTS query over a tenant's documents and
// returns the true total hit count alongside the requested page.
func (s *Store) SearchDocuments(ctx context.Context, tenant, query string, limit, offset int) (int, []core.ResultRecord, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return 0, nil, nil
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM documents_fts f
		JOIN documents d ON d.id = f.rowid
		WHERE documents_fts MATCH ? AND d.tenant = ?
	`, match, tenant).Scan(&total)
	if err != nil {
		return 0, nil, fmt.Errorf("counting documents: %w", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.url, d.title,
		       snippet(documents_fts, 1, ?, ?, '...', 24),
		       d.published_at
		FROM documents_fts f
		JOIN documents d ON d.id = f.rowid
		WHERE documents_fts MATCH ? AND d.tenant = ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, snippetOpen, snippetClose, match, tenant, limit, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("searching documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()

	var records []core.ResultRecord
	for rows.Next() {
		var rec core.ResultRecord
		var publishedAt sql.NullString
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.Snippet, &publishedAt); err != nil {
			return 0, nil, fmt.Errorf("scanning document: %w", err)
		}
		rec.Provenance = core.ProvenanceIndex
		if publishedAt.Valid {
			if at, err := time.Parse(timeLayout, publishedAt.String); err == nil {
				rec.PublishedAt = &at
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterating documents: %w", err)
	}
	return total, records, nil
}

// LookupPublishedAt returns the locally-known publish date for a URL, used to
// backfill provider results that omit one.
func (s *Store) LookupPublishedAt(url string) (time.Time, bool) {
	var publishedAt sql.NullString
	err := s.db.QueryRow(`
		SELECT published_at FROM news_items WHERE link = ?
		UNION ALL
		SELECT published_at FROM documents WHERE url = ?
		LIMIT 1
	`, url, url).Scan(&publishedAt)
	if err != nil || !publishedAt.Valid {
		return time.Time{}, false
	}
	at, err := time.Parse(timeLayout, publishedAt.String)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// NewsQuery selects news items for a tenant. Feeds narrows to named feeds
// (empty means all), Video selects video or non-video feeds when non-nil, and
// Since drops items published before it.
type NewsQuery struct {
	Tenant string
	Query  string
	Feeds  []string
	Video  *bool
	Since  *time.Time
	Limit  int
}

// SearchNews runs an FTS query over news items, newest first.
func (s *Store) SearchNews(ctx context.Context, q NewsQuery) ([]core.NewsItem, error) {
	match := ftsMatchExpr(q.Query)
	if match == "" {
		return nil, nil
	}
	if q.Limit <= 0 {
		q.Limit = core.DefaultPerPage
	}

	sqlQuery := `
		SELECT n.title, n.link,
		       snippet(news_fts, 1, ?, ?, '...', 24),
		       n.feed, n.video, n.published_at
		FROM news_fts f
		JOIN news_items n ON n.id = f.rowid
		WHERE news_fts MATCH ? AND n.tenant = ?`
	args := []any{snippetOpen, snippetClose, match, q.Tenant}

	if len(q.Feeds) > 0 {
		placeholders := strings.Repeat("?,", len(q.Feeds))
		sqlQuery += " AND n.feed IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, feed := range q.Feeds {
			args = append(args, feed)
		}
	}
	if q.Video != nil {
		sqlQuery += " AND n.video = ?"
		args = append(args, boolToInt(*q.Video))
	}
	if q.Since != nil {
		sqlQuery += " AND n.published_at >= ?"
		args = append(args, q.Since.UTC().Format(timeLayout))
	}
	sqlQuery += " ORDER BY n.published_at DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching news: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()

	var items []core.NewsItem
	for rows.Next() {
		var item core.NewsItem
		var video int
		var publishedAt string
		if err := rows.Scan(&item.Title, &item.Link, &item.Description, &item.Feed, &video, &publishedAt); err != nil {
			return nil, fmt.Errorf("scanning news item: %w", err)
		}
		item.Video = video != 0
		if at, err := time.Parse(timeLayout, publishedAt); err == nil {
			item.PublishedAt = at
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RelatedSearches returns stored type-ahead phrases containing the query,
// excluding the query itself.
func (s *Store) RelatedSearches(ctx context.Context, tenant, query string, limit int) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT phrase FROM sayt_suggestions
		WHERE tenant = ? AND phrase LIKE ? AND phrase != ?
		ORDER BY phrase
		LIMIT ?
	`, tenant, "%"+query+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("finding related searches: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()

	var phrases []string
	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return nil, fmt.Errorf("scanning phrase: %w", err)
		}
		phrases = append(phrases, phrase)
	}
	return phrases, rows.Err()
}

// BoostedForQuery returns tenant-curated results whose keywords or title
// match the query.
func (s *Store) BoostedForQuery(ctx context.Context, tenant, query string, limit int) ([]core.BoostedContent, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, url, description, keywords FROM boosted_contents
		WHERE tenant = ?
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("loading boosted contents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()

	var matches []core.BoostedContent
	for rows.Next() {
		var bc core.BoostedContent
		var keywords string
		if err := rows.Scan(&bc.Title, &bc.URL, &bc.Description, &keywords); err != nil {
			return nil, fmt.Errorf("scanning boosted content: %w", err)
		}
		if keywordsMatch(query, bc.Title, keywords) {
			matches = append(matches, bc)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, rows.Err()
}

// CollectionForQuery returns the best matching featured collection with its
// ordered links, or nil when none matches.
func (s *Store) CollectionForQuery(ctx context.Context, tenant, query string) (*core.FeaturedCollection, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, keywords FROM featured_collections WHERE tenant = ?
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("loading collections: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()

	var collectionID int64
	var collection *core.FeaturedCollection
	for rows.Next() {
		var id int64
		var title, keywords string
		if err := rows.Scan(&id, &title, &keywords); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		if keywordsMatch(query, title, keywords) {
			collectionID = id
			collection = &core.FeaturedCollection{Title: title}
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, nil
	}

	linkRows, err := s.db.QueryContext(ctx, `
		SELECT title, url FROM featured_collection_links
		WHERE collection_id = ? ORDER BY position
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("loading collection links: %w", err)
	}
	defer func() {
		if err := linkRows.Close(); err != nil {
			s.logger.Warnf("closing rows: %v", err)
		}
	}()
	for linkRows.Next() {
		var link core.Link
		if err := linkRows.Scan(&link.Title, &link.URL); err != nil {
			return nil, fmt.Errorf("scanning collection link: %w", err)
		}
		collection.Links = append(collection.Links, link)
	}
	return collection, linkRows.Err()
}

// MedTopicFor matches the query against topic titles and synonyms for one
// locale. Returns nil when nothing matches.
func (s *Store) MedTopicFor(ctx context.Context, query, locale string) (*core.MedTopic, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if locale == "" {
		locale = "en"
	}

	topic := &core.MedTopic{Locale: locale}
	err := s.db.QueryRowContext(ctx, `
		SELECT t.title, t.summary, t.url
		FROM med_topics t
		LEFT JOIN med_synonyms syn ON syn.topic_id = t.id
		WHERE t.locale = ? AND (LOWER(t.title) = ? OR LOWER(syn.name) = ?)
		LIMIT 1
	`, locale, query, query).Scan(&topic.Title, &topic.Summary, &topic.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding med topic: %w", err)
	}
	return topic, nil
}

// AgencyForPhrase resolves an exact query phrase to an agency record, or nil.
func (s *Store) AgencyForPhrase(ctx context.Context, phrase string) (*core.Agency, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil, nil
	}

	agency := &core.Agency{}
	err := s.db.QueryRowContext(ctx, `
		SELECT a.name, a.abbreviation, a.url
		FROM agency_queries q
		JOIN agencies a ON a.id = q.agency_id
		WHERE q.phrase = ?
	`, phrase).Scan(&agency.Name, &agency.Abbreviation, &agency.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding agency: %w", err)
	}
	return agency, nil
}

// ftsMatchExpr quotes each query term so user input cannot inject FTS5
// operators.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// keywordsMatch reports whether the query matches a comma-separated keyword
// list or appears in the title.
func keywordsMatch(query, title, keywords string) bool {
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && (kw == query || strings.Contains(query, kw)) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(title), query)
}
