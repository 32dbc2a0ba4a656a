// Package index implements the local full-text document index and the tables
// backing the supplementary content modules. Storage is SQLite with FTS5,
// shared by the indexed-document provider, the news vertical and the govbox
// lookups.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/fedsearch/fedsearch/pkg/log"
)

// ErrNotConfigured reports that a tenant is not eligible for local-index
// result mode.
var ErrNotConfigured = errors.New("index: tenant not configured for local results")

const timeLayout = time.RFC3339

// Store owns the SQLite database. Safe for concurrent use; construct once at
// process start.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (creating if needed) the index database at dbPath and applies
// the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: log.ForService("index")}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			published_at TEXT,
			created_at TEXT NOT NULL,
			UNIQUE(tenant, url)
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(title, description, body)`,
		`CREATE TABLE IF NOT EXISTS news_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant TEXT NOT NULL,
			feed TEXT NOT NULL,
			video INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL,
			UNIQUE(tenant, link)
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS news_fts USING fts5(title, description)`,
		`CREATE TABLE IF NOT EXISTS boosted_contents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS featured_collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant TEXT NOT NULL,
			title TEXT NOT NULL,
			keywords TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS featured_collection_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS med_topics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			locale TEXT NOT NULL,
			title TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS med_synonyms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic_id INTEGER NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agencies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			abbreviation TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS agency_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phrase TEXT NOT NULL UNIQUE,
			agency_id INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sayt_suggestions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant TEXT NOT NULL,
			phrase TEXT NOT NULL,
			UNIQUE(tenant, phrase)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Document is one locally indexed page.
type Document struct {
	Tenant      string
	URL         string
	Title       string
	Description string
	Body        string
	PublishedAt *time.Time
}

// AddDocument upserts a document and its FTS entry in one transaction.
func (s *Store) AddDocument(doc Document) error {
	if strings.TrimSpace(doc.URL) == "" || strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("document requires url and title")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("rollback failed: %v", err)
			}
		}
	}()

	var publishedAt any
	if doc.PublishedAt != nil {
		publishedAt = doc.PublishedAt.UTC().Format(timeLayout)
	}

	if _, err := tx.Exec(`
		INSERT INTO documents (tenant, url, title, description, body, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			body = excluded.body,
			published_at = excluded.published_at
	`, doc.Tenant, doc.URL, doc.Title, doc.Description, doc.Body, publishedAt, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("storing document: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO documents_fts (rowid, title, description, body)
		VALUES ((SELECT id FROM documents WHERE tenant = ? AND url = ?), ?, ?, ?)
	`, doc.Tenant, doc.URL, doc.Title, doc.Description, doc.Body); err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// NewsEntry is one stored feed item.
type NewsEntry struct {
	Tenant      string
	Feed        string
	Video       bool
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// AddNewsItem upserts a feed item and its FTS entry.
func (s *Store) AddNewsItem(item NewsEntry) error {
	if strings.TrimSpace(item.Link) == "" || strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("news item requires link and title")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("rollback failed: %v", err)
			}
		}
	}()

	if _, err := tx.Exec(`
		INSERT INTO news_items (tenant, feed, video, title, link, description, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, link) DO UPDATE SET
			feed = excluded.feed,
			video = excluded.video,
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at
	`, item.Tenant, item.Feed, boolToInt(item.Video), item.Title, item.Link, item.Description,
		item.PublishedAt.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("storing news item: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO news_fts (rowid, title, description)
		VALUES ((SELECT id FROM news_items WHERE tenant = ? AND link = ?), ?, ?)
	`, item.Tenant, item.Link, item.Title, item.Description); err != nil {
		return fmt.Errorf("indexing news item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// AddBoostedContent stores a curated result for a tenant. Keywords are
// comma-separated match phrases.
func (s *Store) AddBoostedContent(tenant, title, url, description, keywords string) error {
	_, err := s.db.Exec(`
		INSERT INTO boosted_contents (tenant, title, url, description, keywords)
		VALUES (?, ?, ?, ?, ?)
	`, tenant, title, url, description, keywords)
	return err
}

// AddFeaturedCollection stores a curated collection with its ordered links.
func (s *Store) AddFeaturedCollection(tenant, title, keywords string, links []CollectionLink) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("rollback failed: %v", err)
			}
		}
	}()

	res, err := tx.Exec(`
		INSERT INTO featured_collections (tenant, title, keywords) VALUES (?, ?, ?)
	`, tenant, title, keywords)
	if err != nil {
		return fmt.Errorf("storing collection: %w", err)
	}
	collectionID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("collection id: %w", err)
	}
	for i, link := range links {
		if _, err := tx.Exec(`
			INSERT INTO featured_collection_links (collection_id, title, url, position)
			VALUES (?, ?, ?, ?)
		`, collectionID, link.Title, link.URL, i); err != nil {
			return fmt.Errorf("storing collection link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// CollectionLink is one entry of a featured collection.
type CollectionLink struct {
	Title string
	URL   string
}

// AddMedTopic stores a medical topic with its synonyms for one locale.
func (s *Store) AddMedTopic(locale, title, summary, url string, synonyms []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("rollback failed: %v", err)
			}
		}
	}()

	res, err := tx.Exec(`
		INSERT INTO med_topics (locale, title, summary, url) VALUES (?, ?, ?, ?)
	`, locale, title, summary, url)
	if err != nil {
		return fmt.Errorf("storing med topic: %w", err)
	}
	topicID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("med topic id: %w", err)
	}
	for _, name := range synonyms {
		if _, err := tx.Exec(`
			INSERT INTO med_synonyms (topic_id, name) VALUES (?, ?)
		`, topicID, name); err != nil {
			return fmt.Errorf("storing med synonym: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// AddAgency stores an agency and the query phrases that resolve to it.
func (s *Store) AddAgency(name, abbreviation, url string, phrases []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("rollback failed: %v", err)
			}
		}
	}()

	res, err := tx.Exec(`
		INSERT INTO agencies (name, abbreviation, url) VALUES (?, ?, ?)
	`, name, abbreviation, url)
	if err != nil {
		return fmt.Errorf("storing agency: %w", err)
	}
	agencyID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("agency id: %w", err)
	}
	for _, phrase := range phrases {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO agency_queries (phrase, agency_id) VALUES (?, ?)
		`, strings.ToLower(strings.TrimSpace(phrase)), agencyID); err != nil {
			return fmt.Errorf("storing agency phrase: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// AddSaytSuggestion stores a type-ahead phrase used for related searches.
func (s *Store) AddSaytSuggestion(tenant, phrase string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO sayt_suggestions (tenant, phrase) VALUES (?, ?)
	`, tenant, strings.ToLower(strings.TrimSpace(phrase)))
	return err
}

// Stats returns row counts per table for operator visibility.
func (s *Store) Stats() (map[string]int, error) {
	tables := []string{"documents", "news_items", "boosted_contents", "featured_collections", "med_topics", "agencies", "sayt_suggestions"}
	stats := make(map[string]int, len(tables))
	for _, table := range tables {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
