package core

import (
	"strings"

	"golang.org/x/text/language"
)

// Vertical identifies a search category with its own query and response shape.
type Vertical string

const (
	VerticalWeb   Vertical = "web"
	VerticalNews  Vertical = "news"
	VerticalImage Vertical = "image"
)

// FilterLevel controls provider-side safe-search filtering.
type FilterLevel string

const (
	FilterOff      FilterLevel = "off"
	FilterModerate FilterLevel = "moderate"
	FilterStrict   FilterLevel = "strict"

	// DefaultFilterLevel replaces unrecognized filter values at request
	// construction time.
	DefaultFilterLevel = FilterModerate
)

// ParseFilterLevel maps a raw filter string to a FilterLevel. Unknown values
// fall back to DefaultFilterLevel rather than failing the request.
func ParseFilterLevel(s string) FilterLevel {
	switch FilterLevel(strings.ToLower(strings.TrimSpace(s))) {
	case FilterOff:
		return FilterOff
	case FilterModerate:
		return FilterModerate
	case FilterStrict:
		return FilterStrict
	default:
		return DefaultFilterLevel
	}
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// SearchRequest carries one user query plus its vertical-specific options.
// Construct with NewSearchRequest so pagination, locale and filter defaults
// are applied; a request is immutable once built.
type SearchRequest struct {
	Query    string
	Tenant   string
	Vertical Vertical

	Page    int
	PerPage int

	// Locale is the requested UI locale ("en", "es", ...). Empty means the
	// tenant default.
	Locale string

	// Field-qualified clause inputs. Each *Limit value is a per-term prefix
	// (field qualifier) applied to the terms of its clause.
	QueryLimit      string
	QueryQuote      string
	QueryQuoteLimit string
	QueryOr         string
	QueryOrLimit    string
	QueryNot        string
	QueryNotLimit   string

	// FileType restricts results to a document type. Empty or "all" means
	// no restriction.
	FileType string

	// SiteLimits and SiteExcludes are whitespace-delimited domain lists.
	SiteLimits   string
	SiteExcludes string

	// Channel selects a single news feed by name (news vertical only).
	Channel string

	// TBS is the time-bucket selector for news searches: h, d, w, m or y.
	TBS string

	Filter             FilterLevel
	EnableHighlighting bool
}

// NewSearchRequest builds a validated SearchRequest. Invalid pagination is
// clamped, an unrecognized filter level is replaced with the default, and the
// highlighting flag defaults to on.
func NewSearchRequest(query, tenant string, vertical Vertical) SearchRequest {
	return SearchRequest{
		Query:              strings.Join(strings.Fields(query), " "),
		Tenant:             tenant,
		Vertical:           vertical,
		Page:               1,
		PerPage:            DefaultPerPage,
		Filter:             DefaultFilterLevel,
		EnableHighlighting: true,
	}
}

// Normalize clamps pagination and filter fields in place and returns the
// request for chaining. Safe to call on zero-valued requests built directly.
func (r SearchRequest) Normalize() SearchRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = DefaultPerPage
	}
	if r.PerPage > MaxPerPage {
		r.PerPage = MaxPerPage
	}
	r.Filter = ParseFilterLevel(string(r.Filter))
	if r.Vertical == "" {
		r.Vertical = VerticalWeb
	}
	r.Query = strings.Join(strings.Fields(r.Query), " ")
	return r
}

// Offset returns the zero-based record offset for the requested page.
func (r SearchRequest) Offset() int {
	return (r.Page - 1) * r.PerPage
}

// FirstPage reports whether this request is for the first page of results.
// Supplementary modules are only fetched on the first page.
func (r SearchRequest) FirstPage() bool {
	return r.Page == 1
}

// EffectiveLocale resolves the locale for this request against the tenant
// default, returning a canonical base language code. Malformed locales are
// treated as English.
func (r SearchRequest) EffectiveLocale(scope TenantScope) string {
	loc := r.Locale
	if loc == "" {
		loc = scope.Locale
	}
	if loc == "" {
		return "en"
	}
	tag, err := language.Parse(loc)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}
