// Package query builds provider-ready query strings from raw user input and
// tenant scoping rules. Composition is pure: no I/O, no retained state, and
// malformed scope data degrades to an unscoped query instead of failing.
package query

import (
	"net/url"
	"strings"

	"github.com/fedsearch/fedsearch/pkg/core"
)

const (
	// MaxQueryLength is the provider's query-string budget. Composed query
	// text never exceeds it; tenant domains that would overflow it are cut
	// at a term boundary.
	MaxQueryLength = 1500

	// DefaultScope is the provider-side alias meaning "any government
	// domain", applied when no tenant scoping is configured and the user
	// typed no explicit site token.
	DefaultScope = "(scopeid:usagovall OR site:gov OR site:mil)"

	orDelimiter = " OR "
)

// Compose builds the scoped provider query for a request. The returned value
// records which requested site-limit terms were honored and which were
// silently dropped for being outside the tenant's domain set.
func Compose(req core.SearchRequest, scope core.TenantScope) core.ComposedQuery {
	base, matching, dropped := buildBase(req, scope)

	qpl := queryPlusLocale(base, localeClause(req.EffectiveLocale(scope)))

	// An explicit site token anywhere in the base query (typed by the
	// user or produced by honored site limits) overrides all automatic
	// tenant scoping.
	hasSiteToken := strings.Contains(base, "site:")

	text := squeeze(qpl + " " + tenantScopeClause(scope, qpl, hasSiteToken))

	return core.ComposedQuery{
		Text:               text,
		MatchingSiteLimits: matching,
		DroppedSiteLimits:  dropped,
	}
}

// buildBase assembles the clause sequence of the base query. Clause order is
// part of the provider contract: qualified terms, quoted phrase, OR-terms,
// negated terms, filetype, site limits, site excludes.
func buildBase(req core.SearchRequest, scope core.TenantScope) (base string, matching, dropped []string) {
	var clauses []string

	if req.Query != "" {
		terms := strings.Fields(req.Query)
		for i, t := range terms {
			terms[i] = limitField(req.QueryLimit, t)
		}
		clauses = append(clauses, strings.Join(terms, " "))
	}

	if req.QueryQuote != "" {
		clauses = append(clauses, limitField(req.QueryQuoteLimit, `"`+req.QueryQuote+`"`))
	}

	if req.QueryOr != "" {
		terms := strings.Fields(req.QueryOr)
		for i, t := range terms {
			terms[i] = limitField(req.QueryOrLimit, t)
		}
		clauses = append(clauses, strings.Join(terms, orDelimiter))
	}

	if req.QueryNot != "" {
		terms := strings.Fields(req.QueryNot)
		for i, t := range terms {
			terms[i] = "-" + limitField(req.QueryNotLimit, t)
		}
		clauses = append(clauses, strings.Join(terms, " "))
	}

	if ft := strings.TrimSpace(req.FileType); ft != "" && !strings.EqualFold(ft, "all") {
		clauses = append(clauses, "filetype:"+ft)
	}

	if req.SiteLimits != "" {
		for _, site := range strings.Fields(req.SiteLimits) {
			if scope.IncludesDomain(site) {
				matching = append(matching, site)
			} else {
				dropped = append(dropped, site)
			}
		}
		if len(matching) > 0 {
			sites := make([]string, len(matching))
			for i, site := range matching {
				sites[i] = "site:" + site
			}
			clauses = append(clauses, strings.Join(sites, orDelimiter))
		}
	}

	if req.SiteExcludes != "" {
		excludes := strings.Fields(req.SiteExcludes)
		for i, site := range excludes {
			excludes[i] = "-site:" + site
		}
		clauses = append(clauses, strings.Join(excludes, " "))
	}

	return strings.TrimSpace(strings.Join(clauses, " ")), matching, dropped
}

// limitField applies a field qualifier prefix to a term. An empty qualifier
// leaves the term untouched.
func limitField(field, term string) string {
	if field == "" {
		return term
	}
	return field + term
}

// localeClause returns the provider language restriction, or empty for the
// system default language.
func localeClause(locale string) string {
	if locale == "" || locale == "en" {
		return ""
	}
	return "language:" + locale
}

// queryPlusLocale parenthesizes the base query and appends the locale clause.
// Both parts are independently optional.
func queryPlusLocale(base, locale string) string {
	var s string
	if base != "" {
		s = "(" + base + ")"
	}
	if locale != "" {
		s += " " + locale
	}
	return squeeze(s)
}

// tenantScopeClause builds the automatic scoping appended after the query:
// one parenthesized OR group of scope IDs and budget-limited domains (or the
// default scope when the tenant has neither), plus an independent group of
// quoted scope keywords. Keyword scoping applies even when an explicit site
// token suppressed the domain group.
func tenantScopeClause(scope core.TenantScope, qpl string, hasSiteToken bool) string {
	var domains, scopeIDs string
	if !hasSiteToken {
		domains = fillDomainsToRemainder(scope.Domains, MaxQueryLength-len(qpl))
		if len(scope.ScopeIDs) > 0 {
			ids := make([]string, 0, len(scope.ScopeIDs))
			for _, id := range scope.ScopeIDs {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				ids = append(ids, "scopeid:"+id)
			}
			scopeIDs = strings.Join(ids, orDelimiter)
		}
	}

	var b strings.Builder
	switch {
	case scopeIDs != "" && domains != "":
		b.WriteString("(" + scopeIDs + orDelimiter + domains + ")")
	case scopeIDs != "":
		b.WriteString("(" + scopeIDs + ")")
	case domains != "":
		b.WriteString("(" + domains + ")")
	case !hasSiteToken:
		b.WriteString(DefaultScope)
	}

	if len(scope.ScopeKeywords) > 0 {
		keywords := make([]string, 0, len(scope.ScopeKeywords))
		for _, kw := range scope.ScopeKeywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			keywords = append(keywords, `"`+kw+`"`)
		}
		if len(keywords) > 0 {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString("(" + strings.Join(keywords, orDelimiter) + ")")
		}
	}

	return strings.TrimSpace(b.String())
}

// fillDomainsToRemainder greedily appends tenant domains as site: clauses in
// configured order, measuring each clause URL-escaped with its delimiter, and
// stops before the clause that would exceed the remaining budget. A clause is
// never truncated mid-term.
func fillDomainsToRemainder(domains []string, remaining int) string {
	var included []string
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		siteStr := "site:" + d
		encoded := url.QueryEscape(siteStr + orDelimiter)
		remaining -= len(encoded)
		if remaining < 0 {
			break
		}
		included = append(included, siteStr)
	}
	return strings.Join(included, orDelimiter)
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
