package core

import "strings"

// TenantScope is the per-tenant configuration consumed read-only by the
// search core. It is loaded from the tenant store and never mutated during a
// request.
type TenantScope struct {
	Name string `toml:"-" json:"name"`

	// Domains restricts provider results to these sites, in configured
	// order. Order matters: when the query budget runs out, domains are
	// included as a strict prefix of this list.
	Domains []string `toml:"domains" json:"domains"`

	// ScopeIDs are provider-side scope identifiers OR-ed with the domain
	// clauses.
	ScopeIDs []string `toml:"scope_ids" json:"scope_ids"`

	// ScopeKeywords are appended as an independent AND-ed group of quoted
	// terms.
	ScopeKeywords []string `toml:"scope_keywords" json:"scope_keywords"`

	// ExcludedURLs are exact result URLs dropped during normalization.
	ExcludedURLs []string `toml:"excluded_urls" json:"excluded_urls"`

	// Locale is the tenant default locale code.
	Locale string `toml:"locale" json:"locale"`

	// LocalIndexOnly selects the locally-indexed result-source mode: the
	// external provider is never called for this tenant.
	LocalIndexOnly bool `toml:"local_index_only" json:"local_index_only"`

	// LocalIndexEligible allows falling back to the local document index
	// when the external provider reports zero hits.
	LocalIndexEligible bool `toml:"local_index_eligible" json:"local_index_eligible"`

	// Supplementary module toggles.
	AgencyEnabled  bool `toml:"agency_enabled" json:"agency_enabled"`
	MedlineEnabled bool `toml:"medline_enabled" json:"medline_enabled"`

	// GovboxFeeds lists the news feeds whose items may surface in the
	// related-news module. Feeds prefixed with "video:" are video feeds.
	GovboxFeeds []string `toml:"govbox_feeds" json:"govbox_feeds"`
}

// IncludesDomain reports whether site falls inside the tenant's allowed
// domain set. A site matches a configured domain when it is equal to it or a
// subdomain of it.
func (t TenantScope) IncludesDomain(site string) bool {
	site = strings.ToLower(strings.TrimSpace(site))
	for _, d := range t.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if site == d || strings.HasSuffix(site, "."+d) {
			return true
		}
	}
	return false
}

// URLExcluded reports whether url matches a tenant-specific excluded URL
// entry exactly.
func (t TenantScope) URLExcluded(url string) bool {
	for _, e := range t.ExcludedURLs {
		if url == e {
			return true
		}
	}
	return false
}
