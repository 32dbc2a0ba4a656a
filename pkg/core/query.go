package core

// ComposedQuery is the immutable provider-ready form of a request. Text never
// exceeds the provider's query-string budget; when the tenant domain list
// would overflow it, domains are truncated at a term boundary.
type ComposedQuery struct {
	// Text is the final query string sent to the provider.
	Text string

	// MatchingSiteLimits are the requested site-limit terms that were
	// inside the tenant's allowed domain set and made it into Text.
	MatchingSiteLimits []string

	// DroppedSiteLimits were requested but outside the allowed set. They
	// are recorded for caller disclosure, never for a hard error.
	DroppedSiteLimits []string
}
