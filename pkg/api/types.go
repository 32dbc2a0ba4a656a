package api

import (
	"time"

	"github.com/fedsearch/fedsearch/pkg/core"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ListTenantsResponse struct {
	Tenants []string `json:"tenants"`
	Count   int      `json:"count"`
}

type TenantResponse struct {
	Name               string   `json:"name"`
	Domains            []string `json:"domains,omitempty"`
	ScopeIDs           []string `json:"scope_ids,omitempty"`
	ScopeKeywords      []string `json:"scope_keywords,omitempty"`
	Locale             string   `json:"locale,omitempty"`
	LocalIndexOnly     bool     `json:"local_index_only"`
	LocalIndexEligible bool     `json:"local_index_eligible"`
	AgencyEnabled      bool     `json:"agency_enabled"`
	MedlineEnabled     bool     `json:"medline_enabled"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// SearchResponse wraps an assembled page with its module tags so API
// consumers see the same analytics labels the impression log records.
type SearchResponse struct {
	*core.ResultPage
	Modules []string `json:"modules"`
}
