package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fedsearch/fedsearch/pkg/assemble"
	"github.com/fedsearch/fedsearch/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := ParseSearchParams(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'query' is required")
		return
	}
	if req.Tenant == "" {
		s.writeError(w, http.StatusBadRequest, "Missing affiliate parameter", "Query parameter 'affiliate' is required")
		return
	}

	page, err := s.assembler.Search(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, assemble.ErrUnknownTenant):
			s.writeError(w, http.StatusNotFound, "Affiliate not found", fmt.Sprintf("Affiliate '%s' does not exist", req.Tenant))
		case errors.Is(err, assemble.ErrEmptyQuery):
			s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'query' is required")
		default:
			s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		ResultPage: page,
		Modules:    page.ModuleTags(),
	})
}

func (s *Server) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	names := s.tenants.Names()
	s.writeJSON(w, http.StatusOK, ListTenantsResponse{
		Tenants: names,
		Count:   len(names),
	})
}

func (s *Server) HandleTenant(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	scope, ok := s.tenants.Tenant(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Affiliate not found", fmt.Sprintf("Affiliate '%s' does not exist", name))
		return
	}

	s.writeJSON(w, http.StatusOK, TenantResponse{
		Name:               scope.Name,
		Domains:            scope.Domains,
		ScopeIDs:           scope.ScopeIDs,
		ScopeKeywords:      scope.ScopeKeywords,
		Locale:             scope.Locale,
		LocalIndexOnly:     scope.LocalIndexOnly,
		LocalIndexEligible: scope.LocalIndexEligible,
		AgencyEnabled:      scope.AgencyEnabled,
		MedlineEnabled:     scope.MedlineEnabled,
	})
}

func (s *Server) HandleFirehose(w http.ResponseWriter, r *http.Request) {
	if s.firehose == nil {
		http.NotFound(w, r)
		return
	}
	s.firehose.ServeHTTP(w, r)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
