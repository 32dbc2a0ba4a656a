package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/tenants", s.HandleListTenants)
	mux.HandleFunc("GET /api/tenants/{name}", s.HandleTenant)
	mux.HandleFunc("GET /api/firehose", s.HandleFirehose)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
