// Package api exposes the search service over HTTP with JSON responses.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/fedsearch/fedsearch/pkg/assemble"
	"github.com/fedsearch/fedsearch/pkg/impression"
	"github.com/fedsearch/fedsearch/pkg/log"
	"github.com/fedsearch/fedsearch/pkg/tenant"
)

type Server struct {
	assembler *assemble.Assembler
	tenants   *tenant.Store
	firehose  *impression.Firehose
	logger    *log.Logger
}

// NewServer builds the HTTP layer. firehose may be nil, in which case the
// firehose endpoint responds 404.
func NewServer(assembler *assemble.Assembler, tenants *tenant.Store, firehose *impression.Firehose) *Server {
	return &Server{
		assembler: assembler,
		tenants:   tenants,
		firehose:  firehose,
		logger:    log.ForService("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
