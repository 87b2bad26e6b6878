package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/webapp/internal/server/metrics"
)

// elbUserAgent identifies load balancer probes, which always get 200.
const elbUserAgent = "ELB-HealthChecker/2.0"

// handleHealthz answers GET with 200 or 503 from a database ping. HEAD and
// OPTIONS also ping and answer 405, or 503 when the database is down. Any
// other method is 405. Responses carry no body.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.UserAgent() == elbUserAgent {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.RawQuery != "" || hasBody(r) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.probe(w, r, "GET_Health", http.StatusOK)

	case http.MethodHead:
		s.probe(w, r, "HEAD_Health", http.StatusMethodNotAllowed)

	case http.MethodOptions:
		s.probe(w, r, "OPTIONS_Health", http.StatusMethodNotAllowed)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) probe(w http.ResponseWriter, r *http.Request, metric string, okStatus int) {
	defer metrics.Since(s.metrics, metric, time.Now())

	if err := s.health.Check(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(okStatus)
}
