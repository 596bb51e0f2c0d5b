package metrics

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the process's registered collectors over /metrics on
// its own listener, independent of the caller-facing HTTP surface in
// cmd/billverify — grounded on the teacher's own metrics server
// wrapper rather than folding /metrics into the general-purpose router.
type Server struct {
	httpServer *http.Server
	logger     logr.Logger
}

func NewServer(addr string, logger logr.Logger) *Server {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		logger:     logger,
	}
}

// StartAsync begins serving in a background goroutine. A listen error
// other than http.ErrServerClosed is logged; it does not panic the
// caller's goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(err, "metrics: server stopped unexpectedly")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
