package rest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds API configuration
type Config struct {
	Version string

	// RequestsPerSecond and Burst configure the per-IP limiter; zero
	// disables it.
	RequestsPerSecond float64
	Burst             int

	// Registry receives the HTTP metrics and backs /metrics. A nil registry
	// uses a private one.
	Registry *prometheus.Registry
}

func DefaultConfig() Config {
	return Config{
		Version:           "v1",
		RequestsPerSecond: 100,
		Burst:             200,
	}
}

// NewRouter builds the API handler with its middleware chain.
func NewRouter(h *Handlers, cfg Config, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newHTTPMetrics(reg)

	mux := http.NewServeMux()
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, m.instrument(pattern, fn))
	}

	route("GET /health", h.health)

	route("POST /api/v1/dialing/rate", h.dialingRate)
	route("POST /api/v1/dialing/predictive", h.predictive)
	route("GET /api/v1/dialing/insights", h.insights)

	route("GET /api/v1/owners/{ownerID}/platforms/capacity", h.platformCapacity)
	route("GET /api/v1/owners/{ownerID}/pacing-settings", h.getPacingSettings)
	route("PUT /api/v1/owners/{ownerID}/pacing-settings", h.putPacingSettings)
	route("GET /api/v1/owners/{ownerID}/concurrency-settings", h.getConcurrencySettings)
	route("PUT /api/v1/owners/{ownerID}/concurrency-settings", h.putConcurrencySettings)

	route("POST /api/v1/campaigns/{campaignID}/start", h.startCampaign)
	route("POST /api/v1/campaigns/{campaignID}/stop", h.stopCampaign)
	route("GET /api/v1/campaigns/{campaignID}/pacing", h.pacingSnapshot)
	route("GET /api/v1/campaigns/{campaignID}/compliance", h.complianceSnapshot)
	route("POST /api/v1/campaigns/{campaignID}/prioritize", h.prioritize)
	route("POST /api/v1/campaigns/{campaignID}/dispatch/authorize", h.authorize)

	route("GET /api/v1/openapi.yaml", serveOpenAPI)

	if h.svc.Events != nil {
		mux.Handle("GET /api/v1/ws", h.svc.Events)
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	middlewares := []Middleware{
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		AccessLogMiddleware(logger),
	}
	if cfg.RequestsPerSecond > 0 {
		middlewares = append(middlewares, NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst).Middleware())
	}
	return NewMiddlewareChain(middlewares...).Then(mux)
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPISpec())
}
