// Package metrics defines and registers all custom Prometheus metrics for the
// portfolio platform. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry on package import;
// binaries expose them through echoprometheus.NewHandler at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	edgeNamespace      = "edge"
	portfolioNamespace = "portfolio"
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// RateLimitRejectionsTotal counts requests denied by the admission limiter.
var RateLimitRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: edgeNamespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)

// RateLimitStoreErrorsTotal counts limiter backend failures that were
// admitted without a decision.
var RateLimitStoreErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: edgeNamespace,
		Name:      "rate_limit_store_errors_total",
		Help:      "Total number of rate limiter store errors (request admitted).",
	},
)

// AuthFailuresTotal counts requests rejected by the identity verifier.
// Label:
//   - reason: "missing_token" or "invalid_token"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: edgeNamespace,
		Name:      "auth_failures_total",
		Help:      "Total number of requests rejected by the token verifier.",
	},
	[]string{"reason"},
)

// ProxyErrorsTotal counts upstream failures surfaced to callers.
// Labels:
//   - service: backend name from the route table (e.g. "auth", "education")
//   - kind: "timeout" or "unavailable"
var ProxyErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: edgeNamespace,
		Name:      "proxy_errors_total",
		Help:      "Total number of proxied requests that failed upstream.",
	},
	[]string{"service", "kind"},
)

// UpstreamDuration measures round trips to each backend.
// Label:
//   - service: backend name from the route table
var UpstreamDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: edgeNamespace,
		Name:      "upstream_duration_seconds",
		Help:      "Duration of proxied requests, from dispatch to upstream response headers.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"service"},
)

// ── Portfolio metrics ─────────────────────────────────────────────────────────

// PublishTotal counts publication state changes.
// Label:
//   - state: "published" or "unpublished"
var PublishTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: portfolioNamespace,
		Name:      "publish_total",
		Help:      "Total number of publish and un-publish operations.",
	},
	[]string{"state"},
)

// SlugCollisionsTotal counts slug candidates rejected because another
// portfolio already holds them.
var SlugCollisionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: portfolioNamespace,
		Name:      "slug_collisions_total",
		Help:      "Total number of slug candidates that collided with an existing slug.",
	},
)

// PortfolioRecorder feeds the portfolio counters above. It satisfies
// ports.PortfolioRecorder.
type PortfolioRecorder struct{}

func (PortfolioRecorder) PublicationChanged(published bool) {
	state := "unpublished"
	if published {
		state = "published"
	}
	PublishTotal.WithLabelValues(state).Inc()
}

func (PortfolioRecorder) SlugCollision() {
	SlugCollisionsTotal.Inc()
}
