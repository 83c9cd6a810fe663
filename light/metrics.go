package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is a subsystem shared by all metrics exposed by this
// package.
const MetricsSubsystem = "light"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of links verified.
	LinksVerified metrics.Counter
	// Number of failed links, by reason.
	LinkFailures metrics.Counter
	// Verified weight over threshold weight of the last verified link.
	VerifiedWeightRatio metrics.Gauge
	// Seqno of the newest verified block.
	LatestVerifiedSeqno metrics.Gauge
	// Time spent verifying one link.
	LinkVerificationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		LinksVerified: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "links_verified",
			Help:      "Number of key block links verified.",
		}, labels).With(labelsAndValues...),
		LinkFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "link_failures",
			Help:      "Number of key block links that failed verification.",
		}, append(labels, "reason")).With(labelsAndValues...),
		VerifiedWeightRatio: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "verified_weight_ratio",
			Help:      "Verified signing weight divided by the main validator set weight.",
		}, labels).With(labelsAndValues...),
		LatestVerifiedSeqno: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "latest_verified_seqno",
			Help:      "Seqno of the newest verified masterchain block.",
		}, labels).With(labelsAndValues...),
		LinkVerificationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "link_verification_seconds",
			Help:      "Time spent verifying a key block link.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 2, 12),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		LinksVerified:           discard.NewCounter(),
		LinkFailures:            discard.NewCounter(),
		VerifiedWeightRatio:     discard.NewGauge(),
		LatestVerifiedSeqno:     discard.NewGauge(),
		LinkVerificationSeconds: discard.NewHistogram(),
	}
}
