package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/revnet-network/revnet-sdk/sdk"
)

const (
	outcomeFound       = "found"
	outcomeExhausted   = "exhausted"
	outcomeUnconverged = "unconverged"
	outcomeCached      = "cached"
	outcomeError       = "error"
)

type metrics struct {
	probes    *prometheus.CounterVec
	estimates *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revnet_bridge_fee_probes_total",
			Help: "Dry-run calls issued while searching bridge fees",
		}, []string{"chain_id"}),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revnet_bridge_fee_estimates_total",
			Help: "Bridge fee estimates served, by outcome",
		}, []string{"chain_id", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revnet_bridge_fee_estimate_seconds",
			Help:    "Time spent producing a bridge fee estimate",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"chain_id"}),
	}
	reg.MustRegister(m.probes, m.estimates, m.latency)
	return m
}

func (m *metrics) observe(chainId uint64, est *sdk.BridgeFeeEstimate, err error, seconds float64) {
	chain := strconv.FormatUint(chainId, 10)
	m.latency.WithLabelValues(chain).Observe(seconds)
	if err != nil {
		m.estimates.WithLabelValues(chain, outcomeError).Inc()
		return
	}
	m.estimates.WithLabelValues(chain, outcome(est)).Inc()
	if !est.Cached {
		m.probes.WithLabelValues(chain).Add(float64(est.Probes))
	}
}

func outcome(est *sdk.BridgeFeeEstimate) string {
	switch {
	case est.Cached:
		return outcomeCached
	case !est.Converged:
		return outcomeUnconverged
	case est.MinimalFee == nil:
		return outcomeExhausted
	default:
		return outcomeFound
	}
}
