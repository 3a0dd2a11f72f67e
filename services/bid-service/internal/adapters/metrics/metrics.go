package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

// BidMetrics implements bids.Observer on a Prometheus registry.
type BidMetrics struct {
	submissions *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewBidMetrics registers the bid metrics on reg. watchers, when non-nil,
// backs the bid_watchers gauge.
func NewBidMetrics(reg prometheus.Registerer, watchers func() int) *BidMetrics {
	m := &BidMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bids_submitted_total",
			Help: "Bid submissions by result.",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bid_broadcast_deliveries_total",
			Help: "Broadcast attempts by sink and status.",
		}, []string{"sink", "status"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bid_broadcast_dropped_total",
			Help: "Receivers that missed a bid because they were too slow.",
		}, []string{"sink"}),
	}
	reg.MustRegister(m.submissions, m.deliveries, m.dropped)

	if watchers != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bid_watchers",
			Help: "Connected real-time bid watchers.",
		}, func() float64 { return float64(watchers()) }))
	}
	return m
}

func (m *BidMetrics) ObserveSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

func (m *BidMetrics) ObserveDelivery(outcome bids.DeliveryOutcome) {
	m.deliveries.WithLabelValues(outcome.Sink, string(outcome.Status)).Inc()
	if outcome.Dropped > 0 {
		m.dropped.WithLabelValues(outcome.Sink).Add(float64(outcome.Dropped))
	}
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
