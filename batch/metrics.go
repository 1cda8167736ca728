package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports public batch progress. Nothing here depends on a private
// field: the processed count is the batch length and the watermark is public.
type Metrics struct {
	processed prometheus.Counter
	watermark prometheus.Gauge
	build     prometheus.Histogram
}

// NewMetrics creates and registers the batch collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Messages folded into the watermark.",
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark",
			Help:      "Current watermark of record.",
		}),
		build: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_build_seconds",
			Help:      "Time to build, check and commit one validation circuit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	for _, c := range []prometheus.Collector{m.processed, m.watermark, m.build} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.build.Observe(d.Seconds())
}

func (m *Metrics) advance(wm uint32) {
	if m == nil {
		return
	}
	m.processed.Inc()
	m.watermark.Set(float64(wm))
}
