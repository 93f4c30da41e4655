package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Image counter statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// Metrics counts processed images and descriptors. It owns a private
// registry so several pipelines can coexist in one process.
type Metrics struct {
	Registry    *prometheus.Registry
	Images      *prometheus.CounterVec
	Descriptors *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bow_images_total",
			Help: "Images processed, by operation and outcome.",
		}, []string{"op", "status"}),
		Descriptors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bow_descriptors_total",
			Help: "Local descriptors extracted, by operation.",
		}, []string{"op"}),
	}
	m.Registry.MustRegister(m.Images, m.Descriptors)
	return m
}

func (m *Metrics) image(op string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusSkipped
	}
	m.Images.WithLabelValues(op, status).Inc()
}

func (m *Metrics) descriptors(op string, n int) {
	m.Descriptors.WithLabelValues(op).Add(float64(n))
}

// WriteTextfile writes all counters in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
