package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	OpEncodeValue = "encode_value"
	OpEncodeKey   = "encode_key"
	OpDecode      = "decode"
)

// Schema fetch results.
const (
	FetchCached  = "cached"
	FetchRemote  = "fetched"
	FetchFailure = "error"
)

// Metrics holds the Prometheus collectors of a Messaging. A nil *Metrics
// records nothing.
type Metrics struct {
	Messages      *prometheus.CounterVec
	Bytes         *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	SchemaFetches *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avromodel",
				Name:      "messages_total",
				Help:      "Total number of messages encoded or decoded",
			},
			[]string{"operation"},
		),
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avromodel",
				Name:      "message_bytes_total",
				Help:      "Total framed message bytes encoded or decoded",
			},
			[]string{"operation"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avromodel",
				Name:      "errors_total",
				Help:      "Total number of failed encode or decode operations",
			},
			[]string{"operation"},
		),
		SchemaFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avromodel",
				Name:      "schema_fetches_total",
				Help:      "Writer schema lookups by id",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) message(op string, size int) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(op).Inc()
	m.Bytes.WithLabelValues(op).Add(float64(size))
}

func (m *Metrics) failure(op string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(op).Inc()
}

func (m *Metrics) fetch(result string) {
	if m == nil {
		return
	}
	m.SchemaFetches.WithLabelValues(result).Inc()
}
