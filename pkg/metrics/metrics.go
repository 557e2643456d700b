package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Gateway round trips (500ms - 5s) ---
	750, 1000, 1500, 2000, 3000, 5000,

	// --- Slow gateways, bounded by the client timeout (5s - 60s) ---
	7500, 10000, 15000, 30000, 60000,
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
			m.Args,
		)
	case "histogram":
		metric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
		)
	}
	return metric
}

var MetricsGatewayRequest = &Metric{
	ID:          "gwDur",
	Name:        "gateway_request_dur_ms",
	Description: "Gateway round-trip latency in milliseconds, partitioned by backend, operation and outcome.",
	Type:        "histogram_vec",
	Args:        []string{"backend", "operation", "outcome"},
}

var MetricsTransactionEvent = &Metric{
	ID:          "txEvt",
	Name:        "transaction_event_total",
	Description: "Transaction lifecycle events, partitioned by event and resulting status.",
	Type:        "counter_vec",
	Args:        []string{"event", "status"},
}

// PaymentMetrics holds the collectors used by the payment flows. A nil *PaymentMetrics is a no-op.
type PaymentMetrics struct {
	gatewayDur *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment collectors on reg. Already registered
// collectors are reused so repeated construction in tests stays harmless.
func NewPaymentMetrics(reg prometheus.Registerer) (*PaymentMetrics, error) {
	gw, err := register(reg, MetricsGatewayRequest)
	if err != nil {
		return nil, err
	}
	ev, err := register(reg, MetricsTransactionEvent)
	if err != nil {
		return nil, err
	}
	return &PaymentMetrics{
		gatewayDur: gw.(*prometheus.HistogramVec),
		events:     ev.(*prometheus.CounterVec),
	}, nil
}

func (m *PaymentMetrics) ObserveGatewayRequest(backend, operation, outcome string, elapsedMs float64) {
	if m == nil {
		return
	}
	m.gatewayDur.WithLabelValues(backend, operation, outcome).Observe(elapsedMs)
}

func (m *PaymentMetrics) IncEvent(event, status string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, status).Inc()
}

func register(reg prometheus.Registerer, def *Metric) (prometheus.Collector, error) {
	c := NewMetric(def, Subsystem)
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	def.MetricCollector = c
	return c, nil
}

const (
	Subsystem  = "payportal"
	RefererKey = "X-Referer"
)
