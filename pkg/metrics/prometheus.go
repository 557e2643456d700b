package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code and HTTP method.",
	Type:        "counter_vec",
	Args:        []string{"code", "method", "url", "ref"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"code", "method", "url", "ref"},
}

type Logger interface {
	Errorf(format string, v ...interface{})
	Infow(msg string, keysAndValues ...interface{})
}

// HTTPMetrics instruments a gin engine and serves /metrics on its own listener,
// which keeps scrapes out of the API access log.
type HTTPMetrics struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	server *http.Server
	logger Logger

	// URLLabel controls the cardinality of the "url" label. Defaults to the matched route.
	URLLabel func(c *gin.Context) string
}

func NewHTTPMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer, listenAddr string, logger Logger) (*HTTPMetrics, error) {
	cnt, err := register(reg, reqCnt)
	if err != nil {
		return nil, err
	}
	dur, err := register(reg, reqDur)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &HTTPMetrics{
		reqCnt: cnt.(*prometheus.CounterVec),
		reqDur: dur.(*prometheus.HistogramVec),
		server: &http.Server{Addr: listenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
		URLLabel: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		},
	}, nil
}

// HandlerFunc records count and latency of every request.
func (p *HTTPMetrics) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.URLLabel(c)
		ref := c.Request.Header.Get(RefererKey)
		p.reqDur.WithLabelValues(status, c.Request.Method, url, ref).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, c.Request.Method, url, ref).Inc()
	}
}

func (p *HTTPMetrics) Start() {
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorf("metrics server error: %v", err)
		}
	}()
	p.logger.Infow("metrics started", "addr", p.server.Addr)
}

func (p *HTTPMetrics) Stop(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}

// MillisecondsSince returns the elapsed time since start in fractional milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
