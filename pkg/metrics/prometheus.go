package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedPattern labels requests that did not match any route, so unknown
// paths cannot blow up label cardinality.
const unmatchedPattern = "unmatched"

var defaultLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Collector records request metrics into its own Prometheus registry.
// Requests are labelled by method and matched route pattern, not raw path.
type Collector struct {
	registry   *prometheus.Registry
	config     Config
	filter     Filter
	sampler    Sampler
	reqCount   *prometheus.CounterVec
	reqLatency *prometheus.HistogramVec
	reqSize    *prometheus.HistogramVec
	respSize   *prometheus.HistogramVec
	errCount   *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

// NewCollector creates a collector and registers its metrics.
// A zero Config enables every metric family.
func NewCollector(config Config) *Collector {
	if !config.EnableLatency && !config.EnableThroughput && !config.EnableQPS && !config.EnableErrors {
		config.EnableLatency = true
		config.EnableThroughput = true
		config.EnableQPS = true
		config.EnableErrors = true
	}
	rate := config.SamplingRate
	if rate == 0 {
		rate = 1
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		config:   config,
		sampler:  NewRandomSampler(rate),
	}
	opts := func(name, help string) (string, string, string, string, prometheus.Labels) {
		return config.Namespace, config.Subsystem, name, help, config.ConstLabels
	}

	c.inFlight = prometheus.NewGauge(gaugeOpts(opts("http_requests_in_flight", "Number of requests currently being served")))
	c.registry.MustRegister(c.inFlight)

	if config.EnableQPS {
		c.reqCount = prometheus.NewCounterVec(counterOpts(opts("http_requests_total", "Total number of HTTP requests")),
			[]string{"method", "pattern", "status"})
		c.registry.MustRegister(c.reqCount)
	}

	if config.EnableLatency {
		buckets := config.LatencyBuckets
		if len(buckets) == 0 {
			buckets = defaultLatencyBuckets
		}
		ho := histogramOpts(opts("http_request_duration_seconds", "HTTP request latency in seconds"))
		ho.Buckets = buckets
		c.reqLatency = prometheus.NewHistogramVec(ho, []string{"method", "pattern"})
		c.registry.MustRegister(c.reqLatency)
	}

	if config.EnableThroughput {
		sizeBuckets := []float64{100, 1000, 10000, 100000, 1000000}
		ho := histogramOpts(opts("http_request_size_bytes", "HTTP request size in bytes"))
		ho.Buckets = sizeBuckets
		c.reqSize = prometheus.NewHistogramVec(ho, []string{"method", "pattern"})

		ho = histogramOpts(opts("http_response_size_bytes", "HTTP response size in bytes"))
		ho.Buckets = sizeBuckets
		c.respSize = prometheus.NewHistogramVec(ho, []string{"method", "pattern"})
		c.registry.MustRegister(c.reqSize, c.respSize)
	}

	if config.EnableErrors {
		c.errCount = prometheus.NewCounterVec(counterOpts(opts("http_errors_total", "Total number of HTTP errors")),
			[]string{"method", "pattern", "status"})
		c.registry.MustRegister(c.errCount)
	}

	return c
}

func counterOpts(ns, sub, name, help string, labels prometheus.Labels) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: labels}
}

func gaugeOpts(ns, sub, name, help string, labels prometheus.Labels) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: labels}
}

func histogramOpts(ns, sub, name, help string, labels prometheus.Labels) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: labels}
}

// WithFilter returns a copy of the collector's middleware settings using filter.
// The copy shares the registry and metrics.
func (c *Collector) WithFilter(filter Filter) *Collector {
	cp := *c
	cp.filter = filter
	return &cp
}

// WithSampler returns a copy of the collector using sampler.
func (c *Collector) WithSampler(sampler Sampler) *Collector {
	cp := *c
	cp.sampler = sampler
	return &cp
}

// Registry returns the underlying Prometheus registry, for registering
// application metrics next to the request metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the exposition handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// HandlerFunc returns the exposition handler as a route handler.
func (c *Collector) HandlerFunc() common.HandlerFunc {
	return common.WrapHTTP(c.Handler())
}

// Middleware returns the middleware that records request metrics.
func (c *Collector) Middleware() common.Middleware {
	return func(ctx *common.Context, next common.HandlerFunc) *common.Response {
		// Check if we should collect metrics for this request
		if c.filter != nil && !c.filter.Filter(ctx) {
			return next(ctx)
		}
		if !c.sampler.Sample() {
			return next(ctx)
		}

		c.inFlight.Inc()
		defer c.inFlight.Dec()

		method := ctx.Method()
		start := time.Now()

		resp := next(ctx)

		pattern := ctx.Pattern
		if pattern == "" {
			pattern = unmatchedPattern
		}
		status := statusOf(resp)

		if c.reqCount != nil {
			c.reqCount.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
		}
		if c.reqLatency != nil {
			c.reqLatency.WithLabelValues(method, pattern).Observe(time.Since(start).Seconds())
		}
		if c.reqSize != nil && ctx.Request.ContentLength > 0 {
			c.reqSize.WithLabelValues(method, pattern).Observe(float64(ctx.Request.ContentLength))
		}
		if c.respSize != nil {
			size := 0
			if resp != nil {
				size = len(resp.Body)
			}
			c.respSize.WithLabelValues(method, pattern).Observe(float64(size))
		}
		if c.errCount != nil && status >= 400 {
			c.errCount.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
		}
		return resp
	}
}
