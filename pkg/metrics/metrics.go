// Package metrics provides Prometheus request metrics for the ree router.
package metrics

import (
	"math/rand"
	"net/http"

	"github.com/Suhaibinator/ree/pkg/common"
)

// Config configures the metrics collector.
type Config struct {
	// Namespace and Subsystem prefix every metric name.
	Namespace string
	Subsystem string
	// EnableLatency enables the request duration histogram
	EnableLatency bool
	// EnableThroughput enables request and response size histograms
	EnableThroughput bool
	// EnableQPS enables the request counter
	EnableQPS bool
	// EnableErrors enables the error counter for 4xx and 5xx responses
	EnableErrors bool
	// LatencyBuckets defines the buckets for latency histograms
	LatencyBuckets []float64
	// SamplingRate defines the sampling rate for metrics (0.0-1.0); 0 means 1.0
	SamplingRate float64
	// ConstLabels are added to all metrics
	ConstLabels map[string]string
}

// Filter determines whether to collect metrics for a request
type Filter interface {
	// Filter returns true if metrics should be collected for the request
	Filter(c *common.Context) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(c *common.Context) bool

// Filter calls f.
func (f FilterFunc) Filter(c *common.Context) bool {
	return f(c)
}

// ExcludePaths returns a filter that skips the given request paths, such as
// the metrics endpoint itself.
func ExcludePaths(paths ...string) Filter {
	excluded := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		excluded[p] = struct{}{}
	}
	return FilterFunc(func(c *common.Context) bool {
		_, skip := excluded[c.Path()]
		return !skip
	})
}

// Sampler samples metrics at a given rate
type Sampler interface {
	// Sample returns true if the request should be measured
	Sample() bool
}

type randomSampler struct {
	rate float64
}

// NewRandomSampler creates a new random sampler with the given rate
func NewRandomSampler(rate float64) Sampler {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	return &randomSampler{rate: rate}
}

// Sample returns true if the metric should be sampled
func (s *randomSampler) Sample() bool {
	if s.rate >= 1.0 {
		return true
	}
	if s.rate <= 0.0 {
		return false
	}
	return rand.Float64() < s.rate
}

func statusOf(resp *common.Response) int {
	if resp == nil || resp.StatusCode == 0 {
		return http.StatusOK
	}
	return resp.StatusCode
}
