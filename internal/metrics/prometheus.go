package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the Prometheus text exposition media type.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Names of the request pipeline instruments.
const (
	RequestsTotal   = "http_requests_total"
	RequestDuration = "http_request_duration_seconds"
)

// Registry is a Sink backed by a private Prometheus registry. Vectors are
// created on first use; a name is bound to the label keys it was first
// recorded with.
type Registry struct {
	mu         sync.RWMutex
	reg        *prometheus.Registry
	namespace  string
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labelKeys  map[string][]string
}

// NewRegistry returns an empty Registry. Go runtime and process collectors
// are registered when withRuntime is set.
func NewRegistry(namespace string, withRuntime bool) *Registry {
	r := &Registry{
		reg:        prometheus.NewRegistry(),
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelKeys:  make(map[string][]string),
	}
	if withRuntime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// IncrementCounter adds one to the named counter.
func (r *Registry) IncrementCounter(name string, labels map[string]string) error {
	vec, err := r.counter(name, labels)
	if err != nil {
		return err
	}
	c, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return fmt.Errorf("counter %s: %w", name, err)
	}
	c.Inc()
	return nil
}

// ObserveHistogram records value in the named histogram.
func (r *Registry) ObserveHistogram(name string, labels map[string]string, value float64) error {
	vec, err := r.histogram(name, labels)
	if err != nil {
		return err
	}
	h, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return fmt.Errorf("histogram %s: %w", name, err)
	}
	h.Observe(value)
	return nil
}

// RenderText gathers the registry in the text exposition format.
func (r *Registry) RenderText() (string, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}

func (r *Registry) counter(name string, labels map[string]string) (*prometheus.CounterVec, error) {
	keys := sortedKeys(labels)
	r.mu.RLock()
	vec, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return vec, r.checkKeys(name, keys)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[name]; ok {
		return vec, r.checkKeysLocked(name, keys)
	}
	if _, taken := r.histograms[name]; taken {
		return nil, fmt.Errorf("metric %s already registered as histogram", name)
	}
	vec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Counter " + name + ".",
	}, keys)
	if err := r.reg.Register(vec); err != nil {
		return nil, fmt.Errorf("register counter %s: %w", name, err)
	}
	r.counters[name] = vec
	r.labelKeys[name] = keys
	return vec, nil
}

func (r *Registry) histogram(name string, labels map[string]string) (*prometheus.HistogramVec, error) {
	keys := sortedKeys(labels)
	r.mu.RLock()
	vec, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return vec, r.checkKeys(name, keys)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[name]; ok {
		return vec, r.checkKeysLocked(name, keys)
	}
	if _, taken := r.counters[name]; taken {
		return nil, fmt.Errorf("metric %s already registered as counter", name)
	}
	vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Histogram " + name + ".",
		Buckets:   prometheus.DefBuckets,
	}, keys)
	if err := r.reg.Register(vec); err != nil {
		return nil, fmt.Errorf("register histogram %s: %w", name, err)
	}
	r.histograms[name] = vec
	r.labelKeys[name] = keys
	return vec, nil
}

func (r *Registry) checkKeys(name string, keys []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkKeysLocked(name, keys)
}

func (r *Registry) checkKeysLocked(name string, keys []string) error {
	want := r.labelKeys[name]
	if len(want) != len(keys) {
		return fmt.Errorf("metric %s: label keys %v, want %v", name, keys, want)
	}
	for i := range want {
		if want[i] != keys[i] {
			return fmt.Errorf("metric %s: label keys %v, want %v", name, keys, want)
		}
	}
	return nil
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
