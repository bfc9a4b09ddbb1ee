// Package metrics defines the narrow recording interface used by the
// request pipeline and a Prometheus-backed implementation of it.
package metrics

import "errors"

// ErrDisabled is returned by RenderText when no sink is configured.
var ErrDisabled = errors.New("metrics disabled")

// Sink records request counters and histograms and renders them as text.
// Implementations must tolerate concurrent use.
type Sink interface {
	IncrementCounter(name string, labels map[string]string) error
	ObserveHistogram(name string, labels map[string]string, value float64) error
	RenderText() (string, error)
}

// Noop discards everything. It is the sink used when metrics are disabled.
type Noop struct{}

func (Noop) IncrementCounter(string, map[string]string) error { return nil }

func (Noop) ObserveHistogram(string, map[string]string, float64) error { return nil }

func (Noop) RenderText() (string, error) { return "", ErrDisabled }

// Enabled reports whether s records anything.
func Enabled(s Sink) bool {
	if s == nil {
		return false
	}
	_, noop := s.(Noop)
	return !noop
}

// OrNoop returns s, or Noop when s is nil.
func OrNoop(s Sink) Sink {
	if s == nil {
		return Noop{}
	}
	return s
}
