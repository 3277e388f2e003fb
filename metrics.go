// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional Prometheus instrumentation for a Harness, attached via
// WithMetrics. It tracks pushes, bytes pushed, suspensions, buffer
// compactions, and terminal outcomes by kind, following the same
// registerer-owns-the-collectors shape sipgo uses for its request metrics:
// the caller constructs one Metrics per registry and shares it across every
// Harness it creates.
type Metrics struct {
	pushesTotal      prometheus.Counter
	bytesPushed      prometheus.Counter
	suspensionsTotal prometheus.Counter
	compactionsTotal prometheus.Counter
	terminalsTotal   *prometheus.CounterVec
}

// NewMetrics registers a Metrics' collectors against reg and returns it.
// Passing the same *prometheus.Registry to two Metrics instances in the
// same process will panic on the duplicate registration, exactly as any
// other prometheus.Registerer does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamparser",
			Name:      "pushes_total",
			Help:      "Number of Push calls across all harnesses sharing this Metrics.",
		}),
		bytesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamparser",
			Name:      "bytes_pushed_total",
			Help:      "Total bytes passed to Push across all harnesses sharing this Metrics.",
		}),
		suspensionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamparser",
			Name:      "suspensions_total",
			Help:      "Number of times a parser primitive suspended waiting for more bytes.",
		}),
		compactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamparser",
			Name:      "compactions_total",
			Help:      "Number of times a Reader compacted its consumed buffer prefix.",
		}),
		terminalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamparser",
			Name:      "terminal_total",
			Help:      "Harness terminations, labeled by kind (start, push, eof, eof-clean, close).",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.pushesTotal, m.bytesPushed, m.suspensionsTotal, m.compactionsTotal, m.terminalsTotal)
	return m
}

func (m *Metrics) observePush(n int) {
	m.pushesTotal.Inc()
	m.bytesPushed.Add(float64(n))
}

func (m *Metrics) observeSuspend() {
	m.suspensionsTotal.Inc()
}

func (m *Metrics) observeCompaction() {
	m.compactionsTotal.Inc()
}

func (m *Metrics) observeTerminal(kind string) {
	m.terminalsTotal.WithLabelValues(kind).Inc()
}
