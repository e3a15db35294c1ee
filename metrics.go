package isdbtmux

import "github.com/prometheus/client_golang/prometheus"

// Metrics wires optional prometheus counters onto the mux's write path. A
// nil *Metrics (the default) means every call below is a no-op — wiring
// metrics is opt-in via MuxerOptionMetrics.
type Metrics struct {
	packetsTotal      *prometheus.CounterVec
	tablesTotal       *prometheus.CounterVec
	pmtOverflowsTotal prometheus.Counter
	opusFallbacksTotal prometheus.Counter
}

// NewMetrics registers the mux's counters against reg and returns the
// handle to pass to MuxerOptionMetrics. Passing a prometheus.NewRegistry()
// keeps this isolated from the global default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isdbtmux",
			Name:      "packets_total",
			Help:      "TS packets written, partitioned by class (pes, null); table section packets are not counted.",
		}, []string{"class"}),
		tablesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isdbtmux",
			Name:      "tables_emitted_total",
			Help:      "PSI/SI table sections emitted, partitioned by table name.",
		}, []string{"table"}),
		pmtOverflowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isdbtmux",
			Name:      "pmt_overflows_total",
			Help:      "PMT sections that had to drop trailing streams to fit one section.",
		}),
		opusFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isdbtmux",
			Name:      "opus_mapping_fallbacks_total",
			Help:      "PMT builds in which an Opus stream's channel mapping could not be encoded and fell back to 0xFF.",
		}),
	}
	reg.MustRegister(m.packetsTotal, m.tablesTotal, m.pmtOverflowsTotal, m.opusFallbacksTotal)
	return m
}

func (m *Metrics) packet(class string) {
	if m == nil {
		return
	}
	m.packetsTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) table(t TableKind) {
	if m == nil {
		return
	}
	m.tablesTotal.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) pmtOverflow() {
	if m == nil {
		return
	}
	m.pmtOverflowsTotal.Inc()
}

func (m *Metrics) opusFallback() {
	if m == nil {
		return
	}
	m.opusFallbacksTotal.Inc()
}
