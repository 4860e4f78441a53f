// Package dvbsimetrics provides Prometheus metrics for SI section ingestion.
//
// All metrics use the dvbsi_ prefix. Follows the nil receiver pattern - all
// methods handle nil gracefully for zero overhead when metrics are disabled.
package dvbsimetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for the SI demuxer, store, and scan
// controller.
type Metrics struct {
	// SectionsParsedTotal counts sections handed to the demux, by table_id
	// and outcome (accepted, dropped_unsupported, dropped_malformed,
	// dropped_empty).
	SectionsParsedTotal *prometheus.CounterVec

	// TablesBuiltTotal counts completed sub-table reassemblies, by table_id.
	TablesBuiltTotal *prometheus.CounterVec

	// CacheAdmissionsTotal counts cache admission decisions, by table kind
	// and outcome (admitted, rejected). A repeated version and a NIT
	// filtered out by the preferred network id both count as rejected.
	CacheAdmissionsTotal *prometheus.CounterVec

	// RepairQueueDepth tracks the current size of the deferred BAT link
	// repair queue.
	RepairQueueDepth prometheus.Gauge

	// ScanState reports the current scan controller state as a 0/1 gauge
	// per state label; exactly one label is 1 at a time.
	ScanState *prometheus.GaugeVec

	// RetunesTotal counts tuner retune operations, by reason (home, fast,
	// barker, background).
	RetunesTotal *prometheus.CounterVec

	// WaitTimeoutsTotal counts check_tables waits that expired before all
	// required tables arrived.
	WaitTimeoutsTotal prometheus.Counter
}

// NewMetrics creates and registers Metrics. Pass nil to reg to create
// metrics without registration (useful for testing or when metrics are
// disabled).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SectionsParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvbsi_sections_parsed_total",
				Help: "Total sections handed to the demuxer by table_id and outcome",
			},
			[]string{"table_id", "outcome"},
		),

		TablesBuiltTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvbsi_tables_built_total",
				Help: "Total completed sub-table reassemblies by table_id",
			},
			[]string{"table_id"},
		),

		CacheAdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvbsi_cache_admissions_total",
				Help: "Total cache admission decisions by table kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		RepairQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dvbsi_repair_queue_depth",
				Help: "Current size of the deferred BAT transport-link repair queue",
			},
		),

		ScanState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dvbsi_scan_state",
				Help: "Current scan controller state, 1 for the active state and 0 otherwise",
			},
			[]string{"state"},
		),

		RetunesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dvbsi_retunes_total",
				Help: "Total tuner retune operations by reason",
			},
			[]string{"reason"},
		),

		WaitTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dvbsi_wait_timeouts_total",
				Help: "Total check_tables waits that expired before all required tables arrived",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.SectionsParsedTotal,
			m.TablesBuiltTotal,
			m.CacheAdmissionsTotal,
			m.RepairQueueDepth,
			m.ScanState,
			m.RetunesTotal,
			m.WaitTimeoutsTotal,
		)
	}

	return m
}

// RecordSection records a section outcome for tableID. Safe to call on a
// nil receiver.
func (m *Metrics) RecordSection(tableID string, outcome string) {
	if m == nil {
		return
	}
	m.SectionsParsedTotal.WithLabelValues(tableID, outcome).Inc()
}

// RecordTableBuilt records a completed reassembly for tableID. Safe to call
// on a nil receiver.
func (m *Metrics) RecordTableBuilt(tableID string) {
	if m == nil {
		return
	}
	m.TablesBuiltTotal.WithLabelValues(tableID).Inc()
}

// RecordCacheAdmission records an admission decision. Safe to call on a nil
// receiver.
func (m *Metrics) RecordCacheAdmission(kind string, outcome string) {
	if m == nil {
		return
	}
	m.CacheAdmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// SetRepairQueueDepth sets the current repair queue size. Safe to call on a
// nil receiver.
func (m *Metrics) SetRepairQueueDepth(n int) {
	if m == nil {
		return
	}
	m.RepairQueueDepth.Set(float64(n))
}

// SetScanState marks state as the single active scan state, zeroing every
// other label in allStates. Safe to call on a nil receiver.
func (m *Metrics) SetScanState(state string, allStates []string) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		if s == state {
			m.ScanState.WithLabelValues(s).Set(1)
		} else {
			m.ScanState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordRetune records a tuner retune for reason. Safe to call on a nil
// receiver.
func (m *Metrics) RecordRetune(reason string) {
	if m == nil {
		return
	}
	m.RetunesTotal.WithLabelValues(reason).Inc()
}

// RecordWaitTimeout records a check_tables wait that expired. Safe to call
// on a nil receiver.
func (m *Metrics) RecordWaitTimeout() {
	if m == nil {
		return
	}
	m.WaitTimeoutsTotal.Inc()
}
