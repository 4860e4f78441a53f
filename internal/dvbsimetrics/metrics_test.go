package dvbsimetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewMetrics_registersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	if m == nil {
		t.Fatal("NewMetrics() = nil")
	}
}

func TestMetrics_recordCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordSection("0x42", "accepted")
	m.RecordSection("0x42", "accepted")
	got := counterValue(t, m.SectionsParsedTotal.WithLabelValues("0x42", "accepted"))
	if got != 2 {
		t.Errorf("SectionsParsedTotal = %v, want 2", got)
	}

	m.RecordTableBuilt("0x42")
	if got := counterValue(t, m.TablesBuiltTotal.WithLabelValues("0x42")); got != 1 {
		t.Errorf("TablesBuiltTotal = %v, want 1", got)
	}

	m.RecordCacheAdmission("sdt", "admitted")
	if got := counterValue(t, m.CacheAdmissionsTotal.WithLabelValues("sdt", "admitted")); got != 1 {
		t.Errorf("CacheAdmissionsTotal = %v, want 1", got)
	}

	m.RecordRetune("fast")
	if got := counterValue(t, m.RetunesTotal.WithLabelValues("fast")); got != 1 {
		t.Errorf("RetunesTotal = %v, want 1", got)
	}

	m.RecordWaitTimeout()
	if got := counterValue(t, m.WaitTimeoutsTotal); got != 1 {
		t.Errorf("WaitTimeoutsTotal = %v, want 1", got)
	}
}

func TestMetrics_setRepairQueueDepth(t *testing.T) {
	m := NewMetrics(nil)
	m.SetRepairQueueDepth(3)
	if got := gaugeValue(t, m.RepairQueueDepth); got != 3 {
		t.Errorf("RepairQueueDepth = %v, want 3", got)
	}
}

func TestMetrics_setScanState_exclusivity(t *testing.T) {
	m := NewMetrics(nil)
	states := []string{"STOPPED", "IN_PROGRESS_FAST", "COMPLETED"}

	m.SetScanState("IN_PROGRESS_FAST", states)
	if got := gaugeValue(t, m.ScanState.WithLabelValues("IN_PROGRESS_FAST")); got != 1 {
		t.Errorf("ScanState[IN_PROGRESS_FAST] = %v, want 1", got)
	}
	if got := gaugeValue(t, m.ScanState.WithLabelValues("STOPPED")); got != 0 {
		t.Errorf("ScanState[STOPPED] = %v, want 0", got)
	}

	m.SetScanState("COMPLETED", states)
	if got := gaugeValue(t, m.ScanState.WithLabelValues("IN_PROGRESS_FAST")); got != 0 {
		t.Errorf("ScanState[IN_PROGRESS_FAST] = %v, want 0 after transition", got)
	}
	if got := gaugeValue(t, m.ScanState.WithLabelValues("COMPLETED")); got != 1 {
		t.Errorf("ScanState[COMPLETED] = %v, want 1", got)
	}
}

func TestMetrics_nilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.RecordSection("0x42", "accepted")
	m.RecordTableBuilt("0x42")
	m.RecordCacheAdmission("sdt", "admitted")
	m.SetRepairQueueDepth(1)
	m.SetScanState("STOPPED", []string{"STOPPED"})
	m.RecordRetune("fast")
	m.RecordWaitTimeout()
}
