package scan

import (
	"testing"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
	"github.com/spartridge/dvbsi/internal/settings"
	"github.com/spartridge/dvbsi/internal/sistore"
)

// stubTuner succeeds instantly and invokes fill on every Tune, standing in
// for the sections that start flowing once a real frontend locks.
type stubTuner struct {
	fill  func()
	tunes int
}

func (t *stubTuner) Tune(frequencyHz int64, modulation dvbsi.Modulation, symbolRateSps int64) error {
	t.tunes++
	if t.fill != nil {
		t.fill()
	}
	return nil
}

func (t *stubTuner) Untune() error { return nil }

func cableDescriptor(freqHz int64) dvbsi.Descriptor {
	// 474 MHz QAM256 6875000 sym/s; only the frequency varies per test TS.
	mhz := freqHz / 1000000
	return dvbsi.Descriptor{Tag: dvbsi.TagCableDeliverySystem, Data: []byte{
		byte(mhz/1000)<<4 | byte(mhz/100%10), byte(mhz/10%10)<<4 | byte(mhz%10), 0x00, 0x00,
		0xFF, 0x00, 0x05,
		0x00, 0x68, 0x75, 0x00,
	}}
}

func testScanSettings() settings.ScanSettings {
	return settings.ScanSettings{
		PreferredNetworkID:     1,
		HomeTSFrequencyHz:      474000000,
		HomeTSModulation:       dvbsi.ModulationQAM256,
		HomeTSSymbolRateSps:    6875000,
		FastScanSmart:          true,
		BackgroundScanInterval: time.Hour,
		BarkerEITTimeout:       time.Second,
	}
}

// seedCache installs the full required-table set for one network with one
// transport stream and one service, the shape a fully acquired home TS
// presents.
func seedCache(cache *sistore.Cache) {
	cache.PutNIT(dvbsi.NIT{
		NetworkID: 1,
		Version:   1,
		Streams: []dvbsi.TransportStream{{
			TSID:              100,
			OriginalNetworkID: 1,
			Descriptors:       []dvbsi.Descriptor{cableDescriptor(474000000)},
		}},
	})
	cache.PutSDT(dvbsi.SDT{
		TransportStreamID: 100,
		OriginalNetworkID: 1,
		Version:           1,
		Services:          []dvbsi.Service{{ServiceID: 200, EITPfFlag: true, EITScheduleFlag: true}},
	})
	eit := dvbsi.EIT{ServiceID: 200, TransportStreamID: 100, NetworkID: 1, Version: 1}
	cache.PutEIT(dvbsi.TableIDEITPFActual, eit)
	cache.PutEIT(dvbsi.TableIDEITSchedFirst, eit)
}

func waitForState(t *testing.T, c *Controller, want State, deadline time.Duration) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if c.State() == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("state = %v after %v, want %v", c.State(), deadline, want)
}

func TestController_fastScanHappyPath(t *testing.T) {
	cache := sistore.NewCache()
	tuner := &stubTuner{fill: func() { seedCache(cache) }}
	c := NewController(cache, nil, tuner, nil)

	if err := c.StartScan(testScanSettings(), true); err != nil {
		t.Fatalf("StartScan() error = %v", err)
	}
	if err := c.StartScan(testScanSettings(), true); err != ErrAlreadyRunning {
		t.Errorf("second StartScan() error = %v, want ErrAlreadyRunning", err)
	}

	// The worker rolls fast → background → COMPLETED without waiting in
	// between; everything it needs lands in cache on the first retune.
	waitForState(t, c, StateCompleted, 30*time.Second)

	status := c.Status()
	if len(status.TSList) != 1 {
		t.Fatalf("TSList = %+v, want 1 entry", status.TSList)
	}
	ts := status.TSList[0]
	if ts.TSID != 100 || ts.FrequencyHz != 474000000 {
		t.Errorf("ts identity = %+v", ts)
	}
	if !ts.NITReceived || !ts.SDTReceived || !ts.EITPFReceived || !ts.EITSchedReceived {
		t.Errorf("acquisition bits = %+v, want all true", ts)
	}
	if !ts.BATReceived {
		t.Errorf("BATReceived = false with no bouquets configured, want vacuously true")
	}

	c.StopScan()
	if got := c.State(); got != StateStopped {
		t.Errorf("state after StopScan() = %v, want STOPPED", got)
	}

	// A stopped controller accepts a fresh scan.
	if err := c.StartScan(testScanSettings(), false); err != nil {
		t.Fatalf("StartScan() after stop error = %v", err)
	}
	c.StopScan()
}

func TestController_statusSnapshotIsCopy(t *testing.T) {
	cache := sistore.NewCache()
	c := NewController(cache, nil, &stubTuner{}, nil)
	c.tsList = []TSStatus{{TSID: 1}}

	status := c.Status()
	status.TSList[0].TSID = 99
	if c.tsList[0].TSID != 1 {
		t.Error("Status() leaked the internal tsList slice")
	}
}
