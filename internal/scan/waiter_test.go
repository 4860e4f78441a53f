package scan

import (
	"testing"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
	"github.com/spartridge/dvbsi/internal/sistore"
)

func TestCheckTables_oneShotProbe(t *testing.T) {
	cache := sistore.NewCache()
	req := []requirement{nitRequirement(1)}

	if checkTables(cache, req, 0, nil) {
		t.Error("checkTables() = true on empty cache probe, want false")
	}

	cache.PutNIT(dvbsi.NIT{NetworkID: 1, Version: 1})
	if !checkTables(cache, req, 0, nil) {
		t.Error("checkTables() = false with NIT cached, want true")
	}
}

func TestCheckTables_findsLateArrival(t *testing.T) {
	cache := sistore.NewCache()
	req := []requirement{sdtRequirement(1, 100)}

	go func() {
		time.Sleep(200 * time.Millisecond)
		cache.PutSDT(dvbsi.SDT{TransportStreamID: 100, OriginalNetworkID: 1, Version: 1})
	}()

	if !checkTables(cache, req, 3*time.Second, nil) {
		t.Error("checkTables() = false, want true once the SDT arrived")
	}
}

func TestCheckTables_stopAborts(t *testing.T) {
	cache := sistore.NewCache()
	req := []requirement{batRequirement(9)}
	stopCh := make(chan struct{})
	close(stopCh)

	start := time.Now()
	if checkTables(cache, req, 30*time.Second, stopCh) {
		t.Error("checkTables() = true with nothing cached, want false")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("checkTables() took %v after stop, want prompt abort", elapsed)
	}
}

func TestCheckTables_eitKeyRespectsPresentFollowing(t *testing.T) {
	cache := sistore.NewCache()
	cache.PutEIT(dvbsi.TableIDEITSchedFirst, dvbsi.EIT{ServiceID: 5, TransportStreamID: 2, NetworkID: 1, Version: 1})

	if checkTables(cache, []requirement{eitRequirement(1, 2, 5, true)}, 0, nil) {
		t.Error("present/following requirement satisfied by a schedule EIT")
	}
	if !checkTables(cache, []requirement{eitRequirement(1, 2, 5, false)}, 0, nil) {
		t.Error("schedule requirement not satisfied by a schedule EIT")
	}
}
