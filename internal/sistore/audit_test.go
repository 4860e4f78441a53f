package sistore

import (
	"context"
	"testing"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

func TestAudit_purgesStaleEvents(t *testing.T) {
	store := openTestStore(t)
	ctrl := NewController(NewCache(), store, nil)
	ctx := context.Background()

	ctrl.OnTable(ctx, dvbsi.TableIDNITActual, dvbsi.NIT{NetworkID: 1, Version: 1, Streams: []dvbsi.TransportStream{{TSID: 100, OriginalNetworkID: 1}}})
	ctrl.OnTable(ctx, dvbsi.TableIDSDTActual, dvbsi.SDT{TransportStreamID: 100, OriginalNetworkID: 1, Version: 1, Services: []dvbsi.Service{{ServiceID: 200}}})

	old := time.Now().Add(-2 * time.Hour)
	enc := mjdEncode(old)
	ctrl.OnTable(ctx, dvbsi.TableIDEITSchedFirst, dvbsi.EIT{
		ServiceID: 200, TransportStreamID: 100, NetworkID: 1, Version: 1,
		Events: []dvbsi.Event{{EventID: 1, StartTimeMJDBCD: enc}},
	})

	if err := store.Audit(time.Now(), false); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM Event`).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Errorf("Event count = %d after audit, want 0 (stale event purged)", count)
	}
}

// mjdEncode is the test-side inverse of dvbsi's MJD decoder, used to build
// fixtures without exposing package-internal encoding helpers.
func mjdEncode(t time.Time) uint64 {
	t = t.UTC()
	mjd := uint64(t.Unix()/86400) + 40587
	hh := byte(t.Hour()/10)<<4 | byte(t.Hour()%10)
	mm := byte(t.Minute()/10)<<4 | byte(t.Minute()%10)
	ss := byte(t.Second()/10)<<4 | byte(t.Second()%10)
	return mjd<<24 | uint64(hh)<<16 | uint64(mm)<<8 | uint64(ss)
}
