package sistore

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
	"github.com/spartridge/dvbsi/internal/dvbsimetrics"
)

// Controller is the storage controller: it fans an incoming
// typed table out to the in-memory Cache and the durable Store, and exposes
// the read-side catalogue API higher layers use.
type Controller struct {
	cache   *Cache
	store   *Store
	metrics *dvbsimetrics.Metrics

	// tdtSink, when set, receives every accepted TDT/TOT table exactly
	// once, the hook the clock adapter hangs off.
	tdtSink func(dvbsi.TDTTOT)

	tdtObserved atomic.Bool
}

// NewController wires cache and store together. Either may be used alone by
// other code for narrower tests; Controller is the combined façade the scan
// controller drives. metrics may be nil.
func NewController(cache *Cache, store *Store, metrics *dvbsimetrics.Metrics) *Controller {
	return &Controller{cache: cache, store: store, metrics: metrics}
}

// SetTDTSink registers fn to receive every accepted TDT/TOT table. Must be
// called before tables start flowing; not safe to race with OnTable.
func (c *Controller) SetTDTSink(fn func(dvbsi.TDTTOT)) { c.tdtSink = fn }

// TDTObserved reports whether any TDT/TOT has been delivered since startup,
// the gate the stale-store audit checks.
func (c *Controller) TDTObserved() bool { return c.tdtObserved.Load() }

// OnTable routes table (one of dvbsi.NIT, BAT, SDT, EIT, TDTTOT) to its
// cache and persistence handlers. tableID disambiguates the EIT
// present/following-vs-schedule variants, which share the Go type EIT.
func (c *Controller) OnTable(ctx context.Context, tableID byte, table any) {
	switch t := table.(type) {
	case dvbsi.NIT:
		c.onNIT(t)
	case dvbsi.BAT:
		c.onBAT(t)
	case dvbsi.SDT:
		c.onSDT(t)
	case dvbsi.EIT:
		c.onEIT(tableID, t)
	case dvbsi.TDTTOT:
		c.onTDTTOT(t)
	default:
		log.Printf("sistore: OnTable: unrecognized table type %T", table)
	}
}

func (c *Controller) recordAdmission(kind string, admitted bool) {
	outcome := "admitted"
	if !admitted {
		outcome = "rejected"
	}
	c.metrics.RecordCacheAdmission(kind, outcome)
}

func (c *Controller) onNIT(nit dvbsi.NIT) {
	c.recordAdmission("nit", c.cache.PutNIT(nit))
	if err := c.store.UpsertNIT(nit); err != nil {
		log.Printf("sistore: upsert NIT: %v", err)
	}
}

func (c *Controller) onBAT(bat dvbsi.BAT) {
	c.recordAdmission("bat", c.cache.PutBAT(bat))
	if err := c.store.UpsertBAT(bat); err != nil {
		log.Printf("sistore: upsert BAT: %v", err)
	}
	c.metrics.SetRepairQueueDepth(c.store.PendingRepairs())
}

func (c *Controller) onSDT(sdt dvbsi.SDT) {
	c.recordAdmission("sdt", c.cache.PutSDT(sdt))
	if err := c.store.UpsertSDT(sdt); err != nil {
		log.Printf("sistore: upsert SDT: %v", err)
	}
}

func (c *Controller) onEIT(tableID byte, eit dvbsi.EIT) {
	c.recordAdmission("eit", c.cache.PutEIT(tableID, eit))
	if err := c.store.UpsertEIT(tableID, eit); err != nil {
		log.Printf("sistore: upsert EIT: %v", err)
	}
}

// onTDTTOT handles both plain TDT sections and TOTs. The TOT's descriptor
// list (local_time_offset) is cached; the registered TDT sink fires exactly
// once per accepted section either way, so the clock adapter never sees the
// same section twice.
func (c *Controller) onTDTTOT(t dvbsi.TDTTOT) {
	if t.TableID == dvbsi.TableIDTOT {
		c.cache.PutTOT(t)
	}
	c.tdtObserved.Store(true)
	if c.tdtSink != nil {
		c.tdtSink(t)
	}
}

// Audit runs the store's maintenance pass, gating the stale-store check on
// whether a TDT has been observed.
func (c *Controller) Audit(now time.Time) error {
	err := c.store.Audit(now, c.tdtObserved.Load())
	c.metrics.SetRepairQueueDepth(c.store.PendingRepairs())
	return err
}

// PreferredNetworkID returns the cache's configured preferred network id.
func (c *Controller) PreferredNetworkID() uint16 { return c.cache.PreferredNetworkID() }

// SetPreferredNetworkID sets the cache's preferred network id filter.
func (c *Controller) SetPreferredNetworkID(id uint16) { c.cache.SetPreferredNetworkID(id) }

// LocalTimeOffsets returns the local-time-offset records of the most recent
// TOT, if any.
func (c *Controller) LocalTimeOffsets() []dvbsi.LocalTimeOffsetEntry {
	return c.cache.LocalTimeOffsets()
}

// TSList returns, from cache, the transport streams announced by the NIT of
// networkID (or the preferred network if zero).
func (c *Controller) TSList(networkID uint16) []dvbsi.TransportStream {
	return c.cache.TSList(networkID)
}

// ServiceList returns, from cache, the services announced by the SDT keyed
// by (networkID, tsID).
func (c *Controller) ServiceList(networkID, tsID uint16) []dvbsi.Service {
	return c.cache.ServiceList(networkID, tsID)
}

// EventList returns, from cache, the events of the present/following EIT
// keyed by (networkID, tsID, serviceID).
func (c *Controller) EventList(networkID, tsID, serviceID uint16) []dvbsi.Event {
	return c.cache.EventList(networkID, tsID, serviceID)
}

// TSListFromStore is the database-backed variant of TSList, joining
// Transport and Network.
func (c *Controller) TSListFromStore(networkID uint16) ([]dvbsi.TransportStream, error) {
	rows, err := c.store.db.Query(`SELECT t.ts_id, t.original_network_id FROM Transport t
		JOIN Network n ON n.id = t.network_fk WHERE n.network_id = ?`, networkID)
	if err != nil {
		return nil, fmt.Errorf("sistore: ts list from store: %w", err)
	}
	defer rows.Close()
	var out []dvbsi.TransportStream
	for rows.Next() {
		var ts dvbsi.TransportStream
		if err := rows.Scan(&ts.TSID, &ts.OriginalNetworkID); err != nil {
			return nil, fmt.Errorf("sistore: scan ts row: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// ServiceListFromStore is the database-backed variant of ServiceList,
// joining Service and Transport.
func (c *Controller) ServiceListFromStore(originalNetworkID, tsID uint16) ([]dvbsi.Service, error) {
	rows, err := c.store.db.Query(`SELECT s.service_id, s.eit_schedule_flag, s.eit_pf_flag, s.running_status, s.free_ca_mode
		FROM Service s JOIN Transport t ON t.id = s.transport_fk
		WHERE t.original_network_id = ? AND t.ts_id = ?`, originalNetworkID, tsID)
	if err != nil {
		return nil, fmt.Errorf("sistore: service list from store: %w", err)
	}
	defer rows.Close()
	var out []dvbsi.Service
	for rows.Next() {
		var svc dvbsi.Service
		if err := rows.Scan(&svc.ServiceID, &svc.EITScheduleFlag, &svc.EITPfFlag, &svc.RunningStatus, &svc.FreeCAMode); err != nil {
			return nil, fmt.Errorf("sistore: scan service row: %w", err)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// StoredEvent is one persisted event row, the database-backed counterpart
// of a cached dvbsi.Event with the on-wire BCD forms already decoded.
type StoredEvent struct {
	EventID       uint16
	StartTimeUnix int64
	DurationSec   int64
	RunningStatus byte
	FreeCAMode    bool
	Title         string
	Text          string
}

// EventListFromStore is the database-backed variant of EventList, joining
// Event against Service/Transport and folding in the first EventItem (the
// short-event title/text projection) per event.
func (c *Controller) EventListFromStore(originalNetworkID, tsID, serviceID uint16) ([]StoredEvent, error) {
	rows, err := c.store.db.Query(`SELECT e.event_id, e.start_time_unix, e.duration_sec, e.running_status, e.free_ca_mode,
		COALESCE((SELECT i.description FROM EventItem i WHERE i.event_fk = e.id ORDER BY i.id LIMIT 1), ''),
		COALESCE((SELECT i.text FROM EventItem i WHERE i.event_fk = e.id ORDER BY i.id LIMIT 1), '')
		FROM Event e
		JOIN Service s ON s.id = e.service_fk
		JOIN Transport t ON t.id = s.transport_fk
		WHERE t.original_network_id = ? AND t.ts_id = ? AND s.service_id = ?
		ORDER BY e.start_time_unix`, originalNetworkID, tsID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("sistore: event list from store: %w", err)
	}
	defer rows.Close()
	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.EventID, &ev.StartTimeUnix, &ev.DurationSec, &ev.RunningStatus, &ev.FreeCAMode, &ev.Title, &ev.Text); err != nil {
			return nil, fmt.Errorf("sistore: scan event row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
