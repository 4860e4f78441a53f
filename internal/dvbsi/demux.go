package dvbsi

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/spartridge/dvbsi/internal/dvbsimetrics"
)

// Sink receives a fully reassembled SI table the moment its sub-table
// completes. table is one of NIT, BAT, SDT, EIT, or TDTTOT depending on
// tableID. The demultiplexer does not retain ownership of the value past
// this call.
type Sink func(ctx context.Context, tableID byte, table any)

type demuxKey struct {
	tableID     byte
	extensionID uint16
}

// Demux maps (table_id, extension_id) to an in-flight section group and
// dispatches completed sub-tables to a registered Sink. Parse is safe to
// call from multiple upstream demultiplexer goroutines at once. The zero
// value is not usable; construct with NewDemux.
type Demux struct {
	mu      sync.Mutex
	groups  map[demuxKey]*sectionGroup
	sink    Sink
	metrics *dvbsimetrics.Metrics
}

// NewDemux returns a Demux that delivers completed tables to sink. sink may
// be nil, in which case completed tables are simply discarded (useful in
// tests that only care about reassembly, not delivery). metrics may be nil
// to disable instrumentation.
func NewDemux(sink Sink, metrics *dvbsimetrics.Metrics) *Demux {
	return &Demux{groups: make(map[demuxKey]*sectionGroup), sink: sink, metrics: metrics}
}

// Parse accepts one raw SI section. It fails silently (logging a warning)
// when b is empty, the section is truncated, or the table id is not
// supported; otherwise it feeds the section into its group and, if the
// group just became complete, builds the table and calls the sink. The sink
// runs outside the demux lock so a slow storage controller never stalls
// unrelated sub-tables, only this caller.
func (d *Demux) Parse(ctx context.Context, b []byte) {
	if len(b) == 0 {
		log.Printf("dvbsi: demux: %v", ErrInvalidArgument)
		d.metrics.RecordSection("none", "dropped_empty")
		return
	}
	section, err := ParseSection(b)
	if err != nil {
		log.Printf("dvbsi: demux: parse section: %v", err)
		d.metrics.RecordSection(tableIDLabel(b[0]), "dropped_malformed")
		return
	}
	if !IsTableSupported(section.TableID) {
		log.Printf("dvbsi: demux: unsupported table id 0x%02x", section.TableID)
		d.metrics.RecordSection(tableIDLabel(section.TableID), "dropped_unsupported")
		return
	}
	d.metrics.RecordSection(tableIDLabel(section.TableID), "accepted")

	key := demuxKey{tableID: section.TableID, extensionID: section.ExtensionID}

	d.mu.Lock()
	group, ok := d.groups[key]
	if !ok {
		group = &sectionGroup{}
		d.groups[key] = group
	}

	if !group.add(section) || !group.complete {
		d.mu.Unlock()
		return
	}

	table, err := group.buildTable()
	d.mu.Unlock()
	if err != nil {
		log.Printf("dvbsi: demux: build table: %v", err)
		return
	}
	d.metrics.RecordTableBuilt(tableIDLabel(section.TableID))
	if d.sink != nil {
		d.sink(ctx, section.TableID, table)
	}
}

// tableIDLabel maps a table id to a low-cardinality metrics label.
func tableIDLabel(tableID byte) string {
	switch {
	case tableID == TableIDNITActual:
		return "nit_actual"
	case tableID == TableIDNITOther:
		return "nit_other"
	case tableID == TableIDSDTActual:
		return "sdt_actual"
	case tableID == TableIDSDTOther:
		return "sdt_other"
	case tableID == TableIDBAT:
		return "bat"
	case tableID == TableIDTDT:
		return "tdt"
	case tableID == TableIDTOT:
		return "tot"
	case IsEIT(tableID):
		return "eit"
	default:
		return fmt.Sprintf("0x%02x", tableID)
	}
}
