package dvbsi

import (
	"context"
	"testing"
)

func TestDemux_NITSingleSectionWithCableDelivery(t *testing.T) {
	cableDesc := []byte{
		0x44, 11, // tag, length
		0x03, 0x06, 0x00, 0x00, // frequency BCD
		0x00,                   // reserved
		0x02,                   // fec_outer
		0x03,                   // modulation
		0x68, 0x88, 0x88, 0x80, // symbol rate BCD
	}
	// network_descriptors_length = len(cableDesc), then ts_loop_length = 0
	payload := append([]byte{0x00, byte(len(cableDesc))}, cableDesc...)
	payload = append(payload, 0x00, 0x00) // ts_loop_length = 0

	var got NIT
	var delivered int
	sink := func(ctx context.Context, tableID byte, table any) {
		delivered++
		got = table.(NIT)
	}
	d := NewDemux(sink, nil)

	raw := buildLongSection(TableIDNITActual, 0x0001, 1, true, 0, 0, payload)
	d.Parse(context.Background(), raw)
	if delivered != 1 {
		t.Fatalf("delivered = %d after single-section NIT, want 1", delivered)
	}
	d.Parse(context.Background(), raw)
	if delivered != 1 {
		t.Fatalf("delivered = %d after redundant re-delivery, want still 1", delivered)
	}
	if got.NetworkID != 0x0001 {
		t.Errorf("NetworkID = %#x, want 0x0001", got.NetworkID)
	}
	if len(got.Descriptors) != 1 || got.Descriptors[0].Tag != TagCableDeliverySystem {
		t.Fatalf("Descriptors = %+v", got.Descriptors)
	}
	cds, ok := DecodeCableDeliverySystem(got.Descriptors[0])
	if !ok {
		t.Fatal("DecodeCableDeliverySystem() ok = false")
	}
	if cds.Modulation != ModulationQAM64 {
		t.Errorf("Modulation = %v, want QAM64", cds.Modulation)
	}
}

func TestDemux_minimalTDT(t *testing.T) {
	// Short-form TDT announcing MJD 0xDA6C (55916, 2011-12-21) 00:00:00 UTC.
	raw := []byte{0x70, 0x70, 0x05, 0xDA, 0x6C, 0x00, 0x00, 0x00}

	var got TDTTOT
	delivered := false
	d := NewDemux(func(ctx context.Context, tableID byte, table any) {
		delivered = true
		got = table.(TDTTOT)
	}, nil)
	d.Parse(context.Background(), raw)

	if !delivered {
		t.Fatal("TDT not delivered")
	}
	if got.UTCMJDBCD != 0xDA6C000000 {
		t.Errorf("UTCMJDBCD = %#x, want 0xDA6C000000", got.UTCMJDBCD)
	}
	if len(got.Descriptors) != 0 {
		t.Errorf("Descriptors = %+v, want none on a TDT", got.Descriptors)
	}
	if want := int64(1324425600); got.UTCTime().Unix() != want {
		t.Errorf("UTCTime() = %v (%d), want unix %d", got.UTCTime(), got.UTCTime().Unix(), want)
	}
}

func TestDemux_SDTTwoSectionReassembly(t *testing.T) {
	buildSDTPayload := func(svcID uint16) []byte {
		return []byte{
			0x00, 0x00, 0x00, // original_network_id, reserved
			byte(svcID >> 8), byte(svcID), // service_id
			0b1100_0000, // reserved + eit_schedule + eit_pf bits
			0x00, 0x00,  // running_status/free_ca/descriptors_length=0
		}
	}

	var got SDT
	sink := func(ctx context.Context, tableID byte, table any) {
		got = table.(SDT)
	}
	d := NewDemux(sink, nil)

	s1 := buildLongSection(TableIDSDTActual, 0x0002, 3, true, 1, 1, buildSDTPayload(200))
	s0 := buildLongSection(TableIDSDTActual, 0x0002, 3, true, 0, 1, buildSDTPayload(100))

	d.Parse(context.Background(), s1)
	d.Parse(context.Background(), s0)

	if got.TransportStreamID != 0x0002 {
		t.Errorf("TransportStreamID = %#x, want 0x0002", got.TransportStreamID)
	}
	if len(got.Services) != 2 {
		t.Fatalf("Services = %+v, want 2 entries", got.Services)
	}
	if got.Services[0].ServiceID != 100 || got.Services[1].ServiceID != 200 {
		t.Errorf("Services out of order: %+v", got.Services)
	}
}

func TestDemux_unsupportedTableIDDropped(t *testing.T) {
	delivered := false
	d := NewDemux(func(ctx context.Context, tableID byte, table any) { delivered = true }, nil)
	b := []byte{0x02, 0x00, 0x01, 0x00} // table_id 0x02 (PMT) is not an SI table this engine handles
	d.Parse(context.Background(), b)
	if delivered {
		t.Error("delivered table for unsupported table id")
	}
}

func TestDemux_emptyInputIgnored(t *testing.T) {
	d := NewDemux(nil, nil)
	d.Parse(context.Background(), nil) // must not panic
}

func TestDemux_zeroLengthShortSection(t *testing.T) {
	var got TDTTOT
	delivered := false
	d := NewDemux(func(ctx context.Context, tableID byte, table any) {
		delivered = true
		got, _ = table.(TDTTOT)
	}, nil)

	d.Parse(context.Background(), []byte{0x70, 0x00, 0x00}) // section_length = 0

	if !delivered {
		t.Fatal("zero-length TDT section not delivered")
	}
	if got.UTCMJDBCD != 0 || len(got.Descriptors) != 0 {
		t.Errorf("got = %+v, want zero-valued TDT", got)
	}
}
