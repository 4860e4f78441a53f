package dvbsi

import "testing"

func buildLongSection(tableID byte, extID uint16, version byte, current bool, secNum, lastSecNum byte, payload []byte) []byte {
	sectionLength := 5 + len(payload)
	b := make([]byte, 0, 3+sectionLength)
	b = append(b, tableID)
	hdr := uint16(0x8000) | uint16(sectionLength&0x0FFF)
	b = append(b, byte(hdr>>8), byte(hdr))
	b = append(b, byte(extID>>8), byte(extID))
	verByte := (version & 0x1F) << 1
	if current {
		verByte |= 0x01
	}
	b = append(b, verByte)
	b = append(b, secNum, lastSecNum)
	b = append(b, payload...)
	return b
}

func mustParse(t *testing.T, b []byte) Section {
	t.Helper()
	s, err := ParseSection(b)
	if err != nil {
		t.Fatalf("ParseSection() error = %v", err)
	}
	return s
}

func TestSectionGroup_singleSectionCompletesImmediately(t *testing.T) {
	// A non-EIT sub-table whose only section is 0-of-0 is complete the
	// moment it arrives; re-delivering the same section is a no-op.
	payload := []byte{0x00, 0x00, 0x00, 0x00} // empty NIT descriptor+ts loops
	b := buildLongSection(TableIDNITActual, 0x0001, 1, true, 0, 0, payload)
	s := mustParse(t, b)

	var g sectionGroup
	if added := g.add(s); !added {
		t.Fatal("add() = false, want true")
	}
	if !g.complete {
		t.Error("complete = false after a single 0-of-0 section, want true")
	}
	if added := g.add(s); added {
		t.Error("add() on redundant re-delivery = true, want false")
	}
	if len(g.sections) != 1 {
		t.Errorf("sections len = %d after re-delivery, want 1", len(g.sections))
	}
}

func TestSectionGroup_eitWaitsForFullCycle(t *testing.T) {
	// An EIT with a single 0-of-0 section is complete only once the
	// carousel wraps back to the first received number.
	// payload[4] carries the segment_last_section_number.
	payload := []byte{0x00, 0x64, 0x00, 0x01, 0x00, 0x4E}
	b := buildLongSection(TableIDEITPFActual, 0x00C8, 1, true, 0, 0, payload)
	s := mustParse(t, b)

	var g sectionGroup
	if added := g.add(s); !added {
		t.Fatal("add() = false, want true")
	}
	if g.complete {
		t.Error("complete = true after first EIT arrival, want false")
	}
	if added := g.add(s); !added {
		t.Fatal("add() on cycle-closing arrival = false, want true")
	}
	if !g.complete {
		t.Error("complete = false once the carousel wrapped, want true")
	}
}

func TestSectionGroup_twoSectionOutOfOrder(t *testing.T) {
	p0 := []byte{0x00, 0x00, 0x00} // original_network_id(2) + reserved(1), no services
	p1 := []byte{0x00, 0x00, 0x00}
	s1 := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 3, true, 1, 1, p1))
	s0 := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 3, true, 0, 1, p0))

	var g sectionGroup
	if added := g.add(s1); !added {
		t.Fatal("add(section 1) = false")
	}
	if g.complete {
		t.Error("complete = true after only section 1, want false")
	}
	if added := g.add(s0); !added {
		t.Fatal("add(section 0) = false")
	}
	if !g.complete {
		t.Error("complete = false after both sections received, want true")
	}
	if g.sections[0].SectionNumber != 0 || g.sections[1].SectionNumber != 1 {
		t.Errorf("sections not in order: %+v", g.sections)
	}
}

func TestSectionGroup_versionChangeResets(t *testing.T) {
	p := []byte{0x00, 0x00, 0x00}
	s1 := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 3, true, 0, 1, p))
	s1b := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 3, true, 1, 1, p))
	s2 := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 4, true, 0, 0, p))

	var g sectionGroup
	g.add(s1)
	g.add(s1b)
	if !g.complete {
		t.Fatal("setup: expected complete before version change")
	}
	if added := g.add(s2); !added {
		t.Fatal("add() on version change = false, want true (reinitialise)")
	}
	if len(g.sections) != 1 || g.sections[0].Version != 4 {
		t.Errorf("group did not reset on version change: %+v", g.sections)
	}
	if !g.complete {
		t.Error("complete = false after reset to a 0-of-0 section, want true")
	}
}

func TestSectionGroup_extensionMismatchRejected(t *testing.T) {
	p := []byte{0x00, 0x00, 0x00}
	s1 := mustParse(t, buildLongSection(TableIDSDTActual, 0x0002, 3, true, 0, 0, p))
	sOther := mustParse(t, buildLongSection(TableIDSDTActual, 0x0003, 3, true, 0, 0, p))

	var g sectionGroup
	g.add(s1)
	if added := g.add(sOther); added {
		t.Error("add() with mismatched extension_id = true, want false")
	}
}

func TestSectionGroup_shortFormNeverAccumulates(t *testing.T) {
	b1 := []byte{0x70, 0x00, 0x05, 0x01, 0x02, 0x03, 0x04, 0x05}
	b2 := []byte{0x70, 0x00, 0x05, 0x11, 0x12, 0x13, 0x14, 0x15}
	s1 := mustParse(t, b1)
	s2 := mustParse(t, b2)

	var g sectionGroup
	g.add(s1)
	if !g.complete {
		t.Fatal("short-form section should be immediately complete")
	}
	g.add(s2)
	if len(g.sections) != 1 || string(g.sections[0].Payload) != string(s2.Payload) {
		t.Error("second short-form section should reinitialise the group, not accumulate")
	}
}

func TestSectionGroup_buildTable_unknownTableID(t *testing.T) {
	var g sectionGroup
	if _, err := g.buildTable(); err != ErrUnknownTableID {
		t.Errorf("buildTable() on empty group error = %v, want ErrUnknownTableID", err)
	}
}
