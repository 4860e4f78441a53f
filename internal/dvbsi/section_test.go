package dvbsi

import "testing"

func TestParseSection_shortForm(t *testing.T) {
	// table_id=0x70 (TDT), section_syntax=0, section_length=5, 5 payload bytes.
	b := []byte{0x70, 0x00, 0x05, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	s, err := ParseSection(b)
	if err != nil {
		t.Fatalf("ParseSection() error = %v", err)
	}
	if s.LongForm {
		t.Error("LongForm = true, want false")
	}
	if len(s.Payload) != 5 {
		t.Errorf("Payload len = %d, want 5", len(s.Payload))
	}
}

func TestParseSection_longForm(t *testing.T) {
	// section_syntax=1, section_length=9 (5 header bytes + 4 payload bytes).
	b := []byte{
		0x42,       // table_id = SDT actual
		0x80 | 0x00, 0x09, // syntax bit set, length = 9
		0x12, 0x34, // extension_id
		0b000_00011, // version=1, current=1
		0x00,       // section_number
		0x00,       // last_section_number
		0xDE, 0xAD, 0xBE, 0xEF,
	}
	s, err := ParseSection(b)
	if err != nil {
		t.Fatalf("ParseSection() error = %v", err)
	}
	if !s.LongForm {
		t.Fatal("LongForm = false, want true")
	}
	if s.ExtensionID != 0x1234 {
		t.Errorf("ExtensionID = %#x, want 0x1234", s.ExtensionID)
	}
	if s.Version != 1 || !s.Current {
		t.Errorf("Version/Current = %d/%v, want 1/true", s.Version, s.Current)
	}
	if len(s.Payload) != 4 {
		t.Errorf("Payload len = %d, want 4", len(s.Payload))
	}
}

func TestParseSection_truncated(t *testing.T) {
	b := []byte{0x70, 0x0F, 0xFF} // section_length = 0xFFF, far beyond input
	if _, err := ParseSection(b); err != ErrTruncatedSection {
		t.Errorf("ParseSection() error = %v, want ErrTruncatedSection", err)
	}
}

func TestParseSection_tooShort(t *testing.T) {
	if _, err := ParseSection([]byte{0x70, 0x00}); err != ErrInvalidArgument {
		t.Errorf("ParseSection() error = %v, want ErrInvalidArgument", err)
	}
}
