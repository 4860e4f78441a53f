package dvbsi

// Section is one parsed SI section: the shared MPEG/DVB section header plus
// a view over the table-body bytes that follow it. Payload excludes the
// shared header; it INCLUDES every body byte a builder needs and MAY or may
// not include the trailing 4-byte CRC32, depending on whether the upstream
// demultiplexer stripped it. Builders never read past the lengths their
// own table layout implies, so either form works.
type Section struct {
	TableID           byte
	LongForm          bool
	ExtensionID       uint16
	Version           byte
	Current           bool
	SectionNumber     byte
	LastSectionNumber byte
	Payload           []byte
}

// ParseSection decodes the shared section header of ISO/IEC 13818-1
// §2.4.4 as profiled for DVB SI by EN 300 468 §5.1. It fails with
// ErrTruncatedSection if the declared section_length would run past the
// end of b, and with ErrInvalidArgument if b is shorter than the minimum
// 3-byte short-form header.
func ParseSection(b []byte) (Section, error) {
	v := NewBytes(b)
	if v.Len() < 3 {
		return Section{}, ErrInvalidArgument
	}
	tableID, _ := v.U8(0)
	hdr, _ := v.U16(1)
	syntax := hdr&0x8000 != 0
	sectionLength := int(hdr & 0x0FFF)

	if 3+sectionLength > v.Len() {
		return Section{}, ErrTruncatedSection
	}

	if !syntax {
		payload, ok := v.Sub(3, sectionLength)
		if !ok {
			return Section{}, ErrTruncatedSection
		}
		return Section{TableID: tableID, LongForm: false, Payload: payload.Raw()}, nil
	}

	if v.Len() < 8 {
		return Section{}, ErrTruncatedSection
	}
	extID, _ := v.U16(3)
	verByte, _ := v.U8(5)
	secNum, _ := v.U8(6)
	lastSecNum, _ := v.U8(7)

	payload, ok := v.Sub(8, sectionLength-5)
	if !ok {
		return Section{}, ErrTruncatedSection
	}
	return Section{
		TableID:           tableID,
		LongForm:          true,
		ExtensionID:       extID,
		Version:           (verByte >> 1) & 0x1F,
		Current:           verByte&0x01 != 0,
		SectionNumber:     secNum,
		LastSectionNumber: lastSecNum,
		Payload:           payload.Raw(),
	}, nil
}
