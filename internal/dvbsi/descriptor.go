package dvbsi

// Descriptor is a single TLV-encoded metadata record carried within an SI
// table's descriptor loop. Data excludes the leading tag and length bytes.
type Descriptor struct {
	Tag  byte
	Data []byte
}

// ParseDescriptors walks a TLV byte range and returns every descriptor it
// can parse, in on-wire order, preserving duplicates. It stops silently
// (returning what it has so far) the moment fewer than 2 bytes remain or a
// declared length would run past the end of the range.
func ParseDescriptors(b []byte) []Descriptor {
	var out []Descriptor
	pos := 0
	for pos+2 <= len(b) {
		tag := b[pos]
		dlen := int(b[pos+1])
		if pos+2+dlen > len(b) {
			break
		}
		data := b[pos+2 : pos+2+dlen]
		out = append(out, Descriptor{Tag: tag, Data: data})
		pos += 2 + dlen
	}
	return out
}

// FindDescriptor returns the first descriptor in list with the given tag,
// or ok=false if none match.
func FindDescriptor(list []Descriptor, tag byte) (Descriptor, bool) {
	for _, d := range list {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}

// FindAllDescriptors returns every descriptor in list with the given tag,
// preserving on-wire order.
func FindAllDescriptors(list []Descriptor, tag byte) []Descriptor {
	var out []Descriptor
	for _, d := range list {
		if d.Tag == tag {
			out = append(out, d)
		}
	}
	return out
}

// Descriptor tags this engine decodes (EN 300 468 table 12; 0x83/0x9C are
// the private logical-channel-number tags cable operators use).
const (
	TagNetworkName                 = 0x40
	TagServiceList                 = 0x41
	TagCableDeliverySystem         = 0x44
	TagBouquetName                 = 0x47
	TagService                     = 0x48
	TagShortEvent                  = 0x4D
	TagExtendedEvent               = 0x4E
	TagComponent                   = 0x50
	TagContent                     = 0x54
	TagParentalRating              = 0x55
	TagLocalTimeOffset             = 0x58
	TagMultilingualNetworkName     = 0x5B
	TagMultilingualServiceName     = 0x5D
	TagMultilingualComponent       = 0x5E
	TagLogicalChannelPrivate       = 0x83
	TagLogicalChannelPrivateAlt    = 0x9C
)
