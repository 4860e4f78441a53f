package dvbsi

// ShortEvent decodes a short_event_descriptor (0x4D).
type ShortEvent struct {
	Lang      string
	EventName string
	Text      string
}

// DecodeShortEvent decodes d as a short_event_descriptor: lang:24,
// event_name_length:8, event_name, text_length:8, text.
func DecodeShortEvent(d Descriptor) (ShortEvent, bool) {
	b := d.Data
	if len(b) < 4 {
		return ShortEvent{}, false
	}
	lang := string(b[0:3])
	nlen := int(b[3])
	pos := 4
	if pos+nlen+1 > len(b) {
		return ShortEvent{}, false
	}
	name := DecodeText(b[pos : pos+nlen])
	pos += nlen
	tlen := int(b[pos])
	pos++
	if pos+tlen > len(b) {
		return ShortEvent{}, false
	}
	text := DecodeText(b[pos : pos+tlen])
	return ShortEvent{Lang: lang, EventName: name, Text: text}, true
}

// ExtendedEventItem is one (description, text) pair from an
// extended_event_descriptor's item loop.
type ExtendedEventItem struct {
	Description string
	Text        string
}

// ExtendedEvent decodes an extended_event_descriptor (0x4E). A single
// logical extended-event text can span several descriptors
// (descriptor_number/last_descriptor_number); Items and Text hold only this
// descriptor's own fragment, and callers walk the run with
// FindAllDescriptors to concatenate fragments in on-wire order.
type ExtendedEvent struct {
	DescriptorNumber     byte
	LastDescriptorNumber byte
	Lang                 string
	Items                []ExtendedEventItem
	Text                 string
}

// DecodeExtendedEvent decodes d as an extended_event_descriptor.
func DecodeExtendedEvent(d Descriptor) (ExtendedEvent, bool) {
	b := d.Data
	if len(b) < 5 {
		return ExtendedEvent{}, false
	}
	descNum := b[0] >> 4
	lastDescNum := b[0] & 0x0F
	lang := string(b[1:4])
	itemsLen := int(b[4])
	pos := 5
	if pos+itemsLen > len(b) {
		return ExtendedEvent{}, false
	}
	end := pos + itemsLen
	var items []ExtendedEventItem
	for pos < end {
		if pos+1 > end {
			break
		}
		dlen := int(b[pos])
		pos++
		if pos+dlen > end {
			break
		}
		descr := DecodeText(b[pos : pos+dlen])
		pos += dlen
		if pos+1 > end {
			break
		}
		ilen := int(b[pos])
		pos++
		if pos+ilen > end {
			break
		}
		text := DecodeText(b[pos : pos+ilen])
		pos += ilen
		items = append(items, ExtendedEventItem{Description: descr, Text: text})
	}
	pos = end
	if pos >= len(b) {
		return ExtendedEvent{DescriptorNumber: descNum, LastDescriptorNumber: lastDescNum, Lang: lang, Items: items}, true
	}
	tlen := int(b[pos])
	pos++
	if pos+tlen > len(b) {
		return ExtendedEvent{}, false
	}
	text := DecodeText(b[pos : pos+tlen])
	return ExtendedEvent{
		DescriptorNumber:     descNum,
		LastDescriptorNumber: lastDescNum,
		Lang:                 lang,
		Items:                items,
		Text:                 text,
	}, true
}

// Component decodes a component_descriptor (0x50).
type Component struct {
	StreamContentExt byte
	StreamContent    byte
	ComponentType    byte
	ComponentTag     byte
	Lang             string
	Text             string
}

// DecodeComponent decodes d as a component_descriptor.
func DecodeComponent(d Descriptor) (Component, bool) {
	b := d.Data
	if len(b) < 6 {
		return Component{}, false
	}
	return Component{
		StreamContentExt: b[0] >> 4,
		StreamContent:    b[0] & 0x0F,
		ComponentType:    b[1],
		ComponentTag:     b[2],
		Lang:             string(b[3:6]),
		Text:             DecodeText(b[6:]),
	}, true
}

// MultilingualComponentEntry is one (lang, text) record from a
// multilingual_component_descriptor (0x5E).
type MultilingualComponentEntry struct {
	Lang string
	Text string
}

// MultilingualComponent decodes a multilingual_component_descriptor (0x5E).
type MultilingualComponent struct {
	ComponentTag byte
	Entries      []MultilingualComponentEntry
}

// DecodeMultilingualComponent decodes d as a
// multilingual_component_descriptor: component_tag:8, then repeating
// (lang:24, text_length:8, text) records.
func DecodeMultilingualComponent(d Descriptor) (MultilingualComponent, bool) {
	b := d.Data
	if len(b) < 1 {
		return MultilingualComponent{}, false
	}
	tag := b[0]
	pos := 1
	var entries []MultilingualComponentEntry
	for pos+4 <= len(b) {
		lang := string(b[pos : pos+3])
		tlen := int(b[pos+3])
		pos += 4
		if pos+tlen > len(b) {
			break
		}
		entries = append(entries, MultilingualComponentEntry{Lang: lang, Text: DecodeText(b[pos : pos+tlen])})
		pos += tlen
	}
	return MultilingualComponent{ComponentTag: tag, Entries: entries}, true
}
