package dvbsi

// buildTransportStreamLoop walks the shared NIT/BAT section body (EN 300
// 468 §5.2.1, §5.2.2): a network/bouquet descriptor loop followed by a
// transport-stream loop. Descriptors and transport-stream records
// accumulate across every stored section, in section order.
func buildTransportStreamLoop(sections [][]byte) ([]Descriptor, []TransportStream) {
	var descs []Descriptor
	var streams []TransportStream
	for _, payload := range sections {
		v := NewBytes(payload)
		hdr, ok := v.U16(0)
		if !ok {
			continue
		}
		dLen := int(hdr & 0x0FFF)
		dBytes, ok := v.Sub(2, dLen)
		if !ok {
			continue
		}
		descs = append(descs, ParseDescriptors(dBytes.Raw())...)

		pos := 2 + dLen
		tsLoopHdr, ok := v.U16(pos)
		if !ok {
			continue
		}
		tsLoopLen := int(tsLoopHdr & 0x0FFF)
		pos += 2
		end := pos + tsLoopLen
		if end > v.Len() {
			end = v.Len()
		}
		for pos+6 <= end {
			tsID, _ := v.U16(pos)
			onID, _ := v.U16(pos + 2)
			lenField, _ := v.U16(pos + 4)
			tsDescLen := int(lenField & 0x0FFF)
			pos += 6
			if pos+tsDescLen > end {
				break
			}
			tsDescBytes, _ := v.Sub(pos, tsDescLen)
			streams = append(streams, TransportStream{
				TSID:              tsID,
				OriginalNetworkID: onID,
				Descriptors:       ParseDescriptors(tsDescBytes.Raw()),
			})
			pos += tsDescLen
		}
	}
	return descs, streams
}

func buildNIT(sg *sectionGroup) NIT {
	descs, streams := buildTransportStreamLoop(sg.payloads())
	first := sg.sections[0]
	return NIT{
		NetworkID:   first.ExtensionID,
		Version:     first.Version,
		Current:     first.Current,
		Descriptors: descs,
		Streams:     streams,
	}
}

func buildBAT(sg *sectionGroup) BAT {
	descs, streams := buildTransportStreamLoop(sg.payloads())
	first := sg.sections[0]
	return BAT{
		BouquetID:   first.ExtensionID,
		Version:     first.Version,
		Current:     first.Current,
		Descriptors: descs,
		Streams:     streams,
	}
}

// buildSDT walks the SDT section body (EN 300 468 §5.2.3).
func buildSDT(sg *sectionGroup) SDT {
	first := sg.sections[0]
	v0 := NewBytes(first.Payload)
	onID, _ := v0.U16(0)

	var services []Service
	for _, payload := range sg.payloads() {
		v := NewBytes(payload)
		pos := 3
		for pos+5 <= v.Len() {
			svcID, _ := v.U16(pos)
			flags, _ := v.U8(pos + 2)
			lenField, _ := v.U16(pos + 3)
			descLen := int(lenField & 0x0FFF)
			pos += 5
			if pos+descLen > v.Len() {
				break
			}
			descBytes, _ := v.Sub(pos, descLen)
			services = append(services, Service{
				ServiceID:       svcID,
				EITScheduleFlag: flags&0x02 != 0,
				EITPfFlag:       flags&0x01 != 0,
				RunningStatus:   byte((lenField >> 13) & 0x07),
				FreeCAMode:      lenField&0x1000 != 0,
				Descriptors:     ParseDescriptors(descBytes.Raw()),
			})
			pos += descLen
		}
	}

	return SDT{
		TransportStreamID: first.ExtensionID,
		OriginalNetworkID: onID,
		Version:           first.Version,
		Current:           first.Current,
		Services:          services,
	}
}

// buildEIT walks the EIT section body (EN 300 468 §5.2.4).
func buildEIT(sg *sectionGroup) EIT {
	first := sg.sections[0]
	v0 := NewBytes(first.Payload)
	tsID, _ := v0.U16(0)
	onID, _ := v0.U16(2)
	lastTableID, _ := v0.U8(5)

	var events []Event
	for _, payload := range sg.payloads() {
		v := NewBytes(payload)
		pos := 6
		for pos+12 <= v.Len() {
			eventID, _ := v.U16(pos)
			startTime, _ := v.U40(pos + 2)
			duration, _ := v.U24(pos + 7)
			flagsLen, _ := v.U16(pos + 10)
			descLen := int(flagsLen & 0x0FFF)
			pos += 12
			if pos+descLen > v.Len() {
				break
			}
			descBytes, _ := v.Sub(pos, descLen)
			events = append(events, Event{
				EventID:         eventID,
				StartTimeMJDBCD: startTime,
				DurationBCD:     duration,
				RunningStatus:   byte((flagsLen >> 13) & 0x07),
				FreeCAMode:      flagsLen&0x1000 != 0,
				Descriptors:     ParseDescriptors(descBytes.Raw()),
			})
			pos += descLen
		}
	}

	return EIT{
		ServiceID:         first.ExtensionID,
		TransportStreamID: tsID,
		NetworkID:         onID,
		LastTableID:       lastTableID,
		Version:           first.Version,
		Current:           first.Current,
		Events:            events,
	}
}

// buildTDTTOT reads the UTC timestamp shared by TDT and TOT (EN 300 468
// §5.2.5, §5.2.6); only the TOT carries a descriptor loop.
func buildTDTTOT(sg *sectionGroup) TDTTOT {
	first := sg.sections[0]
	v := NewBytes(first.Payload)
	utc, _ := v.U40(0)

	out := TDTTOT{TableID: first.TableID, UTCMJDBCD: utc}
	if first.TableID == TableIDTOT {
		hdr, ok := v.U16(5)
		if ok {
			dLen := int(hdr & 0x0FFF)
			if dBytes, ok := v.Sub(7, dLen); ok {
				out.Descriptors = ParseDescriptors(dBytes.Raw())
			}
		}
	}
	return out
}
