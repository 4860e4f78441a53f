package dvbsi

// NetworkName decodes a Network Name descriptor (0x40). The entire payload
// is the name.
type NetworkName struct {
	Name string
}

// DecodeNetworkName decodes d as a Network Name descriptor.
func DecodeNetworkName(d Descriptor) NetworkName {
	return NetworkName{Name: DecodeText(d.Data)}
}

// BouquetName decodes a Bouquet Name descriptor (0x47), laid out
// identically to Network Name.
type BouquetName struct {
	Name string
}

// DecodeBouquetName decodes d as a Bouquet Name descriptor.
func DecodeBouquetName(d Descriptor) BouquetName {
	return BouquetName{Name: DecodeText(d.Data)}
}

// ServiceListEntry is one (service_id, service_type) pair from a Service
// List descriptor (0x41).
type ServiceListEntry struct {
	ServiceID   uint16
	ServiceType byte
}

// DecodeServiceList decodes d as a Service List descriptor: repeating
// 3-byte records (service_id:16, service_type:8).
func DecodeServiceList(d Descriptor) []ServiceListEntry {
	n := len(d.Data) / 3
	out := make([]ServiceListEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * 3
		id := uint16(d.Data[off])<<8 | uint16(d.Data[off+1])
		out = append(out, ServiceListEntry{ServiceID: id, ServiceType: d.Data[off+2]})
	}
	return out
}

// ServiceDescriptor decodes a Service descriptor (0x48).
type ServiceDescriptor struct {
	ServiceType  byte
	ProviderName string
	ServiceName  string
}

// DecodeServiceDescriptor decodes d as a Service descriptor:
// service_type:8, provider_name_length:8, provider_name[L1],
// service_name_length:8, service_name[L2]. Fails with ErrMalformedDescriptor
// if either length prefix runs past the end of d.Data.
func DecodeServiceDescriptor(d Descriptor) (ServiceDescriptor, error) {
	if len(d.Data) < 2 {
		return ServiceDescriptor{}, ErrMalformedDescriptor
	}
	svcType := d.Data[0]
	provLen := int(d.Data[1])
	if 2+provLen+1 > len(d.Data) {
		return ServiceDescriptor{}, ErrMalformedDescriptor
	}
	provName := DecodeText(d.Data[2 : 2+provLen])
	snOff := 2 + provLen
	snLen := int(d.Data[snOff])
	snOff++
	if snOff+snLen > len(d.Data) {
		return ServiceDescriptor{}, ErrMalformedDescriptor
	}
	svcName := DecodeText(d.Data[snOff : snOff+snLen])
	return ServiceDescriptor{ServiceType: svcType, ProviderName: provName, ServiceName: svcName}, nil
}

// MultilingualNetworkNameEntry is one (lang, name) record from a
// Multilingual Network Name descriptor (0x5B).
type MultilingualNetworkNameEntry struct {
	Lang string
	Name string
}

// DecodeMultilingualNetworkName decodes d as repeating
// (lang:24, name_length:8, name) records. Entries are pre-computed (not
// lazily re-sliced) so random access is O(1).
func DecodeMultilingualNetworkName(d Descriptor) []MultilingualNetworkNameEntry {
	var out []MultilingualNetworkNameEntry
	pos := 0
	for pos+4 <= len(d.Data) {
		lang := string(d.Data[pos : pos+3])
		nlen := int(d.Data[pos+3])
		pos += 4
		if pos+nlen > len(d.Data) {
			break
		}
		out = append(out, MultilingualNetworkNameEntry{Lang: lang, Name: DecodeText(d.Data[pos : pos+nlen])})
		pos += nlen
	}
	return out
}

// MultilingualServiceNameEntry is one (lang, provider, service) record from
// a Multilingual Service Name descriptor (0x5D).
type MultilingualServiceNameEntry struct {
	Lang         string
	ProviderName string
	ServiceName  string
}

// DecodeMultilingualServiceName decodes d as repeating
// (lang:24, provider_name_length:8, provider_name, service_name_length:8,
// service_name) records, pre-indexed for O(1) access.
func DecodeMultilingualServiceName(d Descriptor) []MultilingualServiceNameEntry {
	var out []MultilingualServiceNameEntry
	pos := 0
	for pos+4 <= len(d.Data) {
		lang := string(d.Data[pos : pos+3])
		plen := int(d.Data[pos+3])
		pos += 4
		if pos+plen+1 > len(d.Data) {
			break
		}
		prov := DecodeText(d.Data[pos : pos+plen])
		pos += plen
		slen := int(d.Data[pos])
		pos++
		if pos+slen > len(d.Data) {
			break
		}
		svc := DecodeText(d.Data[pos : pos+slen])
		pos += slen
		out = append(out, MultilingualServiceNameEntry{Lang: lang, ProviderName: prov, ServiceName: svc})
	}
	return out
}
