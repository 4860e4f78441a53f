package dvbsi

// Modulation identifies the cable_delivery_system_descriptor modulation
// field (ETSI EN 300 468 table 53).
type Modulation byte

// Modulation values this engine recognizes.
const (
	ModulationUndefined Modulation = 0
	ModulationQAM16     Modulation = 1
	ModulationQAM32     Modulation = 2
	ModulationQAM64     Modulation = 3
	ModulationQAM128    Modulation = 4
	ModulationQAM256    Modulation = 5
)

// CableDeliverySystem decodes a cable_delivery_system_descriptor (0x44).
type CableDeliverySystem struct {
	FrequencyHz   int64
	FecOuter      byte
	Modulation    Modulation
	SymbolRateSps int64
	FecInner      byte
}

// DecodeCableDeliverySystem decodes d as a cable_delivery_system_descriptor.
// Frequency and symbol rate are packed BCD, decoded digit-by-digit exactly
// as the field layout requires rather than as one wide BCD integer; ok is
// false if d.Data is shorter than the fixed 11-byte body.
func DecodeCableDeliverySystem(d Descriptor) (CableDeliverySystem, bool) {
	b := d.Data
	if len(b) < 11 {
		return CableDeliverySystem{}, false
	}
	freqHi := int64(bcdToDec(uint64(b[0])<<8 | uint64(b[1])))
	freqLo := int64(bcdToDec(uint64(b[2])<<8 | uint64(b[3])))
	freqHz := freqHi*1000000 + freqLo*100

	symRate := int64(bcdByteToDec(b[7]))*100000 +
		int64(bcdByteToDec(b[8]))*1000 +
		int64(bcdByteToDec(b[9]))*10 +
		int64(bcdByteToDec(b[10]>>4))
	symRate *= 100

	return CableDeliverySystem{
		FrequencyHz:   freqHz,
		FecOuter:      b[5] & 0x0F,
		Modulation:    Modulation(b[6]),
		SymbolRateSps: symRate,
		FecInner:      b[10] & 0x0F,
	}, true
}
