package dvbsi

import "testing"

func TestBcdByteToDec(t *testing.T) {
	cases := map[byte]int{0x00: 0, 0x23: 23, 0x99: 99}
	for in, want := range cases {
		if got := bcdByteToDec(in); got != want {
			t.Errorf("bcdByteToDec(0x%02x) = %d, want %d", in, got, want)
		}
	}
}

func TestBcdToDec(t *testing.T) {
	if got := bcdToDec(0x1234); got != 1234 {
		t.Errorf("bcdToDec(0x1234) = %d, want 1234", got)
	}
}

func TestMjdToUnixTime(t *testing.T) {
	// MJD 55916, 00:00:00 -> 2011-12-21T00:00:00Z -> 1324425600.
	enc := uint64(55916)<<24 | 0x00<<16 | 0x00<<8 | 0x00
	got := mjdToUnixTime(enc)
	want := int64(1324425600)
	if got != want {
		t.Errorf("mjdToUnixTime(%#x) = %d, want %d", enc, got, want)
	}
}

func TestMjdToTime_RoundTrips(t *testing.T) {
	enc := uint64(55916)<<24 | 0x12<<16 | 0x30<<8 | 0x45
	tm := mjdToTime(enc)
	if tm.Hour() != 12 || tm.Minute() != 30 || tm.Second() != 45 {
		t.Errorf("mjdToTime(%#x) = %v, want 12:30:45", enc, tm)
	}
}

func TestBcdDurationSeconds(t *testing.T) {
	enc := uint32(0x01)<<16 | uint32(0x30)<<8 | 0x15
	got := bcdDurationSeconds(enc)
	want := int64(1*3600 + 30*60 + 15)
	if got != want {
		t.Errorf("bcdDurationSeconds(%#x) = %d, want %d", enc, got, want)
	}
}
