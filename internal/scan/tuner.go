package scan

import "github.com/spartridge/dvbsi/internal/dvbsi"

// Tuner is the two-operation contract the scan controller drives: retune to
// a transport stream's physical parameters, or release the frontend.
// Implementations are expected to block until the frontend has settled or
// report their own bounded timeout; the scan controller imposes none on
// tune/untune calls themselves.
type Tuner interface {
	Tune(frequencyHz int64, modulation dvbsi.Modulation, symbolRateSps int64) error
	Untune() error
}
