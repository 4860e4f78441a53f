package scan

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

// rateLimitedTuner paces retune operations through an underlying Tuner so a
// misbehaving NIT (e.g. one whose TS list thrashes between scans) cannot
// drive the frontend harder than it can physically settle.
type rateLimitedTuner struct {
	next    Tuner
	limiter *rate.Limiter
}

// newRateLimitedTuner wraps next with a limiter allowing one retune every
// minInterval, with a burst of 1.
func newRateLimitedTuner(next Tuner, minInterval float64) Tuner {
	return &rateLimitedTuner{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(1/minInterval), 1),
	}
}

func (t *rateLimitedTuner) Tune(frequencyHz int64, modulation dvbsi.Modulation, symbolRateSps int64) error {
	if err := t.limiter.Wait(context.Background()); err != nil {
		return err
	}
	return t.next.Tune(frequencyHz, modulation, symbolRateSps)
}

func (t *rateLimitedTuner) Untune() error {
	return t.next.Untune()
}
