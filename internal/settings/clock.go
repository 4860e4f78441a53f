package settings

import (
	"log"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

// ClockSetter is the external collaborator that applies a wall-clock value
// to the host system. The core only assumes this one-method contract and
// never reads the clock back.
type ClockSetter interface {
	SetSystemClock(t time.Time) error
}

// Clock applies the UTC time carried by an observed TDT/TOT exactly once
// per accepted section.
type Clock struct {
	setter ClockSetter
}

// NewClock wraps setter. A nil setter makes OnTDT a no-op, useful when no
// clock-setting privilege is available.
func NewClock(setter ClockSetter) *Clock {
	return &Clock{setter: setter}
}

// OnTDT applies table's UTC time to the system clock, if a setter is wired.
// Called once per delivered TDT/TOT table; idempotent repeats are the
// caller's responsibility to avoid (e.g. by gating on the table's version).
func (c *Clock) OnTDT(table dvbsi.TDTTOT) {
	if c.setter == nil {
		return
	}
	if err := c.setter.SetSystemClock(table.UTCTime()); err != nil {
		log.Printf("settings: set system clock: %v", err)
	}
}
