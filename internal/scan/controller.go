// Package scan drives the acquisition scan controller: a background worker
// that tunes across the cable plant's home, bouquet, and per-service
// transport streams and blocks on the SI tables it needs before moving on.
package scan

import (
	"log"
	"sync"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsimetrics"
	"github.com/spartridge/dvbsi/internal/settings"
	"github.com/spartridge/dvbsi/internal/sistore"
)

// State is one of the scan controller's lifecycle states.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateInProgressFast
	StateInProgressBkgd
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateInProgressFast:
		return "IN_PROGRESS_FAST"
	case StateInProgressBkgd:
		return "IN_PROGRESS_BKGD"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// AllStates lists every State.String() value, for metrics gauges that
// expose exactly one active label at a time.
var AllStates = []string{
	StateStopped.String(), StateStarting.String(), StateInProgressFast.String(),
	StateInProgressBkgd.String(), StateCompleted.String(), StateFailed.String(),
}

// TSStatus records what the most recent scan pass over a single transport
// stream achieved. A false bit means "not yet acquired", not an error.
type TSStatus struct {
	TSID             uint16
	FrequencyHz      int64
	NITReceived      bool
	BATReceived      bool
	SDTReceived      bool
	EITPFReceived    bool
	EITSchedReceived bool
}

// ScanStatus is the read-only snapshot exposed to callers outside the
// worker.
type ScanStatus struct {
	State  State
	TSList []TSStatus
}

// Controller runs the two-phase scan worker loop. The zero
// value is not usable; build one with NewController.
type Controller struct {
	cache     *sistore.Cache
	storeCtrl *sistore.Controller
	tuner     Tuner
	metrics   *dvbsimetrics.Metrics

	scanMu sync.Mutex
	state  State
	tsList []TSStatus

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
}

// NewController builds a Controller in the STOPPED state.
func NewController(cache *sistore.Cache, storeCtrl *sistore.Controller, tuner Tuner, metrics *dvbsimetrics.Metrics) *Controller {
	return &Controller{
		cache:     cache,
		storeCtrl: storeCtrl,
		tuner:     newRateLimitedTuner(tuner, 0.2),
		metrics:   metrics,
		state:     StateStopped,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	return c.state
}

// Status returns a snapshot of the controller's state and per-TS scan
// outcomes.
func (c *Controller) Status() ScanStatus {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	out := ScanStatus{State: c.state, TSList: make([]TSStatus, len(c.tsList))}
	copy(out.TSList, c.tsList)
	return out
}

func (c *Controller) setState(s State) {
	c.scanMu.Lock()
	c.state = s
	c.scanMu.Unlock()
	c.metrics.SetScanState(s.String(), AllStates)
}

// StartScan launches the worker. fast selects whether the bootstrap pass
// runs before the background sweep. It fails only if a scan is already
// running.
func (c *Controller) StartScan(cfg settings.ScanSettings, fast bool) error {
	c.scanMu.Lock()
	if c.state != StateStopped {
		c.scanMu.Unlock()
		return ErrAlreadyRunning
	}
	c.state = StateStarting
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.stopOnce = new(sync.Once)
	c.scanMu.Unlock()
	c.metrics.SetScanState(StateStarting.String(), AllStates)

	go c.run(cfg, fast)
	return nil
}

// StopScan signals the worker to stop and blocks until it has exited,
// polling every 3s. The controller always lands in STOPPED
// afterwards, even when the worker had already finished in COMPLETED or
// FAILED, so a subsequent StartScan is accepted.
func (c *Controller) StopScan() {
	c.scanMu.Lock()
	if c.state == StateStopped {
		c.scanMu.Unlock()
		return
	}
	stopCh := c.stopCh
	doneCh := c.doneCh
	stopOnce := c.stopOnce
	c.scanMu.Unlock()

	stopOnce.Do(func() { close(stopCh) })
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-doneCh:
			c.setState(StateStopped)
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) run(cfg settings.ScanSettings, fast bool) {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			c.setState(StateStopped)
			return
		default:
		}

		if fast {
			c.setState(StateInProgressFast)
			if err := c.scanFast(cfg, c.stopCh); err != nil {
				log.Printf("scan: fast scan failed: %v", err)
				c.setState(StateFailed)
				return
			}
			// Roll straight into the background sweep without waiting.
			fast = false
			continue
		}

		c.setState(StateInProgressBkgd)
		if err := c.scanBackground(cfg, c.stopCh); err != nil {
			log.Printf("scan: background scan failed: %v", err)
			c.setState(StateFailed)
			return
		}
		c.setState(StateCompleted)

		// Each completed sweep is an audit tick: purge ended events, retry
		// deferred repairs, and run the stale-store check.
		if c.storeCtrl != nil {
			if err := c.storeCtrl.Audit(time.Now()); err != nil {
				log.Printf("scan: store audit: %v", err)
			}
		}

		select {
		case <-c.stopCh:
			c.setState(StateStopped)
			return
		case <-time.After(cfg.BackgroundScanInterval):
		}
	}
}

type scanError string

func (e scanError) Error() string { return string(e) }

// ErrAlreadyRunning is returned by StartScan when a worker is active.
const ErrAlreadyRunning = scanError("scan: already running")
