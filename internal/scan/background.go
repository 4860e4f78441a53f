package scan

import (
	"fmt"
	"time"

	"github.com/spartridge/dvbsi/internal/settings"
)

const eitSchedTimeout = 15 * time.Second

// scanBackground runs scanHome, then for every TS (including the home TS)
// waits for its SDT, its per-service EIT present/following, and — unless
// the TS is the barker frequency — its full EIT schedule set. If a barker
// TS is configured, a final pass sweeps the barker for the accumulated
// schedule set of every service on the network.
func (c *Controller) scanBackground(cfg settings.ScanSettings, stopCh <-chan struct{}) error {
	if err := c.scanHome(cfg, stopCh); err != nil {
		return err
	}

	streams := c.cache.TSList(cfg.PreferredNetworkID)
	for _, ts := range streams {
		select {
		case <-stopCh:
			return nil
		default:
		}

		freq, mod, symRate, ok := tsParams(ts)
		if !ok {
			freq, mod, symRate = cfg.HomeTSFrequencyHz, cfg.HomeTSModulation, cfg.HomeTSSymbolRateSps
		}
		if err := c.tuner.Tune(freq, mod, symRate); err != nil {
			c.recordSDT(ts.TSID, false)
			continue
		}
		c.metrics.RecordRetune("background")

		sdtOK := checkTables(c.cache, []requirement{sdtRequirement(ts.OriginalNetworkID, ts.TSID)}, sdtTimeout, stopCh)
		c.recordSDT(ts.TSID, sdtOK)

		eitPFOK := checkTables(c.cache, c.serviceRequirements(cfg.PreferredNetworkID, ts.TSID, ts.OriginalNetworkID), eitPFTimeout, stopCh)
		c.recordEITPF(ts.TSID, eitPFOK)

		if cfg.HasBarkerTS() && freq == cfg.BarkerTSFrequencyHz {
			c.tuner.Untune()
			continue
		}
		schedOK := checkTables(c.cache, c.schedRequirements(cfg.PreferredNetworkID, ts.TSID, ts.OriginalNetworkID), eitSchedTimeout, stopCh)
		c.recordEITSched(ts.TSID, schedOK)

		c.tuner.Untune()
	}

	if cfg.HasBarkerTS() {
		if err := c.scanBarker(cfg, stopCh); err != nil {
			return err
		}
	}
	return nil
}

// scanBarker sweeps the barker TS for the accumulated EIT schedule set of
// every service on the network.
func (c *Controller) scanBarker(cfg settings.ScanSettings, stopCh <-chan struct{}) error {
	c.cache.ClearEIT()
	if err := c.tuner.Tune(cfg.BarkerTSFrequencyHz, cfg.BarkerTSModulation, cfg.BarkerTSSymbolRateSps); err != nil {
		return fmt.Errorf("scan: tune barker TS: %w", err)
	}
	c.metrics.RecordRetune("barker")
	defer c.tuner.Untune()

	var required []requirement
	for _, ts := range c.cache.TSList(cfg.PreferredNetworkID) {
		required = append(required, c.schedRequirements(cfg.PreferredNetworkID, ts.TSID, ts.OriginalNetworkID)...)
	}
	if !checkTables(c.cache, required, cfg.BarkerEITTimeout, stopCh) {
		c.metrics.RecordWaitTimeout()
	}
	return nil
}

func (c *Controller) schedRequirements(networkID, tsID, originalNetworkID uint16) []requirement {
	var required []requirement
	for _, svc := range c.cache.ServiceList(originalNetworkID, tsID) {
		required = append(required, eitRequirement(networkID, tsID, svc.ServiceID, false))
	}
	return required
}

func (c *Controller) recordEITSched(tsID uint16, ok bool) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	for i := range c.tsList {
		if c.tsList[i].TSID == tsID {
			c.tsList[i].EITSchedReceived = ok
		}
	}
}
