package scan

import (
	"fmt"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
	"github.com/spartridge/dvbsi/internal/settings"
)

const (
	nitTimeout      = 15 * time.Second
	batTimeout      = 15 * time.Second
	sdtTimeout      = 5 * time.Second
	sdtOtherTimeout = 15 * time.Second
	eitPFTimeout    = 5 * time.Second
)

// tsParams resolves the physical tuning parameters a TransportStream's
// cable_delivery_system_descriptor announces. Streams without one (e.g. the
// home TS supplied directly from settings) are handled by the caller.
func tsParams(ts dvbsi.TransportStream) (freqHz int64, mod dvbsi.Modulation, symRate int64, ok bool) {
	d, found := dvbsi.FindDescriptor(ts.Descriptors, dvbsi.TagCableDeliverySystem)
	if !found {
		return 0, 0, 0, false
	}
	cds, ok := dvbsi.DecodeCableDeliverySystem(d)
	if !ok {
		return 0, 0, 0, false
	}
	return cds.FrequencyHz, cds.Modulation, cds.SymbolRateSps, true
}

// scanHome tunes to the home TS and waits for the preferred network's NIT
// and every configured BAT, then for the SDT of every announced TS in smart
// mode, or of the home TS alone otherwise.
func (c *Controller) scanHome(cfg settings.ScanSettings, stopCh <-chan struct{}) error {
	c.cache.Clear()
	c.cache.SetPreferredNetworkID(cfg.PreferredNetworkID)

	if err := c.tuner.Tune(cfg.HomeTSFrequencyHz, cfg.HomeTSModulation, cfg.HomeTSSymbolRateSps); err != nil {
		return fmt.Errorf("scan: tune home TS: %w", err)
	}
	c.metrics.RecordRetune("home")
	defer c.tuner.Untune()

	nitReq := []requirement{nitRequirement(cfg.PreferredNetworkID)}
	batReqs := make([]requirement, 0, len(cfg.BouquetIDList))
	for _, bouquetID := range cfg.BouquetIDList {
		batReqs = append(batReqs, batRequirement(bouquetID))
	}
	wait := nitTimeout
	if batTimeout > wait {
		wait = batTimeout
	}
	if !checkTables(c.cache, append(append([]requirement{}, nitReq...), batReqs...), wait, stopCh) {
		c.metrics.RecordWaitTimeout()
	}
	nitOK := allSatisfied(c.cache, nitReq)
	batOK := allSatisfied(c.cache, batReqs)

	streams := c.cache.TSList(cfg.PreferredNetworkID)
	c.setTSList(streams)
	c.recordNITBAT(nitOK, batOK)

	if !cfg.FastScanSmart {
		streams = homeOnly(streams, cfg.HomeTSFrequencyHz)
	}

	sdtWait := sdtTimeout
	if cfg.FastScanSmart {
		sdtWait = sdtOtherTimeout
	}
	for _, ts := range streams {
		ok := checkTables(c.cache, []requirement{sdtRequirement(ts.OriginalNetworkID, ts.TSID)}, sdtWait, stopCh)
		c.recordSDT(ts.TSID, ok)
		if !ok {
			c.metrics.RecordWaitTimeout()
		}
	}
	return nil
}

func homeOnly(streams []dvbsi.TransportStream, homeFreqHz int64) []dvbsi.TransportStream {
	for _, ts := range streams {
		freq, _, _, ok := tsParams(ts)
		if ok && freq == homeFreqHz {
			return []dvbsi.TransportStream{ts}
		}
	}
	if len(streams) > 0 {
		return streams[:1]
	}
	return nil
}

// scanFast runs scanHome, then for every TS in the NIT requires its SDT and
// an EIT present/following for every announced service. In
// smart mode it probes the cache with timeout=0 first and skips retuning
// when everything required is already present.
func (c *Controller) scanFast(cfg settings.ScanSettings, stopCh <-chan struct{}) error {
	if err := c.scanHome(cfg, stopCh); err != nil {
		return err
	}

	streams := c.cache.TSList(cfg.PreferredNetworkID)
	wait := sdtTimeout
	if eitPFTimeout > wait {
		wait = eitPFTimeout
	}

	for _, ts := range streams {
		select {
		case <-stopCh:
			return nil
		default:
		}

		required := c.serviceRequirements(cfg.PreferredNetworkID, ts.TSID, ts.OriginalNetworkID)

		if cfg.FastScanSmart && checkTables(c.cache, required, 0, stopCh) {
			c.recordSDT(ts.TSID, true)
			c.recordEITPF(ts.TSID, true)
			continue
		}

		freq, mod, symRate, ok := tsParams(ts)
		if !ok {
			freq, mod, symRate = cfg.HomeTSFrequencyHz, cfg.HomeTSModulation, cfg.HomeTSSymbolRateSps
		}
		if err := c.tuner.Tune(freq, mod, symRate); err != nil {
			c.recordSDT(ts.TSID, false)
			c.recordEITPF(ts.TSID, false)
			continue
		}
		c.metrics.RecordRetune("fast")
		allOK := checkTables(c.cache, required, wait, stopCh)
		c.tuner.Untune()

		c.recordSDT(ts.TSID, allOK)
		c.recordEITPF(ts.TSID, allOK)
		if !allOK {
			c.metrics.RecordWaitTimeout()
		}
	}
	return nil
}

// serviceRequirements builds the SDT + per-service EIT-pf required set for
// a single TS.
func (c *Controller) serviceRequirements(networkID, tsID, originalNetworkID uint16) []requirement {
	required := []requirement{sdtRequirement(originalNetworkID, tsID)}
	for _, svc := range c.cache.ServiceList(originalNetworkID, tsID) {
		required = append(required, eitRequirement(networkID, tsID, svc.ServiceID, true))
	}
	return required
}

func (c *Controller) setTSList(streams []dvbsi.TransportStream) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	c.tsList = c.tsList[:0]
	for _, ts := range streams {
		freq, _, _, _ := tsParams(ts)
		c.tsList = append(c.tsList, TSStatus{TSID: ts.TSID, FrequencyHz: freq})
	}
}

// recordNITBAT marks the NIT/BAT acquisition outcome on every TS entry;
// both tables arrive on the home TS but describe the whole network.
func (c *Controller) recordNITBAT(nitOK, batOK bool) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	for i := range c.tsList {
		c.tsList[i].NITReceived = nitOK
		c.tsList[i].BATReceived = batOK
	}
}

func (c *Controller) recordSDT(tsID uint16, ok bool) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	for i := range c.tsList {
		if c.tsList[i].TSID == tsID {
			c.tsList[i].SDTReceived = ok
		}
	}
}

func (c *Controller) recordEITPF(tsID uint16, ok bool) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	for i := range c.tsList {
		if c.tsList[i].TSID == tsID {
			c.tsList[i].EITPFReceived = ok
		}
	}
}
