package scan

import (
	"time"

	"github.com/spartridge/dvbsi/internal/sistore"
)

// requirementKind identifies which cache map a requirement's key resolves
// against.
type requirementKind int

const (
	reqNIT requirementKind = iota
	reqBAT
	reqSDT
	reqEIT
)

// requirement is one entry of a check_tables required-set.
type requirement struct {
	kind requirementKind

	// NIT/BAT: networkID/bouquetID carries the extension_id.
	networkID uint16
	bouquetID uint16

	// SDT/EIT.
	originalNetworkID  uint16
	tsID               uint16
	serviceID          uint16
	isPresentFollowing bool
}

func nitRequirement(networkID uint16) requirement {
	return requirement{kind: reqNIT, networkID: networkID}
}

func batRequirement(bouquetID uint16) requirement {
	return requirement{kind: reqBAT, bouquetID: bouquetID}
}

func sdtRequirement(originalNetworkID, tsID uint16) requirement {
	return requirement{kind: reqSDT, originalNetworkID: originalNetworkID, tsID: tsID}
}

func eitRequirement(networkID, tsID, serviceID uint16, isPresentFollowing bool) requirement {
	return requirement{
		kind:               reqEIT,
		networkID:          networkID,
		tsID:               tsID,
		serviceID:          serviceID,
		isPresentFollowing: isPresentFollowing,
	}
}

// satisfied reports whether r is already present in cache.
func (r requirement) satisfied(cache *sistore.Cache) bool {
	switch r.kind {
	case reqNIT:
		_, ok := cache.NIT(r.networkID)
		return ok
	case reqBAT:
		_, ok := cache.BAT(r.bouquetID)
		return ok
	case reqSDT:
		_, ok := cache.SDT(r.originalNetworkID, r.tsID)
		return ok
	case reqEIT:
		_, ok := cache.EIT(r.networkID, r.tsID, r.serviceID, r.isPresentFollowing)
		return ok
	default:
		return false
	}
}

// checkTables polls cache once a second until every entry in required is
// present or timeout elapses. A zero timeout is a one-shot probe. stopCh,
// if non-nil and closed, aborts the wait early and returns false
// regardless of what was found.
func checkTables(cache *sistore.Cache, required []requirement, timeout time.Duration, stopCh <-chan struct{}) bool {
	deadline := time.Now().Add(timeout)
	for {
		if allSatisfied(cache, required) {
			return true
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return false
		}
		select {
		case <-stopCh:
			return false
		case <-time.After(time.Second):
		}
	}
}

func allSatisfied(cache *sistore.Cache, required []requirement) bool {
	for _, r := range required {
		if !r.satisfied(cache) {
			return false
		}
	}
	return true
}
