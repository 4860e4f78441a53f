// Package sistore caches and persists the typed SI tables dvbsi reassembles:
// an in-memory latest-version cache for fast lookups, and a normalised
// sqlite snapshot for cross-session reuse.
package sistore

import (
	"sync"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

type sdtKey struct {
	originalNetworkID uint16
	tsID              uint16
}

type eitKey struct {
	networkID          uint16
	tsID               uint16
	serviceID          uint16
	isPresentFollowing bool
}

// Cache holds the latest-version copy of every SI table kind, keyed by its
// natural identifiers. The zero value is not usable; construct with
// NewCache.
type Cache struct {
	mu sync.RWMutex

	preferredNetworkID uint16

	nitMap map[uint16]dvbsi.NIT
	batMap map[uint16]dvbsi.BAT
	sdtMap map[sdtKey]dvbsi.SDT
	eitMap map[eitKey]dvbsi.EIT

	// tot is the most recent Time Offset Table, kept so
	// local_time_offset descriptors stay available between scans. It is a
	// singleton, not a keyed map, and survives Clear (time information
	// does not go stale when the catalogue is rescanned).
	tot      dvbsi.TDTTOT
	totValid bool
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		nitMap: make(map[uint16]dvbsi.NIT),
		batMap: make(map[uint16]dvbsi.BAT),
		sdtMap: make(map[sdtKey]dvbsi.SDT),
		eitMap: make(map[eitKey]dvbsi.EIT),
	}
}

// Clear empties all four maps, used at the start of a home-TS scan.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nitMap = make(map[uint16]dvbsi.NIT)
	c.batMap = make(map[uint16]dvbsi.BAT)
	c.sdtMap = make(map[sdtKey]dvbsi.SDT)
	c.eitMap = make(map[eitKey]dvbsi.EIT)
}

// ClearEIT empties only the EIT map, used before a barker-TS schedule
// sweep.
func (c *Cache) ClearEIT() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eitMap = make(map[eitKey]dvbsi.EIT)
}

// PreferredNetworkID returns the currently configured preferred network id.
func (c *Cache) PreferredNetworkID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preferredNetworkID
}

// SetPreferredNetworkID sets the filter NIT admission checks against. Zero
// disables filtering.
func (c *Cache) SetPreferredNetworkID(id uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferredNetworkID = id
}

// admit reports whether oldVersion/newVersion/exists imply the new table
// should replace what's cached: absent, or a version change.
func admit(exists bool, oldVersion, newVersion byte) bool {
	return !exists || oldVersion != newVersion
}

// PutNIT installs nit if it is new or has a different version than the
// cached copy, subject to the preferred-network-id filter.
func (c *Cache) PutNIT(nit dvbsi.NIT) (admitted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preferredNetworkID != 0 && nit.NetworkID != c.preferredNetworkID {
		return false
	}
	old, exists := c.nitMap[nit.NetworkID]
	if !admit(exists, old.Version, nit.Version) {
		return false
	}
	c.nitMap[nit.NetworkID] = nit
	return true
}

// NIT returns the cached NIT for networkID, if any.
func (c *Cache) NIT(networkID uint16) (dvbsi.NIT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nit, ok := c.nitMap[networkID]
	return nit, ok
}

// PutBAT installs bat if it is new or version-changed.
func (c *Cache) PutBAT(bat dvbsi.BAT) (admitted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, exists := c.batMap[bat.BouquetID]
	if !admit(exists, old.Version, bat.Version) {
		return false
	}
	c.batMap[bat.BouquetID] = bat
	return true
}

// BAT returns the cached BAT for bouquetID, if any.
func (c *Cache) BAT(bouquetID uint16) (dvbsi.BAT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bat, ok := c.batMap[bouquetID]
	return bat, ok
}

// PutSDT installs sdt if it is new or version-changed.
func (c *Cache) PutSDT(sdt dvbsi.SDT) (admitted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sdtKey{originalNetworkID: sdt.OriginalNetworkID, tsID: sdt.TransportStreamID}
	old, exists := c.sdtMap[key]
	if !admit(exists, old.Version, sdt.Version) {
		return false
	}
	c.sdtMap[key] = sdt
	return true
}

// SDT returns the cached SDT for (originalNetworkID, tsID), if any.
func (c *Cache) SDT(originalNetworkID, tsID uint16) (dvbsi.SDT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sdt, ok := c.sdtMap[sdtKey{originalNetworkID: originalNetworkID, tsID: tsID}]
	return sdt, ok
}

// PutTOT installs tot as the most recent Time Offset Table.
func (c *Cache) PutTOT(tot dvbsi.TDTTOT) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tot = tot
	c.totValid = true
}

// TOT returns the most recent Time Offset Table, if one has arrived.
func (c *Cache) TOT() (dvbsi.TDTTOT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tot, c.totValid
}

// LocalTimeOffsets returns the local_time_offset records announced by the
// most recent TOT, or nil when no TOT has been observed.
func (c *Cache) LocalTimeOffsets() []dvbsi.LocalTimeOffsetEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.totValid {
		return nil
	}
	var out []dvbsi.LocalTimeOffsetEntry
	for _, d := range dvbsi.FindAllDescriptors(c.tot.Descriptors, dvbsi.TagLocalTimeOffset) {
		out = append(out, dvbsi.DecodeLocalTimeOffset(d)...)
	}
	return out
}

// IsPresentFollowing reports whether tableID identifies a present/following
// EIT variant, as opposed to a schedule variant.
func IsPresentFollowing(tableID byte) bool {
	return tableID == dvbsi.TableIDEITPFActual || tableID == dvbsi.TableIDEITPFOther
}

// PutEIT installs eit (received under tableID, to resolve present/following
// vs. schedule) if it is new or version-changed.
func (c *Cache) PutEIT(tableID byte, eit dvbsi.EIT) (admitted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := eitKey{
		networkID:          eit.NetworkID,
		tsID:               eit.TransportStreamID,
		serviceID:          eit.ServiceID,
		isPresentFollowing: IsPresentFollowing(tableID),
	}
	old, exists := c.eitMap[key]
	if !admit(exists, old.Version, eit.Version) {
		return false
	}
	c.eitMap[key] = eit
	return true
}

// EIT returns the cached EIT for (networkID, tsID, serviceID,
// isPresentFollowing), if any.
func (c *Cache) EIT(networkID, tsID, serviceID uint16, isPresentFollowing bool) (dvbsi.EIT, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eit, ok := c.eitMap[eitKey{networkID: networkID, tsID: tsID, serviceID: serviceID, isPresentFollowing: isPresentFollowing}]
	return eit, ok
}

// TSList returns every transport stream the NIT for networkID announces. If
// networkID is zero, the preferred network id is used instead.
func (c *Cache) TSList(networkID uint16) []dvbsi.TransportStream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if networkID == 0 {
		networkID = c.preferredNetworkID
	}
	nit, ok := c.nitMap[networkID]
	if !ok {
		return nil
	}
	return nit.Streams
}

// ServiceList returns the services from the SDT keyed by
// (originalNetworkID, tsID).
func (c *Cache) ServiceList(originalNetworkID, tsID uint16) []dvbsi.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sdt, ok := c.sdtMap[sdtKey{originalNetworkID: originalNetworkID, tsID: tsID}]
	if !ok {
		return nil
	}
	return sdt.Services
}

// EventList returns the events from the present/following EIT keyed by
// (networkID, tsID, serviceID).
func (c *Cache) EventList(networkID, tsID, serviceID uint16) []dvbsi.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eit, ok := c.eitMap[eitKey{networkID: networkID, tsID: tsID, serviceID: serviceID, isPresentFollowing: true}]
	if !ok {
		return nil
	}
	return eit.Events
}
