// Package settings reads the acquisition scheduler's environment-variable
// configuration, flattens it to a snapshot for change detection against the
// one the store persisted, and applies the wall clock from an observed TDT.
package settings

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

// ScanSettings is the environment-derived configuration recognised by the
// scan controller.
type ScanSettings struct {
	PreferredNetworkID uint16
	BouquetIDList      []uint16

	HomeTSFrequencyHz   int64
	HomeTSModulation    dvbsi.Modulation
	HomeTSSymbolRateSps int64

	BarkerTSFrequencyHz   int64
	BarkerTSModulation    dvbsi.Modulation
	BarkerTSSymbolRateSps int64
	BarkerEITTimeout      time.Duration

	FastScanSmart          bool
	BackgroundScanInterval time.Duration

	DBFilename string
}

const defaultDBFilename = "/var/lib/dvbsi/dvbsi.db"

// Load reads ScanSettings from the process environment.
func Load() ScanSettings {
	return ScanSettings{
		PreferredNetworkID: uint16(getEnvInt("PREFERRED_NETWORK_ID", 0)),
		BouquetIDList:      getEnvUint16List("BOUQUET_ID_LIST"),

		HomeTSFrequencyHz:   int64(getEnvInt("HOME_TS_FREQUENCY", 0)),
		HomeTSModulation:    dvbsi.Modulation(getEnvInt("HOME_TS_MODULATION", 0)),
		HomeTSSymbolRateSps: int64(getEnvInt("HOME_TS_SYMBOL_RATE", 0)),

		BarkerTSFrequencyHz:   int64(getEnvInt("BARKER_TS_FREQUENCY", 0)),
		BarkerTSModulation:    dvbsi.Modulation(getEnvInt("BARKER_TS_MODULATION", 0)),
		BarkerTSSymbolRateSps: int64(getEnvInt("BARKER_TS_SYMBOL_RATE", 0)),
		BarkerEITTimeout:      getEnvDuration("BARKER_EIT_TIMEOUT", 60*time.Second),

		FastScanSmart:          getEnvBool("FAST_SCAN_SMART", false),
		BackgroundScanInterval: getEnvDuration("BACKGROUND_SCAN_INTERVAL", 6*time.Hour),

		DBFilename: getEnv("DB_FILENAME", defaultDBFilename),
	}
}

// HasBarkerTS reports whether a barker transport stream is configured.
func (s ScanSettings) HasBarkerTS() bool {
	return s.BarkerTSFrequencyHz != 0
}

// AsMap flattens the settings to string key/value pairs, the form persisted
// to and compared against the ScanSettings table.
func (s ScanSettings) AsMap() map[string]string {
	ids := make([]string, len(s.BouquetIDList))
	for i, id := range s.BouquetIDList {
		ids[i] = strconv.Itoa(int(id))
	}
	return map[string]string{
		"PREFERRED_NETWORK_ID":     strconv.Itoa(int(s.PreferredNetworkID)),
		"BOUQUET_ID_LIST":          strings.Join(ids, ","),
		"HOME_TS_FREQUENCY":        strconv.FormatInt(s.HomeTSFrequencyHz, 10),
		"HOME_TS_MODULATION":       strconv.Itoa(int(s.HomeTSModulation)),
		"HOME_TS_SYMBOL_RATE":      strconv.FormatInt(s.HomeTSSymbolRateSps, 10),
		"BARKER_TS_FREQUENCY":      strconv.FormatInt(s.BarkerTSFrequencyHz, 10),
		"BARKER_TS_MODULATION":     strconv.Itoa(int(s.BarkerTSModulation)),
		"BARKER_TS_SYMBOL_RATE":    strconv.FormatInt(s.BarkerTSSymbolRateSps, 10),
		"BARKER_EIT_TIMEOUT":       s.BarkerEITTimeout.String(),
		"FAST_SCAN_SMART":          strconv.FormatBool(s.FastScanSmart),
		"BACKGROUND_SCAN_INTERVAL": s.BackgroundScanInterval.String(),
		"DB_FILENAME":              s.DBFilename,
	}
}

// Changed reports whether s differs from a previously persisted snapshot
// snapshot. The caller recreates the schema when it reports true.
func (s ScanSettings) Changed(previous map[string]string) bool {
	current := s.AsMap()
	if len(previous) != len(current) {
		return true
	}
	for k, v := range current {
		if previous[k] != v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "TRUE") || v == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvUint16List(key string) []uint16 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, uint16(n))
	}
	return out
}
