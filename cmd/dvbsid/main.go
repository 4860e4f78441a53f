// Command dvbsid wires the section demultiplexer, storage controller, and
// scan controller together and exposes a tiny HTTP surface (/healthz with
// the scan state, and Prometheus /metrics). The tuner driver itself is
// deployment-specific; this binary ships only a stub that logs retunes, the
// way a real deployment would substitute its own hardware adapter.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spartridge/dvbsi/internal/config"
	"github.com/spartridge/dvbsi/internal/dvbsi"
	"github.com/spartridge/dvbsi/internal/dvbsimetrics"
	"github.com/spartridge/dvbsi/internal/scan"
	"github.com/spartridge/dvbsi/internal/settings"
	"github.com/spartridge/dvbsi/internal/sistore"
)

func main() {
	envFile := flag.String("envfile", ".env", "optional .env file to load before reading settings")
	addr := flag.String("addr", ":9090", "HTTP listen address for /healthz and /metrics")
	sectionAddr := flag.String("section-addr", ":9091", "TCP listen address for incoming framed SI sections")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("dvbsid: load env file %s: %v", *envFile, err)
	}

	cfg := settings.Load()

	reg := prometheus.NewRegistry()
	metrics := dvbsimetrics.NewMetrics(reg)

	store, err := sistore.Open(cfg.DBFilename)
	if err != nil {
		log.Fatalf("dvbsid: open store: %v", err)
	}
	defer store.Close()

	previous, err := store.LoadScanSettings()
	if err != nil {
		log.Fatalf("dvbsid: load scan settings: %v", err)
	}
	if cfg.Changed(previous) {
		log.Printf("dvbsid: scan settings changed, recreating schema")
		if err := store.DropAndRecreate(); err != nil {
			log.Fatalf("dvbsid: drop and recreate schema: %v", err)
		}
	}
	if err := store.SaveScanSettings(cfg.AsMap()); err != nil {
		log.Printf("dvbsid: save scan settings: %v", err)
	}

	cache := sistore.NewCache()
	cache.SetPreferredNetworkID(cfg.PreferredNetworkID)
	storeCtrl := sistore.NewController(cache, store, metrics)

	clock := settings.NewClock(noopClockSetter{})
	storeCtrl.SetTDTSink(clock.OnTDT)

	demux := dvbsi.NewDemux(storeCtrl.OnTable, metrics)

	tuner := &loggingTuner{}
	scanCtrl := scan.NewController(cache, storeCtrl, tuner, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := dvbsi.NewSectionFeed(demux)
	sectionListener, err := net.Listen("tcp", *sectionAddr)
	if err != nil {
		log.Fatalf("dvbsid: listen %s: %v", *sectionAddr, err)
	}
	go func() {
		if err := feed.Serve(ctx, sectionListener); err != nil {
			log.Printf("dvbsid: section feed: %v", err)
		}
	}()

	if err := scanCtrl.StartScan(cfg, true); err != nil {
		log.Fatalf("dvbsid: start scan: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(scanCtrl.State().String()))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		log.Printf("dvbsid: listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dvbsid: http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("dvbsid: shutting down")

	scanCtrl.StopScan()
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}

// loggingTuner is the stand-in Tuner used when no real frontend driver is
// wired; it logs every retune instead of touching hardware.
type loggingTuner struct{}

func (t *loggingTuner) Tune(frequencyHz int64, modulation dvbsi.Modulation, symbolRateSps int64) error {
	log.Printf("tuner: tune freq=%d modulation=%d symbol_rate=%d", frequencyHz, modulation, symbolRateSps)
	return nil
}

func (t *loggingTuner) Untune() error {
	log.Printf("tuner: untune")
	return nil
}

// noopClockSetter discards TDT-derived wall-clock updates; a real
// deployment wires settimeofday(2) or equivalent here.
type noopClockSetter struct{}

func (noopClockSetter) SetSystemClock(t time.Time) error {
	log.Printf("clock: observed TDT time %s (not applied, no clock setter wired)", t)
	return nil
}
