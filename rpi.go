package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	logger "github.com/d2r2/go-logger"
	shell "github.com/d2r2/go-shell"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"
	"golang.org/x/sync/errgroup"

	"github.com/blesswinsamuel/dht_exporter/config"
	"github.com/blesswinsamuel/dht_exporter/dht"
	"github.com/blesswinsamuel/dht_exporter/poll"
	"github.com/blesswinsamuel/dht_exporter/store"
)

func main() {
	err := run()
	logger.FinalizeLogger()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	if err := log.Base().SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	dht.SetDebug(cfg.LogLevel == "debug")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	signals := []os.Signal{os.Interrupt}
	if shell.IsLinuxMacOSFreeBSD() {
		signals = append(signals, syscall.SIGTERM)
	}
	shell.CloseContextOnSignals(cancel, done, signals...)

	if err := dht.HostInit(); err != nil {
		return err
	}
	slots, err := openSensors(cfg)
	if err != nil {
		return err
	}
	pub, err := openStores(ctx, cfg)
	if err != nil {
		closeSlots(slots)
		return err
	}
	var publisher poll.Publisher
	if pub != nil {
		defer pub.Close()
		publisher = pub
	}

	loop := poll.New(poll.Config{
		Interval:   cfg.Interval,
		RetryDelay: cfg.RetryDelay,
	}, slots, publisher, os.Stdout, log.Base())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if cfg.Listen != "" {
		srv := &http.Server{Addr: cfg.Listen, Handler: newMux(cfg.MetricsPath)}
		g.Go(func() error {
			log.Infoln("Listening on", cfg.Listen)
			log.Infoln("Serving metrics under", cfg.MetricsPath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	log.Infof("polling %d sensor(s) every %s", len(slots), cfg.Interval)
	return g.Wait()
}

func openSensors(cfg *config.Config) ([]poll.Slot, error) {
	slots := make([]poll.Slot, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		sensor, err := dht.Open(s.Pin, cfg.SensorType)
		if err != nil {
			closeSlots(slots)
			return nil, fmt.Errorf("open %s: %w", s.Key, err)
		}
		slots = append(slots, poll.Slot{Key: s.Key, Label: s.Label, Sensor: sensor})
	}
	return slots, nil
}

func closeSlots(slots []poll.Slot) {
	for _, s := range slots {
		if err := s.Sensor.Close(); err != nil {
			log.Errorf("release %s: %v", s.Key, err)
		}
	}
}

// openStores returns nil when no store is configured.
func openStores(ctx context.Context, cfg *config.Config) (store.Fanout, error) {
	var stores store.Fanout
	for _, kind := range cfg.Stores {
		var (
			s   store.Store
			err error
		)
		switch kind {
		case "redis":
			s, err = store.NewRedis(ctx, cfg.Redis)
		case "mqtt":
			s, err = store.NewMQTT(cfg.MQTT)
		}
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func newMux(metricsPath string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
			<head><title>Raspberry Pi DHT Exporter</title></head>
			<body>
			<h1>Raspberry Pi DHT Exporter</h1>
			<p><a href="` + metricsPath + `">Metrics</a></p>
			</body></html>`))
	})
	return mux
}
