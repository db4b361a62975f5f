// Command oneshot reads a DHT sensor once and prints the sample, or prints the
// records currently held in Redis with -show.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	logger "github.com/d2r2/go-logger"
	shell "github.com/d2r2/go-shell"
	"github.com/prometheus/common/log"

	"github.com/blesswinsamuel/dht_exporter/dht"
	"github.com/blesswinsamuel/dht_exporter/poll"
	"github.com/blesswinsamuel/dht_exporter/store"
)

var (
	pin        = flag.String("pin", "GPIO23", "GPIO pin name")
	label      = flag.String("label", "Sensor1", "label printed before the sample")
	sensorType = flag.String("sensor_type", "dht22", "dht22 (AM2302) or dht11")
	retries    = flag.Int("retries", 11, "retries on transient read failures")
	retryDelay = flag.Duration("retry_delay", poll.DefaultRetryDelay, "pause between retries")
	show       = flag.String("show", "", "comma separated keys to print from redis instead of reading a sensor")
	redisAddr  = flag.String("redis_addr", store.DefaultRedisAddr, "redis address for -show")
	debug      = flag.Bool("debug", false, "debug logging")
)

func main() {
	flag.Parse()
	defer logger.FinalizeLogger()
	dht.SetDebug(*debug)
	if *debug {
		log.Base().SetLevel("debug")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	signals := []os.Signal{os.Interrupt}
	if shell.IsLinuxMacOSFreeBSD() {
		signals = append(signals, syscall.SIGTERM)
	}
	shell.CloseContextOnSignals(cancel, done, signals...)

	var err error
	if *show != "" {
		err = showRecords(ctx, strings.Split(*show, ","))
	} else {
		err = readOnce(ctx)
	}
	if err != nil {
		fmt.Println("Read error:", err)
		os.Exit(1)
	}
}

func readOnce(ctx context.Context) error {
	if err := dht.HostInit(); err != nil {
		return err
	}
	s, err := dht.Open(*pin, *sensorType)
	if err != nil {
		return err
	}
	defer s.Close()

	sample, retried, err := poll.ReadRetry(ctx, s, *retries, *retryDelay)
	if err != nil {
		return err
	}
	log.Debugf("read %s after %d retries", *pin, retried)
	fmt.Println(sample.Line(*label))
	return nil
}

func showRecords(ctx context.Context, keys []string) error {
	r, err := store.NewRedis(ctx, store.RedisOptions{Addr: *redisAddr})
	if err != nil {
		return err
	}
	defer r.Close()

	for _, key := range keys {
		key = strings.TrimSpace(key)
		rec, err := r.Latest(ctx, key)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %.1f F / %.1f C Humidity: %v%% at %s\n",
			key, rec.TemperatureF.Float(), rec.TemperatureC.Float(), rec.Humidity,
			rec.Time().Format("2006-01-02 15:04:05"))
	}
	return nil
}
