// Package poll reads DHT sensors in a loop, prints each sample and publishes
// the latest sample per sensor to a store.
package poll

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gavv/monotime"
	"github.com/prometheus/common/log"

	"github.com/blesswinsamuel/dht_exporter/dht"
	"github.com/blesswinsamuel/dht_exporter/metrics"
)

const (
	DefaultInterval   = 4 * time.Second
	DefaultRetryDelay = 2 * time.Second
)

// Reader is an open sensor handle. *dht.Sensor implements it.
type Reader interface {
	Read() (celsius float64, humidity float64, err error)
	Close() error
}

// Publisher stores payload under key, replacing any previous value.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Slot is a sensor together with the store key and console label it
// reports under.
type Slot struct {
	Key    string
	Label  string
	Sensor Reader
}

// Config holds the loop timings.
type Config struct {
	// Interval is the pause after every sensor was read.
	Interval time.Duration
	// RetryDelay is the pause after a retryable read failure.
	RetryDelay time.Duration
}

// Loop owns the sensor handles for its lifetime. Run releases all of them
// before returning.
type Loop struct {
	cfg   Config
	slots []Slot
	pub   Publisher
	out   io.Writer
	log   log.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a loop. pub may be nil when samples are only printed.
// A nil logger uses the base logger.
func New(cfg Config, slots []Slot, pub Publisher, out io.Writer, logger log.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = log.Base()
	}
	return &Loop{
		cfg:   cfg,
		slots: slots,
		pub:   pub,
		out:   out,
		log:   logger,
		sleep: sleep,
		now:   time.Now,
	}
}

// Run polls until ctx is cancelled, which returns nil, or until a fatal error,
// which is returned. Retryable read errors are retried forever.
func (l *Loop) Run(ctx context.Context) error {
	defer l.release()

	for {
		if ctx.Err() != nil {
			return nil
		}
		retry, err := l.iteration(ctx)
		if err != nil {
			return err
		}
		delay := l.cfg.Interval
		if retry {
			delay = l.cfg.RetryDelay
		}
		if err := l.sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

// iteration reads every slot once. It stops at the first retryable failure
// and reports it with retry set.
func (l *Loop) iteration(ctx context.Context) (retry bool, err error) {
	for _, s := range l.slots {
		celsius, humidity, err := l.read(s)
		if err != nil {
			if dht.KindOf(err) == dht.Retryable {
				metrics.Retries.WithLabelValues(s.Key).Inc()
				l.log.With("sensor", s.Key).Debugf("retrying in %s: %v", l.cfg.RetryDelay, err)
				fmt.Fprintln(l.out, err)
				return true, nil
			}
			metrics.Failures.WithLabelValues(s.Key).Inc()
			return false, fmt.Errorf("read %s: %w", s.Key, err)
		}

		sample := NewSample(celsius, humidity, l.now())
		metrics.Readings.WithLabelValues(s.Key).Inc()
		metrics.Temperature.WithLabelValues(s.Key).Set(sample.Celsius)
		metrics.Humidity.WithLabelValues(s.Key).Set(sample.Humidity)

		if l.pub != nil {
			if err := l.publish(ctx, s.Key, sample); err != nil {
				metrics.Failures.WithLabelValues(s.Key).Inc()
				return false, err
			}
		}
		fmt.Fprintln(l.out, sample.Line(s.Label))
	}
	fmt.Fprintln(l.out)
	return false, nil
}

func (l *Loop) read(s Slot) (float64, float64, error) {
	start := monotime.Now()
	celsius, humidity, err := s.Sensor.Read()
	metrics.ReadDuration.WithLabelValues(s.Key).Observe((monotime.Now() - start).Seconds())
	return celsius, humidity, err
}

func (l *Loop) publish(ctx context.Context, key string, sample Sample) error {
	payload, err := sample.Record().Marshal()
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.pub.Publish(ctx, key, payload); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	metrics.Publishes.WithLabelValues(key).Inc()
	return nil
}

// release closes every handle once, continuing past errors.
func (l *Loop) release() {
	for _, s := range l.slots {
		if err := s.Sensor.Close(); err != nil {
			l.log.With("sensor", s.Key).Errorf("release failed: %v", err)
			continue
		}
		l.log.With("sensor", s.Key).Debugln("released")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
