package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/blesswinsamuel/dht_exporter/dht"
)

// ReadRetry reads r until it succeeds, a fatal error occurs, or maxRetries
// retryable failures have been seen. It waits delay between attempts and
// returns the sample with the number of retries used. r is not closed.
func ReadRetry(ctx context.Context, r Reader, maxRetries int, delay time.Duration) (Sample, int, error) {
	return readRetry(ctx, r, maxRetries, delay, sleep)
}

func readRetry(ctx context.Context, r Reader, maxRetries int, delay time.Duration,
	sleep func(context.Context, time.Duration) error) (Sample, int, error) {
	for retries := 0; ; retries++ {
		celsius, humidity, err := r.Read()
		if err == nil {
			return NewSample(celsius, humidity, time.Now()), retries, nil
		}
		if dht.KindOf(err) != dht.Retryable || retries >= maxRetries {
			return Sample{}, retries, err
		}
		if err := sleep(ctx, delay); err != nil {
			return Sample{}, retries, fmt.Errorf("read interrupted: %w", err)
		}
	}
}
