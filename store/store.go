// Package store writes the latest sample of each sensor to an external
// key-value service. Every write replaces the previous value for its key.
package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("store")

// Store publishes payloads under plain string keys.
type Store interface {
	Publish(ctx context.Context, key string, payload []byte) error
	io.Closer
}

// Fanout publishes to every store in order and stops at the first error.
type Fanout []Store

func (f Fanout) Publish(ctx context.Context, key string, payload []byte) error {
	for _, s := range f {
		if err := s.Publish(ctx, key, payload); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every store and returns the first error.
func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Kinds lists the store names accepted by ParseKinds.
var Kinds = []string{"redis", "mqtt", "none"}

// ParseKinds splits a comma separated store selection such as "redis,mqtt".
// "none" or an empty string selects no store.
func ParseKinds(s string) ([]string, error) {
	var kinds []string
	seen := map[string]bool{}
	for _, k := range strings.Split(s, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		switch k {
		case "", "none":
			continue
		case "redis", "mqtt":
			if !seen[k] {
				kinds = append(kinds, k)
				seen[k] = true
			}
		default:
			return nil, fmt.Errorf("unknown store %q, want one of %s", k, strings.Join(Kinds, ", "))
		}
	}
	return kinds, nil
}
