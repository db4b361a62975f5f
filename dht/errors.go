package dht

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tells the poll loop what to do with a failed read.
type Kind int

const (
	// Fatal failures release the sensors and stop the process.
	Fatal Kind = iota
	// Retryable failures are missed timing windows, checksum mismatches and
	// implausible values. The caller waits and reads again.
	Retryable
)

func (k Kind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("sensor closed")

// ReadError is the error returned by Sensor.Read.
type ReadError struct {
	Kind Kind
	Pin  string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pin, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// KindOf reports Retryable only for errors carrying a retryable ReadError.
// Any other error is Fatal.
func KindOf(err error) Kind {
	var re *ReadError
	if errors.As(err, &re) {
		return re.Kind
	}
	return Fatal
}

// classify maps a go-dht error to a Kind. The driver reports GPIO failures as
// "pin ..." errors; every other read error is a bad transfer.
func classify(err error) Kind {
	msg := strings.ToLower(err.Error())
	if strings.HasPrefix(msg, "pin ") {
		return Fatal
	}
	return Retryable
}
