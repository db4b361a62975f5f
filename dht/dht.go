package dht

import (
	"fmt"
	"strings"
	"sync"

	godht "github.com/MichaelS11/go-dht"
	logger "github.com/d2r2/go-logger"
	"github.com/davecgh/go-spew/spew"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

var lg = logger.NewPackageLogger("dht", logger.InfoLevel)

// SetDebug switches the package logger between info and debug output.
func SetDebug(on bool) {
	level := logger.InfoLevel
	if on {
		level = logger.DebugLevel
	}
	lg.Debugf("log level changed to %v", level)
	logger.ChangePackageLogLevel("dht", level)
}

// device is the part of the go-dht driver the handle needs.
type device interface {
	Read() (humidity float64, temperature float64, err error)
}

// Sensor is a handle on one DHT sensor bound to a GPIO pin.
// Call Open to create one and Close to release the pin.
type Sensor struct {
	pin  string
	dev  device
	halt func() error

	mu     sync.Mutex
	closed bool
}

// HostInit loads the periph host drivers. It must run once before Open.
func HostInit() error {
	state, err := host.Init()
	if err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	for _, driver := range state.Loaded {
		lg.Debugf("driver loaded: %s", driver)
	}
	for _, failure := range state.Skipped {
		lg.Debugf("driver skipped: %s: %v", failure.D, failure.Err)
	}
	// Having drivers failing to load may not require process termination.
	for _, failure := range state.Failed {
		lg.Warningf("driver failed to load: %s: %v", failure.D, failure.Err)
	}
	return nil
}

// Open binds a sensor to the GPIO pin named pinName, for example "GPIO23".
// sensorType is dht11 for DHT11, anything else for AM2302 / DHT22.
func Open(pinName string, sensorType string) (*Sensor, error) {
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, &ReadError{Kind: Fatal, Pin: pinName, Err: fmt.Errorf("unknown gpio pin")}
	}
	sensorType = strings.ToLower(sensorType)
	if sensorType != "dht11" {
		sensorType = "dht22"
	}
	dev, err := godht.NewDHT(pinName, godht.Celsius, sensorType)
	if err != nil {
		return nil, &ReadError{Kind: Fatal, Pin: pinName, Err: err}
	}
	lg.Infof("opened %s on %s", sensorType, pinName)
	return newSensor(pinName, dev, func() error { return release(p) }), nil
}

func newSensor(pin string, dev device, halt func() error) *Sensor {
	return &Sensor{pin: pin, dev: dev, halt: halt}
}

// release leaves the data line pulled high, the idle state of the bus.
func release(p gpio.PinIO) error {
	if err := p.Out(gpio.High); err != nil {
		return fmt.Errorf("pin out high error: %w", err)
	}
	return p.Halt()
}

// Pin returns the GPIO pin name the sensor is bound to.
func (s *Sensor) Pin() string { return s.pin }

// Read reads the sensor once, returning temperature in Celsius and relative
// humidity in percent. A non-nil error is always a *ReadError.
func (s *Sensor) Read() (celsius float64, humidity float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0, &ReadError{Kind: Fatal, Pin: s.pin, Err: ErrClosed}
	}

	humidity, celsius, err = s.dev.Read()
	if err != nil {
		kind := classify(err)
		lg.Debugf("%s read failed (%v): %v", s.pin, kind, err)
		return 0, 0, &ReadError{Kind: kind, Pin: s.pin, Err: err}
	}
	lg.Debug(spew.Sprintf("%s read: celsius=%v humidity=%v", s.pin, celsius, humidity))
	return celsius, humidity, nil
}

// Close releases the pin. Only the first call does any work.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	lg.Debugf("releasing %s", s.pin)
	if s.halt == nil {
		return nil
	}
	if err := s.halt(); err != nil {
		return fmt.Errorf("release %s: %w", s.pin, err)
	}
	return nil
}
