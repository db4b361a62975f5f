package poll

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Sample is one sensor reading at one instant.
type Sample struct {
	Celsius    float64
	Fahrenheit float64
	Humidity   float64
	Time       time.Time
}

// NewSample derives the Fahrenheit value from celsius.
func NewSample(celsius, humidity float64, at time.Time) Sample {
	return Sample{
		Celsius:    celsius,
		Fahrenheit: CelsiusToFahrenheit(celsius),
		Humidity:   humidity,
		Time:       at,
	}
}

// CelsiusToFahrenheit converts a temperature from Celsius to Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Line formats the sample for the console, e.g.
// "Sensor1: 71.6 F / 22.0 C Humidity: 55%".
func (s Sample) Line(label string) string {
	return fmt.Sprintf("%s: %.1f F / %.1f C Humidity: %s%%",
		label, s.Fahrenheit, s.Celsius, strconv.FormatFloat(s.Humidity, 'f', -1, 64))
}

// Record returns the store representation of the sample.
func (s Sample) Record() Record {
	return Record{
		TemperatureC: OneDecimal(round1(s.Celsius)),
		TemperatureF: OneDecimal(round1(s.Fahrenheit)),
		Humidity:     s.Humidity,
		Timestamp:    float64(s.Time.UnixNano()) / float64(time.Second),
	}
}

// Record is the JSON value stored under a sensor key.
type Record struct {
	TemperatureC OneDecimal `json:"temperature_c"`
	TemperatureF OneDecimal `json:"temperature_f"`
	Humidity     float64    `json:"humidity"`
	Timestamp    float64    `json:"timestamp"`
}

// Time converts the epoch seconds timestamp back to a time.Time.
func (r Record) Time() time.Time {
	sec, frac := math.Modf(r.Timestamp)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Marshal encodes the record as JSON.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// OneDecimal is a temperature that always encodes with a single fractional
// digit, so 22 is written as 22.0.
type OneDecimal float64

func (d OneDecimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(d), 'f', 1, 64)), nil
}

func (d *OneDecimal) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decode temperature %q: %w", b, err)
	}
	*d = OneDecimal(v)
	return nil
}

// Float returns the value as a float64.
func (d OneDecimal) Float() float64 { return float64(d) }

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
