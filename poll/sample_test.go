package poll

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	require := require.New(t)

	for _, c := range []float64{-40, -12.3, 0, 22, 22.4, 37.5, 100} {
		require.Equal(c*9/5+32, CelsiusToFahrenheit(c))
	}
	require.Equal(-40.0, CelsiusToFahrenheit(-40))
	require.Equal(212.0, CelsiusToFahrenheit(100))
}

func TestSampleLine(t *testing.T) {
	tests := []struct {
		label    string
		celsius  float64
		humidity float64
		want     string
	}{
		{"Sensor1", 22.0, 55, "Sensor1: 71.6 F / 22.0 C Humidity: 55%"},
		{"Sensor2", 19.4, 61.3, "Sensor2: 66.9 F / 19.4 C Humidity: 61.3%"},
		{"Sensor1", -5.5, 80, "Sensor1: 22.1 F / -5.5 C Humidity: 80%"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := NewSample(tt.celsius, tt.humidity, time.Time{})
			require.Equal(t, tt.want, s.Line(tt.label))
		})
	}
}

func TestRecordJSON(t *testing.T) {
	require := require.New(t)

	at := time.Unix(1700000000, 500000000)
	payload, err := NewSample(22.0, 55, at).Record().Marshal()
	require.NoError(err)
	require.JSONEq(`{"temperature_c":22.0,"temperature_f":71.6,"humidity":55,"timestamp":1700000000.5}`, string(payload))
	require.Contains(string(payload), `"temperature_c":22.0,`)

	var r Record
	require.NoError(json.Unmarshal(payload, &r))
	require.Equal(22.0, r.TemperatureC.Float())
	require.Equal(71.6, r.TemperatureF.Float())
	require.Equal(55.0, r.Humidity)
	require.WithinDuration(at, r.Time(), time.Millisecond)
}

func TestRecordRoundsToOneDecimal(t *testing.T) {
	require := require.New(t)

	r := NewSample(23.46, 48.2, time.Unix(0, 0)).Record()
	require.Equal(23.5, r.TemperatureC.Float())
	require.Equal(74.2, r.TemperatureF.Float())

	payload, err := r.Marshal()
	require.NoError(err)
	require.Contains(string(payload), `"temperature_f":74.2`)
	require.Contains(string(payload), `"humidity":48.2`)
}
