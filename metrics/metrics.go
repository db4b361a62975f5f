// Package metrics holds the Prometheus collectors updated by the poll loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Temperature = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pi_dht_temperature_celsius",
		Help: "Temperature from DHT sensor",
	}, []string{"sensor"})
	Humidity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pi_dht_humidity",
		Help: "Humidity from DHT sensor",
	}, []string{"sensor"})
	Retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pi_dht_retries_total",
		Help: "Retries from DHT sensor",
	}, []string{"sensor"})
	Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pi_dht_failures_total",
		Help: "Fatal failures from DHT sensor or store",
	}, []string{"sensor"})
	Readings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pi_dht_readings_total",
		Help: "Successful readings from DHT sensor",
	}, []string{"sensor"})
	Publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pi_dht_publishes_total",
		Help: "Store records written",
	}, []string{"sensor"})
	ReadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pi_dht_read_duration_seconds",
		Help:    "Time spent in a single DHT read, including driver pacing",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 2.5, 3, 5},
	}, []string{"sensor"})
)

func init() {
	prometheus.MustRegister(Temperature)
	prometheus.MustRegister(Humidity)
	prometheus.MustRegister(Retries)
	prometheus.MustRegister(Failures)
	prometheus.MustRegister(Readings)
	prometheus.MustRegister(Publishes)
	prometheus.MustRegister(ReadDuration)
}
