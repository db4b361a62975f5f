// Package config parses command line flags, with defaults taken from the
// environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/blesswinsamuel/dht_exporter/poll"
	"github.com/blesswinsamuel/dht_exporter/store"
)

const DefaultSensors = "sensor1=GPIO23,sensor2=GPIO22"

// Sensor is one configured slot: the store key and the GPIO pin name.
type Sensor struct {
	Key   string
	Label string
	Pin   string
}

type Config struct {
	Sensors    []Sensor
	SensorType string
	Interval   time.Duration
	RetryDelay time.Duration

	Stores []string
	Redis  store.RedisOptions
	MQTT   store.MQTTOptions

	Listen      string
	MetricsPath string
	LogLevel    string
}

// LoadEnv reads files (default ".env") into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Parse parses args (without the program name). getenv supplies flag
// defaults; pass os.Getenv in production.
func Parse(name string, args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var (
		sensors = fs.String("sensors",
			envString(getenv, "DHT_SENSORS", DefaultSensors),
			"comma separated key=pin list, e.g. sensor1=GPIO23,sensor2=GPIO22")
		sensorType = fs.String("sensor_type",
			envString(getenv, "DHT_SENSOR_TYPE", "dht22"),
			"dht22 (AM2302) or dht11")
		stores = fs.String("store",
			envString(getenv, "DHT_STORE", "redis"),
			"where to publish samples: redis, mqtt, redis,mqtt or none")
		redisAddr = fs.String("redis_addr",
			envString(getenv, "REDIS_ADDR", store.DefaultRedisAddr),
			"redis address")
		redisPassword = fs.String("redis_password",
			envString(getenv, "REDIS_PASSWORD", ""),
			"redis password")
		mqttBroker = fs.String("mqtt_broker",
			envString(getenv, "MQTT_BROKER", store.DefaultMQTTBroker),
			"MQTT broker URL")
		mqttClientID = fs.String("mqtt_client_id",
			envString(getenv, "MQTT_CLIENT_ID", "dht-exporter"),
			"MQTT client id")
		mqttPrefix = fs.String("mqtt_topic_prefix",
			envString(getenv, "MQTT_TOPIC_PREFIX", store.DefaultMQTTPrefix),
			"MQTT topic prefix, samples go to <prefix>/<key>")
		listen = fs.String("listen",
			envString(getenv, "DHT_LISTEN", "localhost:9101"),
			"listen address for metrics, empty to disable")
		metricsPath = fs.String("metrics_path",
			"/metrics",
			"path under which metrics are served")
		logLevel = fs.String("log.level",
			envString(getenv, "LOG_LEVEL", "info"),
			"log level: debug, info, warn, error, fatal")
	)

	interval, err := envDuration(getenv, "DHT_INTERVAL", poll.DefaultInterval)
	if err != nil {
		return nil, err
	}
	retryDelay, err := envDuration(getenv, "DHT_RETRY_DELAY", poll.DefaultRetryDelay)
	if err != nil {
		return nil, err
	}
	redisDB, err := envInt(getenv, "REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	fs.DurationVar(&cfg.Interval, "interval", interval, "pause between polls of all sensors")
	fs.DurationVar(&cfg.RetryDelay, "retry_delay", retryDelay, "pause after a failed sensor read")
	fs.IntVar(&cfg.Redis.DB, "redis_db", redisDB, "redis database")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Sensors, err = ParseSensors(*sensors); err != nil {
		return nil, err
	}
	if cfg.Stores, err = store.ParseKinds(*stores); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry_delay must be positive, got %s", cfg.RetryDelay)
	}

	cfg.SensorType = strings.ToLower(*sensorType)
	cfg.Redis.Addr = *redisAddr
	cfg.Redis.Password = *redisPassword
	cfg.MQTT = store.MQTTOptions{
		Broker:      *mqttBroker,
		ClientID:    *mqttClientID,
		TopicPrefix: *mqttPrefix,
	}
	cfg.Listen = *listen
	cfg.MetricsPath = *metricsPath
	cfg.LogLevel = strings.ToLower(*logLevel)
	return cfg, nil
}

// ParseSensors parses "sensor1=GPIO23,sensor2=GPIO22". The console label is
// the key with its first letter upper-cased.
func ParseSensors(s string) ([]Sensor, error) {
	var sensors []Sensor
	seenKey := map[string]bool{}
	seenPin := map[string]bool{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid sensor %q, want key=pin", entry)
		}
		key, pin := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if key == "" || pin == "" {
			return nil, fmt.Errorf("invalid sensor %q, want key=pin", entry)
		}
		if seenKey[key] {
			return nil, fmt.Errorf("duplicate sensor key %q", key)
		}
		if seenPin[pin] {
			return nil, fmt.Errorf("pin %s used by more than one sensor", pin)
		}
		seenKey[key], seenPin[pin] = true, true
		sensors = append(sensors, Sensor{Key: key, Label: label(key), Pin: pin})
	}
	if len(sensors) == 0 {
		return nil, errors.New("no sensors configured")
	}
	return sensors, nil
}

func label(key string) string {
	return strings.ToUpper(key[:1]) + key[1:]
}

func envString(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}
