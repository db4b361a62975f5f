package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultMQTTBroker = "tcp://localhost:1883"
	DefaultMQTTPrefix = "dht"
)

// MQTTOptions selects the broker and topic layout.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each record as a retained QoS 1 message on
// <prefix>/<key>, so the broker only keeps the latest value.
type MQTT struct {
	client  mqttClient
	prefix  string
	timeout time.Duration
}

// NewMQTT connects to the broker.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Broker == "" {
		opts.Broker = DefaultMQTTBroker
	}
	if opts.ClientID == "" {
		opts.ClientID = "dht-exporter"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout)

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt %s: %w", opts.Broker, token.Error())
	}
	log.Infof("connected to MQTT broker at %s", opts.Broker)
	return newMQTT(client, opts.TopicPrefix, opts.Timeout), nil
}

func newMQTT(client mqttClient, prefix string, timeout time.Duration) *MQTT {
	if prefix == "" {
		prefix = DefaultMQTTPrefix
	}
	return &MQTT{client: client, prefix: strings.TrimSuffix(prefix, "/"), timeout: timeout}
}

// Topic returns the topic a key is published on.
func (m *MQTT) Topic(key string) string {
	return m.prefix + "/" + key
}

func (m *MQTT) Publish(ctx context.Context, key string, payload []byte) error {
	topic := m.Topic(key)
	token := m.client.Publish(topic, 1, true, payload)

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("mqtt publish %s: timed out after %s", topic, m.timeout)
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	log.Debugf("published %s", topic)
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
