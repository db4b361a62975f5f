package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/blesswinsamuel/dht_exporter/poll"
)

func TestRedisPublishReplacesValue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(err)
	defer r.Close()

	first, err := poll.NewSample(22.0, 55, time.Unix(1700000000, 0)).Record().Marshal()
	require.NoError(err)
	require.NoError(r.Publish(ctx, "sensor1", first))

	got, err := mr.Get("sensor1")
	require.NoError(err)
	require.JSONEq(`{"temperature_c":22.0,"temperature_f":71.6,"humidity":55,"timestamp":1700000000}`, got)

	second, err := poll.NewSample(23.1, 50.5, time.Unix(1700000004, 0)).Record().Marshal()
	require.NoError(err)
	require.NoError(r.Publish(ctx, "sensor1", second))

	got, err = mr.Get("sensor1")
	require.NoError(err)
	require.Equal(string(second), got)
	require.Equal([]string{"sensor1"}, mr.Keys())
	require.Zero(mr.TTL("sensor1"))

	rec, err := r.Latest(ctx, "sensor1")
	require.NoError(err)
	require.Equal(23.1, rec.TemperatureC.Float())
	require.Equal(50.5, rec.Humidity)
	require.Equal(time.Unix(1700000004, 0), rec.Time())
}

func TestRedisLatestMissingKey(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(err)
	defer r.Close()

	_, err = r.Latest(ctx, "sensor2")
	require.Error(err)
	require.Contains(err.Error(), "sensor2")
}

func TestRedisUnreachable(t *testing.T) {
	require := require.New(t)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, RedisOptions{Addr: addr})
	require.Error(err)
	require.Contains(err.Error(), addr)
}

func TestRedisPublishAfterServerGone(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(err)
	defer r.Close()

	mr.Close()
	err = r.Publish(ctx, "sensor1", []byte(`{}`))
	require.Error(err)
	require.Contains(err.Error(), "redis set sensor1")
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.Wait() }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	published    []published
	err          error
	pending      bool
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if f.pending {
		return &fakeToken{done: make(chan struct{})}
	}
	return newFakeToken(f.err)
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

func TestMQTTPublishRetained(t *testing.T) {
	require := require.New(t)

	c := &fakeMQTT{}
	m := newMQTT(c, "home/dht/", time.Second)
	require.NoError(m.Publish(context.Background(), "sensor2", []byte(`{"humidity":40}`)))

	require.Len(c.published, 1)
	require.Equal("home/dht/sensor2", c.published[0].topic)
	require.Equal(byte(1), c.published[0].qos)
	require.True(c.published[0].retained)
	require.Equal(`{"humidity":40}`, string(c.published[0].payload))

	require.NoError(m.Close())
	require.True(c.disconnected)
}

func TestMQTTDefaultPrefix(t *testing.T) {
	m := newMQTT(&fakeMQTT{}, "", time.Second)
	require.Equal(t, "dht/sensor1", m.Topic("sensor1"))
}

func TestMQTTPublishErrors(t *testing.T) {
	require := require.New(t)

	m := newMQTT(&fakeMQTT{err: errors.New("not connected")}, "dht", time.Second)
	err := m.Publish(context.Background(), "sensor1", []byte(`{}`))
	require.Error(err)
	require.Contains(err.Error(), "dht/sensor1")

	m = newMQTT(&fakeMQTT{pending: true}, "dht", 10*time.Millisecond)
	err = m.Publish(context.Background(), "sensor1", []byte(`{}`))
	require.Error(err)
	require.Contains(err.Error(), "timed out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m = newMQTT(&fakeMQTT{pending: true}, "dht", time.Minute)
	err = m.Publish(ctx, "sensor1", []byte(`{}`))
	require.ErrorIs(err, context.Canceled)
}

type recordingStore struct {
	name   string
	calls  *[]string
	err    error
	closed bool
}

func (r *recordingStore) Publish(_ context.Context, key string, _ []byte) error {
	*r.calls = append(*r.calls, r.name+":"+key)
	return r.err
}

func (r *recordingStore) Close() error {
	r.closed = true
	return r.err
}

func TestFanout(t *testing.T) {
	require := require.New(t)

	var calls []string
	boom := errors.New("boom")
	a := &recordingStore{name: "a", calls: &calls}
	b := &recordingStore{name: "b", calls: &calls, err: boom}
	c := &recordingStore{name: "c", calls: &calls}
	f := Fanout{a, b, c}

	require.ErrorIs(f.Publish(context.Background(), "sensor1", nil), boom)
	require.Equal([]string{"a:sensor1", "b:sensor1"}, calls)

	require.ErrorIs(f.Close(), boom)
	require.True(a.closed)
	require.True(b.closed)
	require.True(c.closed)
}

func TestParseKinds(t *testing.T) {
	require := require.New(t)

	kinds, err := ParseKinds("redis")
	require.NoError(err)
	require.Equal([]string{"redis"}, kinds)

	kinds, err = ParseKinds(" Redis , mqtt,redis")
	require.NoError(err)
	require.Equal([]string{"redis", "mqtt"}, kinds)

	kinds, err = ParseKinds("none")
	require.NoError(err)
	require.Empty(kinds)

	_, err = ParseKinds("kafka")
	require.Error(err)
}
