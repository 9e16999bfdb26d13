package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/service"
)

type fakeMQTTMessage struct {
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 0 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return "/collector/u1/location" }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient embeds mqtt.Client so only the methods the provider uses need
// implementing.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	retained     map[string][]byte
	unsubscribed []string
	subscribeErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}, retained: map[string][]byte{}}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return &fakeToken{err: c.subscribeErr}
	}
	c.handlers[topic] = cb
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.handlers, t)
		c.unsubscribed = append(c.unsubscribed, t)
	}
	return &fakeToken{}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if retained {
		c.retained[topic] = payload.([]byte)
	}
	return &fakeToken{}
}

func (c *fakeClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	h := c.handlers[topic]
	c.mu.Unlock()
	if h != nil {
		h(c, &fakeMQTTMessage{payload: payload})
	}
}

func accuracy(v float64) *float64 { return &v }

func coord(v float64) *float64 { return &v }

func TestHandleMessage_Success(t *testing.T) {
	var got *domain.RawSample
	msg := locationMessage{
		Latitude:  coord(-6.2088),
		Longitude: coord(106.8456),
		Accuracy:  accuracy(8),
		Timestamp: 1715003456000,
	}
	payload, _ := json.Marshal(msg)

	handleMessage(&fakeMQTTMessage{payload: payload},
		func(s domain.RawSample) { got = &s },
		func(error) { t.Fatal("onError should not be called") },
	)

	if got == nil {
		t.Fatal("expected sample")
	}
	if got.Lat != -6.2088 || got.Lon != 106.8456 {
		t.Errorf("unexpected coordinates %+v", got)
	}
	if got.Accuracy == nil || *got.Accuracy != 8 {
		t.Errorf("expected accuracy 8, got %v", got.Accuracy)
	}
	if !got.Timestamp.Equal(time.UnixMilli(1715003456000)) {
		t.Errorf("unexpected timestamp %v", got.Timestamp)
	}
}

func TestHandleMessage_MissingAccuracyPassedThrough(t *testing.T) {
	var got *domain.RawSample
	payload := []byte(`{"latitude":-6.2,"longitude":106.8,"timestamp":1715003456000}`)

	handleMessage(&fakeMQTTMessage{payload: payload}, func(s domain.RawSample) { got = &s }, func(error) {})

	if got == nil {
		t.Fatal("expected sample")
	}
	if got.Accuracy != nil {
		t.Errorf("expected nil accuracy, got %v", *got.Accuracy)
	}
}

func TestHandleMessage_MissingCoordinatesDropped(t *testing.T) {
	payloads := []string{
		`{"accuracy":5,"timestamp":1715003456000}`,
		`{"latitude":-6.2,"accuracy":5,"timestamp":1715003456000}`,
		`{"longitude":106.8,"accuracy":5,"timestamp":1715003456000}`,
	}
	for _, payload := range payloads {
		handleMessage(&fakeMQTTMessage{payload: []byte(payload)},
			func(s domain.RawSample) { t.Fatalf("unexpected sample %+v from %s", s, payload) },
			func(error) { t.Fatal("onError should not be called") },
		)
	}
}

func TestHandleMessage_ProviderError(t *testing.T) {
	var gotErr error
	payload := []byte(`{"error":"location permission revoked"}`)

	handleMessage(&fakeMQTTMessage{payload: payload},
		func(domain.RawSample) { t.Fatal("onSample should not be called") },
		func(err error) { gotErr = err },
	)

	if gotErr == nil || gotErr.Error() != "location permission revoked" {
		t.Errorf("unexpected error %v", gotErr)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	handleMessage(&fakeMQTTMessage{payload: []byte("invalid")},
		func(domain.RawSample) { t.Fatal("onSample should not be called") },
		func(error) { t.Fatal("onError should not be called") },
	)
}

func TestValidateLocationMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     locationMessage
		wantErr bool
	}{
		{"valid", locationMessage{Latitude: coord(0), Longitude: coord(0), Timestamp: 1}, false},
		{"valid with accuracy", locationMessage{Latitude: coord(0), Longitude: coord(0), Accuracy: accuracy(3), Timestamp: 1}, false},
		{"lat too low", locationMessage{Latitude: coord(-91), Longitude: coord(0), Timestamp: 1}, true},
		{"lat too high", locationMessage{Latitude: coord(91), Longitude: coord(0), Timestamp: 1}, true},
		{"lon too low", locationMessage{Latitude: coord(0), Longitude: coord(-181), Timestamp: 1}, true},
		{"lon too high", locationMessage{Latitude: coord(0), Longitude: coord(181), Timestamp: 1}, true},
		{"negative accuracy", locationMessage{Latitude: coord(0), Longitude: coord(0), Accuracy: accuracy(-1), Timestamp: 1}, true},
		{"missing latitude", locationMessage{Longitude: coord(0), Timestamp: 1}, true},
		{"missing longitude", locationMessage{Latitude: coord(0), Timestamp: 1}, true},
		{"zero timestamp", locationMessage{Latitude: coord(0), Longitude: coord(0), Timestamp: 0}, true},
		{"negative timestamp", locationMessage{Latitude: coord(0), Longitude: coord(0), Timestamp: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLocationMessage(&tt.msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLocationMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWatch_SubscribesAndUnsubscribes(t *testing.T) {
	client := newFakeClient()
	p := NewMQTTProvider(client)
	opts := service.ProviderOptions{HighAccuracy: false, MinInterval: 5 * time.Second, MinDistanceMeters: 10}

	var samples []domain.RawSample
	stop, err := p.Watch(context.Background(), "u1", opts, func(s domain.RawSample) { samples = append(samples, s) }, func(error) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, ok := client.retained["/collector/u1/config"]
	if !ok {
		t.Fatal("expected retained options")
	}
	var published optionsMessage
	if err := json.Unmarshal(raw, &published); err != nil {
		t.Fatalf("invalid options payload: %v", err)
	}
	if published.IntervalMs != 5000 || published.DistanceFilterM != 10 || published.HighAccuracy {
		t.Errorf("unexpected options %+v", published)
	}

	client.deliver("/collector/u1/location", []byte(`{"latitude":1,"longitude":2,"accuracy":4,"timestamp":1715003456000}`))
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}

	stop()
	if len(client.unsubscribed) != 1 || client.unsubscribed[0] != "/collector/u1/location" {
		t.Errorf("expected unsubscribe, got %v", client.unsubscribed)
	}
	client.deliver("/collector/u1/location", []byte(`{"latitude":1,"longitude":2,"accuracy":4,"timestamp":1715003457000}`))
	if len(samples) != 1 {
		t.Error("expected no samples after stop")
	}
}

func TestWatch_SubscribeError(t *testing.T) {
	client := newFakeClient()
	client.subscribeErr = errors.New("not connected")
	p := NewMQTTProvider(client)

	_, err := p.Watch(context.Background(), "u1", service.ProviderOptions{}, func(domain.RawSample) {}, func(error) {})
	if err == nil {
		t.Fatal("expected error")
	}
}
