package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/service"
)

const (
	locationTopic = "/collector/%s/location"
	configTopic   = "/collector/%s/config"
	qos           = 1
)

var _ service.LocationProvider = (*MQTTProvider)(nil)

// locationMessage is what the collector device publishes. A non-empty Error
// reports a provider failure instead of a sample.
type locationMessage struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Error     string   `json:"error,omitempty"`
}

// optionsMessage is published retained so the device picks up the sampling
// configuration whenever it reconnects.
type optionsMessage struct {
	HighAccuracy      bool    `json:"enableHighAccuracy"`
	IntervalMs        int64   `json:"interval"`
	DistanceFilterM   float64 `json:"distanceFilter"`
	MaximumAgeMs      int64   `json:"maximumAge"`
	TimeoutMs         int64   `json:"timeout"`
	PublishedUnixSecs int64   `json:"published_at"`
}

// MQTTProvider is the background provider: the collector device streams
// raw GPS samples over MQTT.
type MQTTProvider struct {
	client      mqtt.Client
	waitTimeout time.Duration
}

func NewMQTTProvider(client mqtt.Client) *MQTTProvider {
	return &MQTTProvider{client: client, waitTimeout: 10 * time.Second}
}

func (p *MQTTProvider) Watch(_ context.Context, userID string, opts service.ProviderOptions, onSample func(domain.RawSample), onError func(error)) (func(), error) {
	if err := p.publishOptions(userID, opts); err != nil {
		return nil, err
	}

	topic := fmt.Sprintf(locationTopic, userID)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		handleMessage(msg, onSample, onError)
	}
	if err := p.wait(p.client.Subscribe(topic, qos, handler)); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return func() {
		if err := p.wait(p.client.Unsubscribe(topic)); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("mqtt unsubscribe failed")
		}
	}, nil
}

func (p *MQTTProvider) publishOptions(userID string, opts service.ProviderOptions) error {
	payload, err := json.Marshal(optionsMessage{
		HighAccuracy:      opts.HighAccuracy,
		IntervalMs:        opts.MinInterval.Milliseconds(),
		DistanceFilterM:   opts.MinDistanceMeters,
		MaximumAgeMs:      opts.MaxAge.Milliseconds(),
		TimeoutMs:         opts.Timeout.Milliseconds(),
		PublishedUnixSecs: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	topic := fmt.Sprintf(configTopic, userID)
	if err := p.wait(p.client.Publish(topic, qos, true, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTProvider) wait(token mqtt.Token) error {
	if !token.WaitTimeout(p.waitTimeout) {
		return errors.New("mqtt: timed out")
	}
	return token.Error()
}

func handleMessage(msg mqtt.Message, onSample func(domain.RawSample), onError func(error)) {
	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("invalid location message")
		return
	}

	if raw.Error != "" {
		onError(errors.New(raw.Error))
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("location validation error")
		return
	}

	onSample(domain.RawSample{
		Lat:       *raw.Latitude,
		Lon:       *raw.Longitude,
		Accuracy:  raw.Accuracy,
		Timestamp: time.UnixMilli(raw.Timestamp),
	})
}

func validateLocationMessage(msg *locationMessage) error {
	if msg.Latitude == nil {
		return fmt.Errorf("latitude: required")
	}
	if msg.Longitude == nil {
		return fmt.Errorf("longitude: required")
	}
	if *msg.Latitude < -90 || *msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if *msg.Longitude < -180 || *msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Accuracy != nil && *msg.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
