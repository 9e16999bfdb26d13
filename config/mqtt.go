package config

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// NewMQTT connects with auto-reconnect enabled. Per-user location
// subscriptions are restored by the client after a reconnect.
func NewMQTT(cfg *Config) (mqtt.Client, error) {
	client := mqtt.NewClient(mqttOptions(cfg))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

// mqttOptions keeps a persistent broker session so subscriptions survive a
// reconnect. After a process restart the broker may still hold subscriptions
// from the previous run; their deliveries have no handler and land in the
// default handler, which logs and drops them.
func mqttOptions(cfg *Config) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetResumeSubs(true).
		SetConnectTimeout(10 * time.Second).
		SetDefaultPublishHandler(orphanedMessage).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.Info().Str("broker", cfg.MQTTBroker).Msg("mqtt connected")
		})
}

func orphanedMessage(_ mqtt.Client, msg mqtt.Message) {
	log.Debug().Str("topic", msg.Topic()).Msg("mqtt message without active subscription dropped")
}
