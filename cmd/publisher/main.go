package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type locationMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

const metersPerDegree = 111320.0

// walker is a collector moving along a random heading that drifts a little
// on every step.
type walker struct {
	lat, lon float64
	heading  float64
}

func (w *walker) step(meters float64) {
	w.heading += (rand.Float64() - 0.5) * math.Pi / 4
	w.lat += meters * math.Cos(w.heading) / metersPerDegree
	w.lon += meters * math.Sin(w.heading) / (metersPerDegree * math.Cos(w.lat*math.Pi/180))
}

// sample returns the next reading. Most are accurate; some are far-off
// jitter or carry a poor accuracy estimate, which the tracker should drop.
func (w *walker) sample() locationMessage {
	w.step(3 + rand.Float64()*7)

	lat, lon := w.lat, w.lon
	accuracy := 3 + rand.Float64()*7

	switch r := rand.Float64(); {
	case r < 0.1:
		// jitter jump that does not move the walker
		lat += (40 + rand.Float64()*40) / metersPerDegree
	case r < 0.2:
		accuracy = 30 + rand.Float64()*50
	}

	return locationMessage{
		Latitude:  lat,
		Longitude: lon,
		Accuracy:  &accuracy,
		Timestamp: time.Now().UnixMilli(),
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> <user_id>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}
	userID := os.Args[2]

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("collector-mock-" + userID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	configTopic := fmt.Sprintf("/collector/%s/config", userID)
	client.Subscribe(configTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		log.Info().RawJSON("options", msg.Payload()).Msg("provider options received")
	}).Wait()

	topic := fmt.Sprintf("/collector/%s/location", userID)
	w := &walker{lat: -6.2088, lon: 106.8456, heading: rand.Float64() * 2 * math.Pi}

	log.Info().Str("broker", broker).Str("topic", topic).Int("interval_s", intervalSec).Msg("publishing")

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			payload, _ := json.Marshal(w.sample())
			token := client.Publish(topic, 1, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Warn().Err(err).Msg("publish failed")
				continue
			}
			log.Info().Str("topic", topic).RawJSON("payload", payload).Msg("published")
		}
	}
}
