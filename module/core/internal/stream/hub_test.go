package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("u1")
	defer hub.Unregister(client)
	other := hub.Register("u2")
	defer hub.Unregister(other)

	if err := hub.Broadcast(context.Background(), "u1", []byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message %s", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}

	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected delivery to other user: %s", msg)
	default:
	}
}

func TestHubPublishEncodesPayload(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("u1")
	defer hub.Unregister(client)

	if err := hub.Publish(context.Background(), domain.NewFixEvent("u1", domain.Point{Lat: -6.2, Lng: 106.8})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := <-client.Send
	var got domain.StatusMessage
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if got.Status != domain.StatusSuccess || got.Data == nil || got.Data.Lat != -6.2 {
		t.Errorf("unexpected message %+v", got)
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "collector:abc:events" {
		t.Fatalf("unexpected channel %s", ch)
	}
	if userIDFromChannel(ch) != "abc" {
		t.Fatal("unexpected user id")
	}
	if userIDFromChannel("bad") != "" {
		t.Fatal("expected empty user id")
	}
	if userIDFromChannel("tracking:abc:broadcast") != "" {
		t.Fatal("expected empty user id for foreign channel")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("u1")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatal("expected channel closed")
	}
	if hub.Watchers("u1") != 0 {
		t.Error("expected no watchers")
	}

	// second unregister is a no-op
	hub.Unregister(client)
}

func TestHubRedisRoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	client := hub.Register("u1")
	defer hub.Unregister(client)

	// wait for the pattern subscription to be active
	deadline := time.Now().Add(time.Second)
	for s.PubSubNumPat() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for psubscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.Broadcast(context.Background(), "u1", []byte("ping")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-client.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for redis message")
	}

	select {
	case msg := <-client.Send:
		t.Fatalf("expected single delivery, got extra %s", msg)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected run error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer rdb.Close()

	hub := NewHub(rdb)
	if err := hub.Broadcast(context.Background(), "u1", []byte("ping")); err == nil {
		t.Fatal("expected error")
	}
}
