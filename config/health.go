package config

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type amqpConn interface {
	IsClosed() bool
}

type mqttConn interface {
	IsConnected() bool
}

type HealthChecker struct {
	db    pinger
	amqp  amqpConn
	mqtt  mqttConn
	redis *redis.Client
}

func NewHealthChecker(db *sql.DB, conn *amqp.Connection, mqttClient mqtt.Client, rdb *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, amqp: conn, mqtt: mqttClient, redis: rdb}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	mark := func(name string, err string) {
		if err == "" {
			deps[name] = gin.H{"status": "up"}
			return
		}
		deps[name] = gin.H{"status": "down", "error": err}
		status = http.StatusServiceUnavailable
	}

	if err := h.db.PingContext(ctx); err != nil {
		mark("postgres", err.Error())
	} else {
		mark("postgres", "")
	}

	if h.amqp.IsClosed() {
		mark("rabbitmq", "connection closed")
	} else {
		mark("rabbitmq", "")
	}

	if !h.mqtt.IsConnected() {
		mark("mqtt", "not connected")
	} else {
		mark("mqtt", "")
	}

	// redis is optional
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			mark("redis", err.Error())
		} else {
			mark("redis", "")
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
