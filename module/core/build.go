package core

import (
	"context"
	"database/sql"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/config"
	"github.com/nandanugg/collector-tracker/module/core/domain"
	handler "github.com/nandanugg/collector-tracker/module/core/internal/handler/http"
	"github.com/nandanugg/collector-tracker/module/core/internal/handler/subscriber"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/collector-tracker/module/core/internal/stream"
	"github.com/nandanugg/collector-tracker/module/core/service"
)

type Module struct {
	Manager    *service.Manager
	HistorySvc *service.HistoryService

	writer   *service.SnapshotWriter
	hub      *stream.Hub
	handlers []interface{ Register(*gin.RouterGroup) }
}

// Build wires the tracking module. rdb may be nil, in which case live events
// are delivered in-process only.
func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, rdb *redis.Client, cfg config.Tracking) (*Module, error) {
	documentRepo := postgres.NewDocumentRepo(db)

	flushPub, err := rabbitmq.NewFlushPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("flush publisher: %w", err)
	}
	hub := stream.NewHub(rdb)

	writer := service.NewSnapshotWriter(service.NewDocumentSink(documentRepo), service.WriterOptions{
		QueueSize: cfg.WriteQueueSize,
		Retries:   cfg.WriteRetries,
		Timeout:   cfg.WriteTimeout,
	})

	push := service.NewPushProvider()
	drivers := map[domain.Mode]service.Driver{
		domain.ModeForeground: {
			Provider: push,
			Options: service.ProviderOptions{
				HighAccuracy:      true,
				MinInterval:       cfg.ForegroundInterval,
				MinDistanceMeters: cfg.ForegroundMinDistanceMeters,
				Timeout:           cfg.ForegroundTimeout,
			},
			LiveFixes: true,
		},
		domain.ModeBackground: {
			Provider: subscriber.NewMQTTProvider(mqttClient),
			Options: service.ProviderOptions{
				HighAccuracy:      true,
				MinInterval:       cfg.BackgroundInterval,
				MinDistanceMeters: cfg.BackgroundMinDistanceMeters,
				Timeout:           cfg.BackgroundTimeout,
			},
		},
	}

	manager := service.NewManager(service.SessionConfig{
		Tolerance: service.Tolerance{
			BaseMeters:      cfg.BaseToleranceMeters,
			IncrementMeters: cfg.ToleranceIncrementMeters,
		},
		MaxAccuracyMeters: cfg.AccuracyRejectMeters,
		StorageRoot:       cfg.StorageRoot,
		Location:          cfg.Location,
		FlushOnStop:       cfg.FlushOnStop,
	}, drivers, writer, hub, flushPub)

	historySvc := service.NewHistoryService(documentRepo, cfg.StorageRoot)

	return &Module{
		Manager:    manager,
		HistorySvc: historySvc,
		writer:     writer,
		hub:        hub,
		handlers: []interface{ Register(*gin.RouterGroup) }{
			handler.NewSessionHandler(manager, push),
			handler.NewHistoryHandler(historySvc, cfg.Location),
			handler.NewStreamHandler(hub),
		},
	}, nil
}

// Migrate applies the document store schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	return postgres.Migrate(ctx, db)
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	for _, h := range m.handlers {
		h.Register(r)
	}
}

// Start runs the snapshot writer and the live event relay until ctx is done.
func (m *Module) Start(ctx context.Context) {
	go m.writer.Run()
	go func() {
		if err := m.hub.Run(ctx); err != nil {
			log.Error().Err(err).Msg("stream relay stopped")
		}
	}()
}

// Shutdown stops every session and drains pending snapshot writes.
func (m *Module) Shutdown(ctx context.Context) error {
	m.Manager.StopAll()
	return m.writer.Close(ctx)
}
