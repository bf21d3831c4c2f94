package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"EnergyPulse/internal/handler/ws"
	"EnergyPulse/internal/usecase"
	pkgch "EnergyPulse/pkg/clickhouse"
	"EnergyPulse/pkg/config"
	xhttp "EnergyPulse/pkg/http"
	pkgkafka "EnergyPulse/pkg/kafka"
	applogger "EnergyPulse/pkg/logger"
	"EnergyPulse/pkg/queue"
)

// App encapsulates the application lifecycle: HTTP server, background
// refresher, WebSocket hub and optional Kafka/ClickHouse history pipeline.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	refresher *usecase.Refresher
	hub       *ws.Hub

	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	alertQueue *queue.RedisQueue
	chClient   *pkgch.Client

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates the App. consumer, kh, alertQueue and chClient are nil unless
// the history pipeline is configured.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	hub *ws.Hub,
	refresher *usecase.Refresher,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	alertQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      log,
		httpHandler: handler,
		hub:         hub,
		refresher:   refresher,
		consumer:    consumer,
		kh:          kh,
		alertQueue:  alertQueue,
		chClient:    chClient,
	}
}

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(&compositeHandler{parts: []xhttp.Handler{a.httpHandler, a.hub}},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.refresher != nil {
		a.refresher.Start(ctx)
		a.logger.Info("refresher started",
			applogger.Strings("instruments", a.cfg.Instruments),
			applogger.Duration("interval", a.cfg.RefreshInterval))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	if a.refresher != nil {
		a.refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		_ = a.hub.Close()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("alert queue stop error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

// compositeHandler registers several route groups on one Echo instance.
type compositeHandler struct {
	parts []xhttp.Handler
}

func (h *compositeHandler) RegisterRoutes(e *echo.Echo) {
	for _, p := range h.parts {
		if p != nil {
			p.RegisterRoutes(e)
		}
	}
}
