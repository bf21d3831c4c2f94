package di

import (
	"context"
	"fmt"
	"time"

	"EnergyPulse/internal/alert"
	"EnergyPulse/internal/domain/repository"
	"EnergyPulse/internal/domain/service"
	"EnergyPulse/internal/forecast"
	"EnergyPulse/internal/handler/api"
	"EnergyPulse/internal/handler/ws"
	"EnergyPulse/internal/indicator"
	"EnergyPulse/internal/notify"
	internalrepo "EnergyPulse/internal/repository"
	"EnergyPulse/internal/service/provider"
	"EnergyPulse/internal/summary"
	"EnergyPulse/internal/usecase"
	"EnergyPulse/pkg/cache"
	pkgch "EnergyPulse/pkg/clickhouse"
	"EnergyPulse/pkg/config"
	xhttp "EnergyPulse/pkg/http"
	pkgkafka "EnergyPulse/pkg/kafka"
	applogger "EnergyPulse/pkg/logger"
	"EnergyPulse/pkg/metrics"
	"EnergyPulse/pkg/queue"
	"EnergyPulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	logCfg := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if logCfg.Level == "" {
		logCfg.Level = "info"
	}
	if logCfg.Format == "" {
		logCfg.Format = "json"
	}
	if logCfg.Output == "" {
		logCfg.Output = "stdout"
	}
	return applogger.New(logCfg)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the configured cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
	case "layered":
		redis, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(redis), nil
	}
	return nil, fmt.Errorf("cache backend %q not supported", cfg.Cache.Backend)
}

// ProvideMarketDataProvider creates the configured provider stack.
func ProvideMarketDataProvider(cfg *config.Config, log *applogger.Logger) (repository.MarketDataProvider, error) {
	return provider.FromConfig(cfg, log)
}

// ProvideIndicatorEngine creates the indicator engine.
func ProvideIndicatorEngine(cfg *config.Config) service.IndicatorEngine {
	return indicator.New(indicator.WithBollingerK(cfg.Defaults.BollingerK))
}

// ProvideForecastEngine creates the forecast engine.
func ProvideForecastEngine() service.ForecastEngine {
	return forecast.New()
}

// ProvideAlertEvaluator creates the stateful alert evaluator.
func ProvideAlertEvaluator() service.AlertEvaluator {
	return alert.New()
}

// ProvideSummaryAnalyzer creates the summary analyzer.
func ProvideSummaryAnalyzer() service.SummaryAnalyzer {
	return summary.New()
}

// ProvideHub creates the dashboard WebSocket hub.
func ProvideHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideClickHouseClient creates the ClickHouse pool when the history
// backend needs one, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	switch cfg.History.Backend {
	case "clickhouse", "kafka", "redis":
	default:
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAlertStore creates the alert history store; nil without ClickHouse.
func ProvideAlertStore(chClient *pkgch.Client) (repository.AlertStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseAlertStore(chClient.DB())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka history
// backend, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.History.Backend != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for the kafka history
// backend, nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.History.Backend != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAlertQueue creates the Redis-backed history queue for the redis
// backend: the pipeline publishes fired events, queue workers drain them into
// the store.
func ProvideAlertQueue(cfg *config.Config, log *applogger.Logger, store repository.AlertStore) (*queue.RedisQueue, error) {
	if cfg.History.Backend != "redis" || store == nil {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})

	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}, client, queue.ModeProducerConsumer,
		queue.WithKeyPrefix("energypulse:alerts"))
	q.RegisterJob(usecase.NewAlertHistoryJob(store))
	if err := q.Start(); err != nil {
		return nil, fmt.Errorf("alert queue: %w", err)
	}
	q.StartRetryProcessor()
	return q, nil
}

// ProvideKafkaAlertsHandler creates the history consumer handler; nil unless
// both Kafka and a store are configured.
func ProvideKafkaAlertsHandler(cfg *config.Config, store repository.AlertStore, m repository.Metrics) pkgkafka.MessageHandler {
	if cfg.History.Backend != "kafka" || store == nil {
		return nil
	}
	return usecase.NewKafkaAlertsHandler(cfg.Kafka.Topic, store, m)
}

// ProvidePipeline assembles the market pipeline with every configured sink.
func ProvidePipeline(
	cfg *config.Config,
	log *applogger.Logger,
	prov repository.MarketDataProvider,
	ind service.IndicatorEngine,
	fc service.ForecastEngine,
	ev service.AlertEvaluator,
	sum service.SummaryAnalyzer,
	c cache.Service,
	m repository.Metrics,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	alertQueue *queue.RedisQueue,
	store repository.AlertStore,
) *usecase.MarketPipeline {
	sinks := []repository.AlertSink{
		notify.NewLogSink(log),
		ws.NewAlertSink(hub),
	}
	opts := []usecase.PipelineOption{
		usecase.WithCache(c, cfg.Cache.TTL),
		usecase.WithAlertRules(cfg.AlertRules()),
		usecase.WithMetrics(m),
		usecase.WithLookback(time.Duration(cfg.Defaults.LookbackDays) * 24 * time.Hour),
		usecase.WithBroadcaster(hub),
	}

	switch cfg.History.Backend {
	case "kafka":
		// Events travel through Kafka; the consumer lands them in the store.
		if producer != nil {
			sinks = append(sinks, notify.NewKafkaSink(producer, cfg.Kafka.Topic))
		}
		if store != nil {
			opts = append(opts, usecase.WithAlertHistoryReader(store))
		}
	case "redis":
		// Events travel through the Redis job queue instead of a broker.
		if alertQueue != nil {
			sinks = append(sinks, notify.NewQueueSink(alertQueue))
		}
		if store != nil {
			opts = append(opts, usecase.WithAlertHistoryReader(store))
		}
	case "clickhouse":
		// Direct writes, no broker in between.
		if store != nil {
			opts = append(opts, usecase.WithAlertStore(store))
		}
	}

	opts = append(opts, usecase.WithAlertSinks(sinks...))
	return usecase.NewMarketPipeline(prov, ind, fc, ev, sum, log, opts...)
}

// ProvideRefresher creates the background refresh loop.
func ProvideRefresher(cfg *config.Config, pipeline *usecase.MarketPipeline, log *applogger.Logger) *usecase.Refresher {
	return usecase.NewRefresher(pipeline, cfg.Instruments, cfg.RefreshInterval, log)
}

// ProvideMarketHandler creates the HTTP handler.
func ProvideMarketHandler(log *applogger.Logger, pipeline *usecase.MarketPipeline) xhttp.Handler {
	return api.NewMarketHandler(log, pipeline)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	m repository.Metrics,
	handler xhttp.Handler,
	hub *ws.Hub,
	refresher *usecase.Refresher,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	alertQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(usecase.NewConsumerTimingHook(m)))
	}
	return server.New(cfg, log, handler, hub, refresher, consumer, kh, alertQueue, chClient)
}
