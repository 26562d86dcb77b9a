package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"alert-notification-service/internal/alerting"
	"alert-notification-service/internal/api"
	"alert-notification-service/internal/config"
	"alert-notification-service/internal/db"
	"alert-notification-service/internal/events"
	"alert-notification-service/internal/idempotency"
	"alert-notification-service/internal/kafka"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/marketdata"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/notification"
	"alert-notification-service/internal/providers"
	"alert-notification-service/internal/utils"
	"alert-notification-service/pkg/email"
	"alert-notification-service/pkg/sms"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	notifyLoc, err := time.LoadLocation(cfg.Notification.Timezone)
	if err != nil {
		log.Fatalf("Invalid NOTIFICATION_TIMEZONE %q: %v", cfg.Notification.Timezone, err)
	}
	marketLoc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		log.Fatalf("Invalid MARKET_TIMEZONE %q: %v", cfg.Market.Timezone, err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()
	if err := dbConn.EnsureSchema(ctx); err != nil {
		log.Fatalf("Database schema failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis not reachable at startup, ingestion will report unavailable: %v", err)
	}

	m := metrics.New()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		DeadLetterTopic:  cfg.Kafka.DeadLetterTopic,
		AutoCreateTopics: cfg.Kafka.AutoCreateTopics,
	}, logger)
	if err != nil {
		log.Fatalf("Kafka producer failed: %v", err)
	}
	defer producer.Close()

	ingestor := events.NewIngestor(idempotency.NewGuard(rdb), producer, logger, m)

	// Alert evaluation
	engine := alerting.NewEngine(dbConn, logger, m)
	alerts := alerting.NewService(dbConn, logger)

	// Dispatch
	sockets := providers.NewWebSocketManager(logger)
	dispatcher := notification.NewDispatcher(dbConn, channelProviders(ctx, cfg, dbConn, sockets, logger, m), notifyLoc, logger)

	var wg sync.WaitGroup
	marketConsumer := startConsumer(ctx, &wg, cfg, "alert-evaluator", cfg.Kafka.MarketGroupID,
		models.MarketEventTypes(), alerting.NewMarketHandler(engine, ingestor, logger), kafka.AlwaysAck, producer, logger, m)
	defer marketConsumer.Close()
	dispatchConsumer := startConsumer(ctx, &wg, cfg, "dispatcher", cfg.Kafka.DispatchGroupID,
		models.DispatchEventTypes(), notification.NewAlertHandler(dispatcher), notification.DispatchPolicy, producer, logger, m)
	defer dispatchConsumer.Close()

	// Market data refresh
	backoff := utils.Backoff{MaxAttempts: cfg.Market.RetryAttempts, BaseDelay: cfg.Market.RetryBaseDelay, MaxDelay: 30 * time.Second}
	primary := marketdata.NewHTTPProvider("primary", cfg.Market.ProviderURL, cfg.Market.HTTPTimeout)
	var secondary marketdata.QuoteProvider
	if cfg.Market.FallbackProviderURL != "" {
		secondary = marketdata.NewHTTPProvider("secondary", cfg.Market.FallbackProviderURL, cfg.Market.HTTPTimeout)
	}
	refresh := marketdata.NewService(dbConn, primary, secondary, primary, ingestor, marketdata.Options{
		Retry:      backoff,
		ChunkSize:  cfg.Market.ChunkSize,
		ChunkDelay: cfg.Market.ChunkDelay,
		RateTypes:  cfg.Market.RateTypes,
	}, logger, m)
	scheduler := marketdata.NewScheduler(refresh, marketdata.Intervals{
		Quotes: cfg.Market.QuoteInterval,
		Rates:  cfg.Market.RateInterval,
		Risk:   cfg.Market.RiskInterval,
	}, logger)
	if err := scheduler.Start(ctx, &wg); err != nil {
		log.Fatalf("Market scheduler failed: %v", err)
	}
	views := marketdata.NewViews(rdb, dbConn, marketdata.ViewConfig{
		TTL:       cfg.Market.CacheTTL,
		Location:  marketLoc,
		OpenHour:  cfg.Market.OpenHour,
		CloseHour: cfg.Market.CloseHour,
	}, logger)

	// Start API server
	handler := api.NewHandler(api.Deps{
		Ingestor: ingestor,
		Store:    dbConn,
		Alerts:   alerts,
		Market:   views,
		Sockets:  sockets,
		Metrics:  m.Handler(),
		Logger:   logger,
	})
	srv := &http.Server{Addr: cfg.API.Port, Handler: api.NewRouter(handler, cfg.API.BasePath, logger)}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	wg.Wait()
	logger.Info("Shutdown complete")
}

func startConsumer(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, name, groupID string, types []models.EventType,
	handler kafka.Handler, policy kafka.Policy, producer *kafka.Producer, logger *logging.Logger, m *metrics.Metrics) *kafka.Consumer {
	reader, err := kafka.NewReader(kafka.ConsumerConfig{
		Name:    name,
		Brokers: cfg.Kafka.Brokers,
		GroupID: groupID,
		Topics:  kafka.Topics(types),
		Workers: cfg.Kafka.ConsumerWorkers,
	})
	if err != nil {
		log.Fatalf("Kafka consumer %s failed: %v", name, err)
	}
	c := kafka.NewConsumer(name, reader, handler, policy, producer, cfg.Kafka.ConsumerWorkers, logger, m)
	c.Start(ctx, wg)
	logger.Infof("Kafka consumer %s initialized with topics: %v", name, kafka.Topics(types))
	return c
}

// channelProviders builds one provider per channel. Telegram and SMS are only
// enabled when their credentials are set.
func channelProviders(ctx context.Context, cfg config.Config, dbConn *db.DB, sockets *providers.WebSocketManager,
	logger *logging.Logger, m *metrics.Metrics) []providers.ChannelProvider {
	backoff := utils.Backoff{MaxAttempts: cfg.Email.MaxAttempts, BaseDelay: cfg.Email.BaseDelay, MaxDelay: 10 * time.Second}

	mailer := email.NewFailover(emailBackends(ctx, cfg, logger)...)
	logger.Infof("Email backends in order: %v", mailer.Names())
	from := cfg.Email.FromAddress
	if cfg.Email.FromName != "" && from != "" {
		from = fmt.Sprintf("%s <%s>", cfg.Email.FromName, from)
	}

	list := []providers.ChannelProvider{
		providers.NewInAppProvider(sockets, logger, m),
		providers.NewEmailProvider(dbConn, mailer, from, backoff, logger, m),
	}

	if cfg.Telegram.BotToken != "" {
		b, err := providers.NewTelegramBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Errorf("Telegram disabled: %v", err)
		} else {
			list = append(list, providers.NewTelegramProvider(dbConn, b, cfg.Telegram.RateLimit, backoff, logger, m))
		}
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, Telegram channel disabled")
	}

	if cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "" && cfg.SMS.FromNumber != "" {
		texter := sms.NewClient(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber)
		list = append(list, providers.NewSMSProvider(dbConn, texter, backoff, logger, m))
	} else {
		logger.Warn("Twilio credentials not set, SMS channel disabled")
	}
	return list
}

// emailBackends orders the backends as primary first, then the fallbacks.
func emailBackends(ctx context.Context, cfg config.Config, logger *logging.Logger) []email.Backend {
	seen := map[string]bool{}
	var out []email.Backend
	for _, name := range append([]string{cfg.Email.Primary}, cfg.Email.Fallback...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case "smtp":
			out = append(out, email.NewSMTP(cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password))
		case "resend":
			out = append(out, email.NewResend(cfg.Email.ResendAPIKey))
		case "ses":
			ses, err := email.NewSES(ctx, cfg.Email.AWSRegion)
			if err != nil {
				logger.Errorf("SES disabled: %v", err)
				continue
			}
			out = append(out, ses)
		default:
			logger.Warnf("Unknown email provider %q ignored", name)
		}
	}
	return out
}
