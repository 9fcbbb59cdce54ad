package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmonge-cr/barberia/libs/config"
	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/libs/httpx"
	"github.com/dmonge-cr/barberia/libs/kafkax"
	otelx "github.com/dmonge-cr/barberia/libs/otel"
	"github.com/dmonge-cr/barberia/libs/runtime"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/consumer"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/email"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/inbox"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/jobs"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/notify"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/outbox"
	"github.com/dmonge-cr/barberia/services/notification-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var sender email.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		sender = email.NewSMTPSender(host, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	} else {
		logger.Warn("SMTP_HOST not set; emails go to the log")
		sender = email.LogSender{Logger: logger}
	}

	loc, err := time.LoadLocation(config.String("SHOP_TIMEZONE", "America/Costa_Rica"))
	if err != nil {
		logger.Error("invalid SHOP_TIMEZONE; using UTC", "err", err)
		loc = time.UTC
	}

	adminEmail := config.String("ADMIN_EMAIL", "admin@barberia.local")
	recordsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository()
	jobsRepo := jobs.NewRepository(config.Int("REMINDER_SEND_HOUR", 7), loc)
	inboxRepo := inbox.NewRepository(pool)
	notifier := notify.New(pool, sender, recordsRepo, outboxRepo, jobsRepo, logger, adminEmail)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	worker := jobs.NewWorker(pool, jobsRepo, outboxRepo, sender, logger, jobs.WorkerConfig{
		AdminEmail: adminEmail,
		Interval:   config.Minutes("REMINDER_POLL_MINUTES", time.Minute),
		BatchSize:  50,
		Backoff:    config.Minutes("REMINDER_RETRY_MINUTES", 5*time.Minute),
	})
	go worker.Run(ctx)

	topics := []string{
		"agenda.appointment.requested.v1",
		"agenda.appointment.accepted.v1",
		"agenda.appointment.rejected.v1",
		"agenda.appointment.rescheduled.v1",
		"agenda.appointment.updated.v1",
		"agenda.appointment.cancelled.v1",
	}
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	for _, topic := range topics {
		if strings.TrimSpace(brokers) == "" {
			break
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
			return notifier.HandleEvent(ctx, meta.EventType, msg.Value)
		})
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
