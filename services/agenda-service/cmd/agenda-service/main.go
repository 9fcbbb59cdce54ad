package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmonge-cr/barberia/libs/config"
	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/libs/httpx"
	"github.com/dmonge-cr/barberia/libs/kafkax"
	otelx "github.com/dmonge-cr/barberia/libs/otel"
	"github.com/dmonge-cr/barberia/libs/runtime"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/handlers"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/outbox"
	"github.com/dmonge-cr/barberia/services/agenda-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "agenda-service")
	port, err := config.Port("PORT", "8081")
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

	repo := storage.NewAppointmentsRepository(pool)
	outboxRepo := outbox.NewRepository()

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	window := handlers.Window{
		DayStart:       config.String("AGENDA_DAY_START", "08:00"),
		DayEnd:         config.String("AGENDA_DAY_END", "19:00"),
		Interval:       config.Minutes("AGENDA_SLOT_MINUTES", 30*time.Minute),
		RejectedBlocks: config.Bool("AGENDA_REJECTED_BLOCKS_SLOT", false),
	}
	if _, err := window.Grid(); err != nil {
		logger.Error("invalid day window configuration", "err", err)
		panic(err)
	}
	agendaHandler := handlers.NewAgendaHandler(repo, outboxRepo, logger, window)

	limiter := buildLimiter(logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	publicMux := http.NewServeMux()
	publicMux.HandleFunc("/api/v1/public/slots", agendaHandler.Slots)
	publicMux.HandleFunc("/api/v1/public/book", agendaHandler.Book)
	public := httpx.Chain(publicMux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
	)
	mux.Handle("/api/v1/public/", public)

	mux.HandleFunc("/api/v1/appointments", agendaHandler.List)
	mux.HandleFunc("/api/v1/appointments/transition", agendaHandler.Transition)
	mux.HandleFunc("/api/v1/appointments/edit", agendaHandler.Edit)
	mux.HandleFunc("/api/v1/appointments/cancel", agendaHandler.Cancel)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
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

// buildLimiter prefers a shared Redis window so replicas enforce one budget;
// without REDIS_ADDR each replica limits independently in memory.
func buildLimiter(logger *slog.Logger) httpx.Limiter {
	limit := config.Int("RATE_LIMIT_PUBLIC_RPM", 60)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		logger.Info("rate limiter using redis", "addr", addr)
		return httpx.NewRedisLimiter(rdb, limit, time.Minute, "agenda:public")
	}
	logger.Info("rate limiter using in-process window")
	return httpx.NewMemoryLimiter(limit, time.Minute)
}
