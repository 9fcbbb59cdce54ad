package main

import (
	"context"
	"encoding/json"
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
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/consumer"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/handlers"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/inbox"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/storage"
)

// appointmentEvent is the shared payload shape of the agenda's appointment
// events.
type appointmentEvent struct {
	AppointmentID int64  `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	Barber        string `json:"barber"`
	Service       string `json:"service"`
}

func main() {
	service := config.String("SERVICE_NAME", "backoffice-service")
	port, err := config.Port("PORT", "8082")
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

	haircutsRepo := storage.NewHaircutsRepository(pool)
	productsRepo := storage.NewProductsRepository(pool)
	ledgerRepo := storage.NewLedgerRepository(pool)
	acceptedRepo := storage.NewAcceptedCacheRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "backoffice-service")
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(brokers) == "" || strings.TrimSpace(topic) == "" {
			return
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	startConsumer("agenda.appointment.accepted.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID <= 0 || evt.Date == "" || evt.Time == "" {
			logger.Error("missing required event fields", "topic", msg.Topic)
			return nil
		}
		return acceptedRepo.Upsert(ctx, model.AcceptedAppointment{
			AppointmentID: evt.AppointmentID,
			Date:          evt.Date,
			Time:          evt.Time,
			ClientName:    evt.ClientName,
			Barber:        evt.Barber,
			Service:       evt.Service,
		})
	})
	// Cancellations and reschedules keep the mirror honest. A rescheduled
	// appointment stays accepted, so it is re-upserted with its new slot.
	startConsumer("agenda.appointment.cancelled.v1", func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID <= 0 {
			return nil
		}
		return acceptedRepo.Remove(ctx, evt.AppointmentID)
	})
	// Reschedules and field-only updates both refresh the mirror; only
	// accepted appointments belong in it.
	refreshAccepted := func(ctx context.Context, msg kafka.Message) error {
		var evt struct {
			appointmentEvent
			Status string `json:"status"`
		}
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID <= 0 || evt.Status != "accepted" {
			return nil
		}
		return acceptedRepo.Upsert(ctx, model.AcceptedAppointment{
			AppointmentID: evt.AppointmentID,
			Date:          evt.Date,
			Time:          evt.Time,
			ClientName:    evt.ClientName,
			Barber:        evt.Barber,
			Service:       evt.Service,
		})
	}
	startConsumer("agenda.appointment.rescheduled.v1", refreshAccepted)
	startConsumer("agenda.appointment.updated.v1", refreshAccepted)

	haircutsHandler := handlers.NewHaircutsHandler(haircutsRepo, logger)
	productsHandler := handlers.NewProductsHandler(productsRepo, logger)
	incomesHandler := handlers.NewLedgerHandler(ledgerRepo, model.KindIncome, logger)
	expensesHandler := handlers.NewLedgerHandler(ledgerRepo, model.KindExpense, logger)
	reportHandler := handlers.NewReportHandler(haircutsRepo, ledgerRepo, acceptedRepo, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/haircuts", haircutsHandler.Handle)
	mux.HandleFunc("/api/v1/haircuts/update", haircutsHandler.Update)
	mux.HandleFunc("/api/v1/haircuts/delete", haircutsHandler.Delete)
	mux.HandleFunc("/api/v1/products", productsHandler.Handle)
	mux.HandleFunc("/api/v1/products/update", productsHandler.Update)
	mux.HandleFunc("/api/v1/products/stock", productsHandler.AdjustStock)
	mux.HandleFunc("/api/v1/products/delete", productsHandler.Delete)
	mux.HandleFunc("/api/v1/incomes", incomesHandler.Handle)
	mux.HandleFunc("/api/v1/incomes/update", incomesHandler.Update)
	mux.HandleFunc("/api/v1/incomes/delete", incomesHandler.Delete)
	mux.HandleFunc("/api/v1/expenses", expensesHandler.Handle)
	mux.HandleFunc("/api/v1/expenses/update", expensesHandler.Update)
	mux.HandleFunc("/api/v1/expenses/delete", expensesHandler.Delete)
	mux.HandleFunc("/api/v1/reports/summary", reportHandler.Summary)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "backoffice")
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
