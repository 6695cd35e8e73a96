package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bookable-app/bookable/libs/config"
	"github.com/bookable-app/bookable/libs/db"
	"github.com/bookable-app/bookable/libs/httpx"
	"github.com/bookable-app/bookable/libs/kafkax"
	otelx "github.com/bookable-app/bookable/libs/otel"
	"github.com/bookable-app/bookable/libs/runtime"
	"github.com/bookable-app/bookable/services/notification-service/internal/consumer"
	"github.com/bookable-app/bookable/services/notification-service/internal/email"
	"github.com/bookable-app/bookable/services/notification-service/internal/inbox"
	"github.com/bookable-app/bookable/services/notification-service/internal/outbox"
	"github.com/bookable-app/bookable/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type bookingEvent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ServiceName   string `json:"service_name"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	StartTime     string `json:"start_time"`
}

func writeOutboxResult(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, evt bookingEvent, status, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventType := "notification.sent.v1"
	fields := map[string]any{
		"appointment_id": evt.AppointmentID,
		"business_id":    evt.BusinessID,
		"channel":        "email",
		"sent_at":        time.Now().UTC().Format(time.RFC3339),
	}
	if status == "failed" {
		eventType = "notification.failed.v1"
		delete(fields, "sent_at")
		fields["error_reason"] = reason
		fields["failed_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	eventPayload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   evt.AppointmentID,
		EventType:     eventType,
		Payload:       eventPayload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@bookable.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	handleBooking := func(subjectFor func(bookingEvent) string, bodyFor func(bookingEvent, time.Time) string) consumer.Handler {
		return func(ctx context.Context, msg kafka.Message) error {
			var evt bookingEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				logger.Error("invalid booking event payload", "err", err)
				return nil
			}
			if evt.AppointmentID == "" || evt.CustomerEmail == "" {
				logger.Error("missing booking event fields", "appointment_id", evt.AppointmentID)
				return nil
			}
			start, err := time.Parse(time.RFC3339, evt.StartTime)
			if err != nil {
				logger.Error("invalid start_time in booking event", "err", err)
				return nil
			}

			// Email is best effort: a send failure is recorded and reported,
			// never bounced back to the booking flow.
			status := "sent"
			failureReason := ""
			if err := emailSender.Send(evt.CustomerEmail, subjectFor(evt), bodyFor(evt, start)); err != nil {
				status = "failed"
				failureReason = err.Error()
				logger.Error("email send failed", "err", err, "recipient", evt.CustomerEmail)
			}

			if err := notificationsRepo.Insert(ctx, storage.Notification{
				AppointmentID: evt.AppointmentID,
				BusinessID:    evt.BusinessID,
				Channel:       "email",
				Recipient:     evt.CustomerEmail,
				Payload: map[string]any{
					"service_name":  evt.ServiceName,
					"customer_name": evt.CustomerName,
					"start_time":    evt.StartTime,
				},
				Status: status,
			}); err != nil {
				logger.Error("failed to persist notification", "err", err)
				return err
			}
			if err := writeOutboxResult(ctx, pool, outboxRepo, evt, status, failureReason); err != nil {
				logger.Error("failed to enqueue notification result", "err", err)
				return err
			}

			logger.Info("booking notification processed", "appointment_id", evt.AppointmentID, "status", status)
			return nil
		}
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	bookedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.appointment.booked.v1",
	}, handleBooking(
		func(bookingEvent) string { return "Appointment confirmed" },
		func(evt bookingEvent, start time.Time) string {
			return email.ConfirmationBody(evt.CustomerName, evt.ServiceName, start)
		},
	))
	go bookedConsumer.Run(ctx)

	cancelledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.appointment.cancelled.v1",
	}, handleBooking(
		func(bookingEvent) string { return "Appointment cancelled" },
		func(evt bookingEvent, start time.Time) string {
			return email.CancellationBody(evt.CustomerName, evt.ServiceName, start)
		},
	))
	go cancelledConsumer.Run(ctx)

	rescheduledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.appointment.rescheduled.v1",
	}, handleBooking(
		func(bookingEvent) string { return "Appointment rescheduled" },
		func(evt bookingEvent, start time.Time) string {
			return email.RescheduleBody(evt.CustomerName, evt.ServiceName, start)
		},
	))
	go rescheduledConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
