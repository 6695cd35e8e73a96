package main

import (
	"context"
	"net/http"
	"time"

	"github.com/bookable-app/bookable/libs/blob"
	"github.com/bookable-app/bookable/libs/config"
	"github.com/bookable-app/bookable/libs/db"
	"github.com/bookable-app/bookable/libs/httpx"
	"github.com/bookable-app/bookable/libs/kafkax"
	otelx "github.com/bookable-app/bookable/libs/otel"
	"github.com/bookable-app/bookable/libs/runtime"
	"github.com/bookable-app/bookable/services/business-service/internal/consumer"
	"github.com/bookable-app/bookable/services/business-service/internal/handlers"
	"github.com/bookable-app/bookable/services/business-service/internal/inbox"
	"github.com/bookable-app/bookable/services/business-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "business-service")
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
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	logos, err := blob.NewLocalStore(
		config.String("MEDIA_DIR", "/var/lib/bookable/media"),
		config.String("MEDIA_BASE_URL", "http://localhost:8082/media"),
	)
	if err != nil {
		logger.Error("media store setup failed", "err", err)
		panic(err)
	}

	repo := storage.NewRepository(pool)
	httpHandler := handlers.New(repo, logos)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		inboxRepo := inbox.NewRepository(pool)
		registrations := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: "business-service",
			Topic:   "auth.user.registered.v1",
		}, consumer.NewRegistrationHandler(logger, repo))
		go registrations.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("/media/", http.StripPrefix("/media/", logos.Handler()))
	mux.HandleFunc("/api/v1/business/profile", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.GetProfile(w, r)
		case http.MethodPut:
			httpHandler.UpdateProfile(w, r)
		case http.MethodDelete:
			httpHandler.DeleteBusiness(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/business/logo", httpHandler.UploadLogo)
	mux.HandleFunc("/api/v1/business/hours", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListBusinessHours(w, r)
		case http.MethodPut:
			httpHandler.UpsertBusinessHours(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/business/staff", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			httpHandler.CreateStaff(w, r)
		case http.MethodGet:
			httpHandler.ListStaff(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/business/staff/active", httpHandler.SetStaffActive)
	mux.HandleFunc("/api/v1/business/staff/schedule", httpHandler.GetSchedule)
	mux.HandleFunc("/api/v1/business/staff/day-status", httpHandler.SetDayStatus)
	mux.HandleFunc("/api/v1/business/staff/working-hours", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListWorkingHours(w, r)
		case http.MethodPut:
			httpHandler.UpsertWorkingHours(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/business/staff/breaks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListBreaks(w, r)
		case http.MethodPost:
			httpHandler.AddBreak(w, r)
		case http.MethodDelete:
			httpHandler.DeleteBreak(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/business/services", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			httpHandler.CreateService(w, r)
		case http.MethodGet:
			httpHandler.ListServices(w, r)
		case http.MethodDelete:
			httpHandler.DeleteService(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "business")
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
