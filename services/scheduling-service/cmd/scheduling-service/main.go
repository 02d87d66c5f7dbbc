package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"salonbook/libs/config"
	"salonbook/libs/db"
	"salonbook/libs/httpx"
	"salonbook/libs/kafkax"
	otelx "salonbook/libs/otel"
	"salonbook/libs/runtime"
	"salonbook/services/scheduling-service/internal/booking"
	"salonbook/services/scheduling-service/internal/handlers"
	"salonbook/services/scheduling-service/internal/outbox"
	"salonbook/services/scheduling-service/internal/realtime"
	"salonbook/services/scheduling-service/internal/reminders"
	"salonbook/services/scheduling-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
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

	// All date and clock arithmetic is anchored in the salon's own
	// timezone; the store never sees anything else.
	loc, err := time.LoadLocation(config.String("SALON_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid SALON_TIMEZONE", "err", err)
		panic(err)
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

	outboxRepo := outbox.NewRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	hoursRepo := storage.NewHoursRepository(pool)
	serviceRepo := storage.NewServiceRepository(pool)

	var feed realtime.Feed = realtime.NopFeed{}
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		feed = realtime.NewRedisFeed(rdb, logger)
	} else {
		logger.Warn("realtime feed disabled (no REDIS_ADDR configured)")
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	sweeper := reminders.NewSweeper(apptRepo, logger, loc)
	go func() {
		if err := sweeper.Run(ctx, config.String("REMINDER_CRON", "0 18 * * *")); err != nil {
			logger.Error("reminder sweeper failed to start", "err", err)
		}
	}()

	tx := booking.NewTransaction(apptRepo, hoursRepo, serviceRepo, loc)
	stepMins := config.Int("SLOT_STEP_MINUTES", 30)
	scheduleHandler := handlers.NewScheduleHandler(hoursRepo, serviceRepo, apptRepo, logger, loc, stepMins)
	bookingHandler := handlers.NewBookingHandler(tx, apptRepo, feed, logger)
	adminHandler := handlers.NewAdminHandler(hoursRepo, serviceRepo, logger)
	watchHandler := handlers.NewWatchHandler(feed, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: realtime.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	// The booking path holds a per-date lock inside its transaction, so it
	// gets a hard timeout on top of the rate limit.
	publicBook := httpx.WithTimeout(10*time.Second)(http.HandlerFunc(bookingHandler.Book))
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("BOOK_RATE_LIMIT", 30), time.Minute, "book")
		publicBook = limiter.Middleware(logger, true)(publicBook)
	} else {
		limiter := httpx.NewRateLimiter(config.Int("BOOK_RATE_LIMIT", 30), time.Minute)
		publicBook = limiter.Middleware()(publicBook)
	}

	adminSecret, err := config.RequiredString("ADMIN_JWT_SECRET")
	if err != nil {
		panic(err)
	}
	adminAuth := handlers.WithAdminAuth([]byte(adminSecret))

	mux.HandleFunc("/api/v1/public/schedule", scheduleHandler.Day)
	mux.HandleFunc("/api/v1/public/schedule/watch", watchHandler.Watch)
	mux.Handle("/api/v1/public/book", publicBook)
	mux.Handle("/api/v1/appointments", adminAuth(http.HandlerFunc(bookingHandler.List)))
	mux.Handle("/api/v1/appointments/cancel", adminAuth(http.HandlerFunc(bookingHandler.Cancel)))
	mux.Handle("/api/v1/admin/appointments", adminAuth(http.HandlerFunc(bookingHandler.AdminBook)))
	mux.Handle("/api/v1/admin/working-hours", adminAuth(http.HandlerFunc(adminHandler.WorkingHours)))
	mux.Handle("/api/v1/admin/services", adminAuth(http.HandlerFunc(adminHandler.Services)))

	cors := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins:   splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	})
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		cors,
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
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

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
