package dispatchservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/general/clock"
	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/httpx"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/postgres"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/general/websocket"
	authhandler "ride-dispatch/internal/software/auth/handler"
	bookinghandler "ride-dispatch/internal/software/booking/handler"
	bookingservice "ride-dispatch/internal/software/booking/service"
	chathandler "ride-dispatch/internal/software/chat/handler"
	chatservice "ride-dispatch/internal/software/chat/service"
	shifthandler "ride-dispatch/internal/software/shift/handler"
	shiftservice "ride-dispatch/internal/software/shift/service"
)

// Options are the command-line knobs of the dispatch service.
type Options struct {
	ConfigPath    string
	MaxConcurrent int
	AutoMigrate   bool
}

// Run wires the dispatch service and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// set up a new logger and context with a static request ID for startup logs
	logger := logger.New("dispatch-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	if opts.AutoMigrate {
		version, err := postgres.Migrate(cfg.Database)
		if err != nil {
			logger.Error(ctx, "db_migrate_failed", "Failed to apply migrations", err, nil)
			return err
		}
		logger.Info(ctx, "db_migrated", "Schema is up to date", map[string]any{"version": version})
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	pub := rabbitmq.NewMQPublisher(rmq)
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.TTL)
	clk := clock.System{}

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	shiftRepo := postgres.NewShiftRepo()
	bookingRepo := postgres.NewBookingRepo()
	bookingEventRepo := postgres.NewBookingEventRepo()
	conversationRepo := postgres.NewConversationRepo()
	messageRepo := postgres.NewMessageRepo()
	blobs := postgres.NewBlobStore(pool, cfg.Services.PublicBaseURL)

	// set up the services
	shifts := shiftservice.NewShiftService(logger, uow, shiftRepo, bookingRepo, pub, clk)
	bookings := bookingservice.NewLifecycle(logger, uow, bookingRepo, bookingEventRepo, pub, clk)
	conversations := chatservice.NewChatService(logger, chatservice.Deps{
		UoW:           uow,
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Shifts:        shiftRepo,
		Bookings:      bookingRepo,
		Blobs:         blobs,
		Publisher:     pub,
		Source:        rmq,
		Clock:         clk,
	}, chatservice.Options{
		Policy:        chat.AttachmentPolicy{MaxBytes: cfg.Chat.MaxAttachmentBytes},
		BookingWindow: time.Duration(cfg.Chat.BookingWindowMinutes) * time.Minute,
	})

	// set up the HTTP handlers and their routes
	mux := http.NewServeMux()
	authhandler.NewAuthHTTPHandler(logger, jwtManager).RegisterRoutes(mux)
	mux.Handle("GET /ready", httpx.Ready(map[string]httpx.Check{
		"postgres": pool.Ping,
		"rabbitmq": func(context.Context) error {
			if !rmq.Connected() {
				return errors.New("broker connection is down")
			}
			return nil
		},
	}))
	shifthandler.NewShiftHTTPHandler(shifts, logger, jwtManager).RegisterRoutes(mux)
	bookinghandler.NewBookingHTTPHandler(bookings, logger, jwtManager).RegisterRoutes(mux)
	socket := websocket.NewConversationSocket(logger, jwtManager, conversations)
	chathandler.NewChatHTTPHandler(conversations, blobs, logger, jwtManager, socket, cfg.Chat.MaxAttachmentBytes).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.DispatchServicePort),
		Handler:           withConcurrencyLimit(opts.MaxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second, // attachments
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		// no WriteTimeout: conversation sockets are long-lived
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Dispatch Service started on port %d", cfg.Services.DispatchServicePort),
		map[string]any{"port": cfg.Services.DispatchServicePort, "max_concurrent": opts.MaxConcurrent},
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.DispatchServicePort})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Start graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
			return err
		}
		return nil
	})

	return g.Wait()
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
// WebSocket upgrades are excluded; they would hold a slot for their lifetime.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := semaphore.NewWeighted(int64(n))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		if err := sem.Acquire(r.Context(), 1); err != nil {
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)
		next.ServeHTTP(w, r)
	})
}
