package consumerservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-metrics/internal/general/awsx"
	"ride-metrics/internal/general/config"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/general/rabbitmq"
	"ride-metrics/internal/pipeline/adapters/brokerqueue"
	"ride-metrics/internal/pipeline/adapters/managedqueue"
	"ride-metrics/internal/pipeline/adapters/metricstore"
	"ride-metrics/internal/pipeline/api"
	"ride-metrics/internal/pipeline/app"
)

// Run wires the consumer service (managed-queue receive loop, broker drain
// ticker, pull-drain endpoint) and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	logger := logger.New("consumer-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	sqsClient, s3Client, err := awsx.NewClients(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "aws_clients_failed", "Failed to build AWS clients", err, nil)
		return err
	}

	rmq, err := rabbitmq.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	managed, err := managedqueue.New(ctx, sqsClient, cfg, logger)
	if err != nil {
		logger.Error(ctx, "managed_queue_failed", "Failed to declare managed queue", err, nil)
		return err
	}
	broker := brokerqueue.New(rmq, cfg, logger)
	defer broker.Close()

	store := metricstore.New(s3Client, cfg, logger)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Error(ctx, "bucket_ensure_failed", "Failed to ensure metric bucket", err, nil)
		return err
	}

	consumer := app.NewConsumer(store, broker, app.NewSimulator(), logger)

	// background workers: push-mode batches from the managed queue, and a
	// periodic pull-mode drain of the broker queue
	go consumer.RunManagedReceiveLoop(ctx, managed, cfg.Consumer.MaxMessages)
	go consumer.RunBrokerDrainTicker(ctx,
		time.Duration(cfg.Consumer.DrainIntervalSecs)*time.Second,
		cfg.Consumer.MaxMessages,
	)

	mux := http.NewServeMux()
	handler := api.NewConsumerHandler(consumer, cfg.Consumer.MaxMessages, logger)
	handler.RegisterRoutes(mux)

	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.ConsumerPort),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute, // a full drain can take max_messages * max simulated delay
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Consumer Service started on port %d", cfg.Services.ConsumerPort),
		map[string]any{"port": cfg.Services.ConsumerPort, "max_concurrent": maxConcurrent},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Consumer Service shutting down", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err,
				map[string]any{"port": cfg.Services.ConsumerPort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
