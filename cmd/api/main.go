// Package main is the entry point for the quill API.
//
// It loads configuration (failing fast when the Creem secrets are missing),
// wires the signature verifier, the entitlement store and the detached
// webhook processor into the core chassis, and serves the router.
//
// Locally and in containers it runs a plain HTTP server with graceful
// shutdown on SIGINT/SIGTERM. Inside AWS Lambda it serves API Gateway HTTP
// API events through lambdaproxy.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"quill/internal/api/handlers"
	"quill/internal/config"
	"quill/internal/core"
	"quill/internal/creem"
	"quill/internal/entitlement"
	"quill/internal/lambdaproxy"
	"quill/internal/telemetry"
)

// lambdaDrainTimeout bounds the post-response drain of a Lambda invocation.
// API Gateway gives up on an integration after 29s, and the drain runs before
// the invocation returns, so it stays well under that limit.
const lambdaDrainTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app is the wired service plus the hooks that release its resources.
type app struct {
	server    *core.Server
	processor *creem.Processor
	closers   []func(context.Context) error
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("quill API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"creem_product_id", cfg.Creem.ProductID,
	)

	a, err := build(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(a, logger)
	}
	return runHTTPServer(a, cfg, logger)
}

// build wires every component. Secrets flow from cfg into the verifier and
// nowhere else.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	prom := telemetry.NewPrometheus(cfg.Observability.MetricNamespace)
	recorders := telemetry.Multi{prom}

	var closers []func(context.Context) error
	if cfg.Observability.CloudWatchEnabled {
		cwClient, err := newCloudWatchClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating cloudwatch client: %w", err)
		}
		cw := telemetry.NewCloudWatch(cwClient, cfg.Observability.MetricNamespace, logger)
		recorders = append(recorders, cw)
		closers = append(closers, cw.Close)
	}

	store := entitlement.NewMemoryStore()
	store.Subscribe(func(c entitlement.Change) {
		logger.Info("entitlement changed",
			"customer_id", c.After.CustomerID,
			"from_status", string(c.Before.Status),
			"to_status", string(c.After.Status),
			"has_access", c.After.HasAccess,
			"event_id", c.After.LastEventID,
		)
	})

	dispatcher := creem.NewDispatcher(entitlement.NewAccessHandler(store, logger), recorders, logger)
	processor := creem.NewProcessor(dispatcher, creem.ProcessorConfig{
		Timeout:     processTimeout(cfg.Webhook.ProcessTimeout, isLambdaEnvironment()),
		MaxInFlight: cfg.Webhook.MaxInFlight,
	}, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = recorders
	srv.MetricsHandler = prom.Handler()
	srv.HealthProbes = append(srv.HealthProbes, processor)

	verifier := creem.NewVerifier(cfg.Creem.APIKey, cfg.Creem.WebhookSecret)
	verifyPayment := handlers.NewVerifyPaymentHandler(verifier, srv.Validator, recorders, logger)
	webhook := handlers.NewCreemWebhookHandler(verifier, processor, recorders, cfg.Webhook.MaxBodyBytes, logger)
	srv.APIRouteRegistrars = append(srv.APIRouteRegistrars,
		verifyPayment.RegisterRoutes,
		webhook.RegisterRoutes,
	)
	srv.MountRoutes()

	// Drain the processor before flushing metrics so failed dispatches reach CloudWatch.
	closers = append([]func(context.Context) error{processor.Shutdown}, closers...)

	return &app{server: srv, processor: processor, closers: closers}, nil
}

// processTimeout caps the dispatch timeout in Lambda mode so a dispatch never
// outlives the invocation drain. A zero configured value means the processor
// default, which the cap also applies to.
func processTimeout(configured time.Duration, inLambda bool) time.Duration {
	if configured <= 0 {
		configured = creem.DefaultProcessTimeout
	}
	if inLambda && configured > lambdaDrainTimeout {
		return lambdaDrainTimeout
	}
	return configured
}

// boundedDrain wraps drain so it returns after d even when the caller's
// context carries a later deadline.
func boundedDrain(drain func(context.Context) error, d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return drain(ctx)
	}
}

func newCloudWatchClient(ctx context.Context, cfg *config.Config) (*cloudwatch.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}
	return cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	}), nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda serves API Gateway events. Each invocation drains the webhook
// processor after the response is recorded, since the runtime freezes
// background goroutines between invocations. The drain is bounded by
// lambdaDrainTimeout; a dispatch still running then resumes on the next
// invocation of the same sandbox.
func runLambda(a *app, logger *slog.Logger) error {
	drain := boundedDrain(a.processor.Drain, lambdaDrainTimeout)
	adapter := lambdaproxy.New(a.server.Handler(), logger, lambdaproxy.WithAfterServe(drain))
	logger.Info("serving in Lambda mode")
	lambda.Start(adapter.Proxy)
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(a *app, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Acknowledged webhooks may still be dispatching.
	if err := a.server.Shutdown(ctx, a.closers...); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
