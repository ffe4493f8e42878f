package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"feedback-backend/internal/config"
	"feedback-backend/internal/handlers"
	"feedback-backend/internal/identity"
	"feedback-backend/internal/logging"
	"feedback-backend/internal/metrics"
	"feedback-backend/internal/models"
	"feedback-backend/internal/notify"
	"feedback-backend/internal/profanity"
	"feedback-backend/internal/ratelimit"
	"feedback-backend/internal/repository"
	"feedback-backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	def := config.Default()
	return &cli.App{
		Name:  "feedback-backend",
		Usage: "feedback submission and moderation service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: def.Port, EnvVars: []string{"PORT"}},
			&cli.StringFlag{Name: "log-level", Value: def.LogLevel, EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", Value: def.LogFormat, EnvVars: []string{"LOG_FORMAT"}, Usage: "json or text"},
			&cli.StringFlag{Name: "auth-mode", Value: def.AuthMode, EnvVars: []string{"AUTH_MODE"}, Usage: "header or jwt"},
			&cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"JWT_SECRET"}},
			&cli.StringFlag{Name: "blocklist", Value: strings.Join(def.Blocklist, ","), EnvVars: []string{"PROFANITY_BLOCKLIST"}, Usage: "comma-separated blocked terms"},
			&cli.IntFlag{Name: "min-length", Value: def.MinLength, EnvVars: []string{"FEEDBACK_MIN_LENGTH"}},
			&cli.IntFlag{Name: "max-length", Value: def.MaxLength, EnvVars: []string{"FEEDBACK_MAX_LENGTH"}},
			&cli.Float64Flag{Name: "submit-rate", Value: def.SubmitRatePerMinute, EnvVars: []string{"SUBMIT_RATE_PER_MINUTE"}, Usage: "submissions per author per minute, 0 disables"},
			&cli.IntFlag{Name: "submit-burst", Value: def.SubmitBurst, EnvVars: []string{"SUBMIT_BURST"}},
			&cli.IntFlag{Name: "notify-queue", Value: def.NotifyQueueSize, EnvVars: []string{"NOTIFY_QUEUE_SIZE"}},
			&cli.StringFlag{Name: "cors-origins", Value: strings.Join(def.CORSOrigins, ","), EnvVars: []string{"CORS_ORIGINS"}},
			&cli.DurationFlag{Name: "shutdown-timeout", Value: def.ShutdownTimeout, EnvVars: []string{"SHUTDOWN_TIMEOUT"}},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:  "mint-token",
				Usage: "sign a development bearer token for AUTH_MODE=jwt",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "role", Value: string(models.RoleUser)},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: mintToken,
			},
		},
	}
}

func configFromCLI(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Port:                c.String("port"),
		LogLevel:            c.String("log-level"),
		LogFormat:           c.String("log-format"),
		AuthMode:            c.String("auth-mode"),
		JWTSecret:           c.String("jwt-secret"),
		Blocklist:           config.SplitList(c.String("blocklist")),
		MinLength:           c.Int("min-length"),
		MaxLength:           c.Int("max-length"),
		SubmitRatePerMinute: c.Float64("submit-rate"),
		SubmitBurst:         c.Int("submit-burst"),
		NotifyQueueSize:     c.Int("notify-queue"),
		CORSOrigins:         config.SplitList(c.String("cors-origins")),
		ShutdownTimeout:     c.Duration("shutdown-timeout"),
	}
	return cfg, cfg.Validate()
}

func serve(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewKeyedLimiter(cfg.SubmitRatePerMinute, cfg.SubmitBurst)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	limiter.StartCleanup(time.Minute, 10*time.Minute, stopCleanup)

	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), logger, m, cfg.NotifyQueueSize)
	feedbackService := service.NewFeedbackService(
		repository.NewFeedbackRepo(),
		profanity.NewFilter(cfg.Blocklist),
		dispatcher,
		logger,
		service.Options{
			MinLength: cfg.MinLength,
			MaxLength: cfg.MaxLength,
			Limiter:   limiter,
			Metrics:   m,
		},
	)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Service:     feedbackService,
			Resolver:    resolver,
			Logger:      logger,
			Metrics:     m,
			Gatherer:    reg,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "auth_mode": cfg.AuthMode}).Info("feedback backend starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			if cerr := dispatcher.Close(context.Background()); cerr != nil {
				logger.WithError(cerr).Warn("pending notifications not flushed")
			}
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown incomplete")
	}
	// Requests are drained; flush notifications they queued.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("pending notifications not flushed")
	}
	return nil
}

func newResolver(cfg *config.Config) (identity.Resolver, error) {
	switch cfg.AuthMode {
	case config.AuthModeHeader:
		return identity.NewHeaderResolver(), nil
	case config.AuthModeJWT:
		return identity.NewJWTResolver(cfg.JWTSecret), nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
}

func mintToken(c *cli.Context) error {
	secret := c.String("jwt-secret")
	if secret == "" {
		return errors.New("jwt-secret (or JWT_SECRET) is required")
	}
	token, err := identity.MintToken(secret, models.Identity{
		UserID: c.String("user"),
		Role:   models.ParseRole(c.String("role")),
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
