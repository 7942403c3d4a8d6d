package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/welldanyogia/portfolio-contact/internal/compose"
	"github.com/welldanyogia/portfolio-contact/internal/config"
	"github.com/welldanyogia/portfolio-contact/internal/contact"
	"github.com/welldanyogia/portfolio-contact/internal/health"
	"github.com/welldanyogia/portfolio-contact/internal/logger"
	"github.com/welldanyogia/portfolio-contact/internal/mailer"
	"github.com/welldanyogia/portfolio-contact/internal/metrics"
	"github.com/welldanyogia/portfolio-contact/internal/middleware"
	"github.com/welldanyogia/portfolio-contact/internal/ratelimit"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
	"github.com/welldanyogia/portfolio-contact/internal/spam"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("Server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store       ratelimit.Store
		redisClient *redis.Client
	)
	switch cfg.RateLimit.Backend {
	case "redis":
		client, err := setupRedis(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
		store = ratelimit.NewRedisStore(client)
	default:
		mem := ratelimit.NewMemoryStore()
		go mem.RunJanitor(ctx, cfg.RateLimit.Window)

		collector := metrics.NewStoreStatsCollector(mem, log)
		collector.Start(30 * time.Second)
		defer collector.Stop()
		store = mem
	}
	limiter := ratelimit.New(store, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	sender, err := mailer.New(ctx, cfg.Email, log)
	if err != nil {
		return fmt.Errorf("failed to set up email provider: %w", err)
	}

	composer := compose.New(compose.Config{
		From:      cfg.Contact.From,
		To:        cfg.Contact.To,
		OwnerName: cfg.Contact.OwnerName,
	}, nil)

	service := contact.NewService(contact.Config{
		Rules: rules.RuleSet{
			Strict:          cfg.Contact.StrictFields,
			BlockDisposable: cfg.Contact.BlockDisposable,
		},
		MaxAttachmentBytes: cfg.Contact.MaxAttachmentBytes,
		Alternative: contact.AlternativeConfig{
			Email:          cfg.Contact.AltEmail,
			LinkedInURL:    cfg.Contact.AltLinkedInURL,
			WhatsAppNumber: cfg.Contact.AltWhatsAppNumber,
		},
	}, limiter, spam.NewDefaultDetector(), composer, sender, log)

	contactHandler := contact.NewHandler(service, contact.HandlerConfig{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Production:   cfg.IsProduction(),
		Status: contact.Status{
			EmailProvider:            sender.Name(),
			EmailConfigured:          cfg.EmailConfigured(),
			RecipientConfigured:      cfg.Contact.To != "",
			SenderConfigured:         cfg.Contact.From != "",
			AlternativeContactConfig: cfg.Contact.AltEmail != "" || cfg.Contact.AltWhatsAppNumber != "",
			RateLimitBackend:         cfg.RateLimit.Backend,
		},
	}, log)

	healthCfg := health.Config{
		EmailProvider:   sender.Name(),
		EmailConfigured: cfg.EmailConfigured(),
		Version:         version,
	}
	if redisClient != nil {
		healthCfg.RedisClient = redisClient
	}
	healthHandler := health.NewHandler(healthCfg)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Readiness)
	r.Get("/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Throttle(cfg.Server.GlobalRPS, cfg.Server.GlobalBurst))
		contact.RegisterRoutes(r, contactHandler)
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Email.SendTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server",
			slog.String("addr", cfg.Addr()),
			slog.String("version", version),
			slog.String("email_provider", sender.Name()),
			slog.String("rate_limit_backend", cfg.RateLimit.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	healthHandler.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

func setupRedis(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	log.Info("Connected to redis", slog.String("addr", cfg.Addr), slog.Int("db", cfg.DB))
	return client, nil
}
