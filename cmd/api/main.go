package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/exa-engenharia/exa-chatbot/cmd/mainconfig"
	"github.com/exa-engenharia/exa-chatbot/internal/api/router"
	"github.com/exa-engenharia/exa-chatbot/internal/assistant"
	"github.com/exa-engenharia/exa-chatbot/internal/chat"
	"github.com/exa-engenharia/exa-chatbot/internal/completion"
	appconfig "github.com/exa-engenharia/exa-chatbot/internal/config"
	httpmiddleware "github.com/exa-engenharia/exa-chatbot/internal/http/middleware"
	"github.com/exa-engenharia/exa-chatbot/internal/leadcapture"
	"github.com/exa-engenharia/exa-chatbot/internal/notify"
	"github.com/exa-engenharia/exa-chatbot/internal/observability/metrics"
	"github.com/exa-engenharia/exa-chatbot/internal/webchat"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting exa-chatbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_mode", cfg.SessionMode,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	registry, metricsHandler := setupMetrics()
	chatMetrics := metrics.NewChatMetrics(registry)

	llm, closeLLM, err := setupCompletion(ctx, cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		logger.Error("failed to configure completion provider", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	sender := setupEmailSender(cfg, awsCfg, logger)
	notifier := notify.NewLeadNotifier(sender, notify.LeadNotifierConfig{
		To:     cfg.LeadInboxAddress,
		ToName: cfg.LeadInboxName,
	}, logger)

	history, redisClient := setupHistoryStore(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	asst := assistant.New(llm, assistant.Config{
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	}, logger)

	sessions := leadcapture.NewStore(leadcapture.StoreConfig{
		Single:  cfg.SessionMode == "single",
		IdleTTL: cfg.SessionIdleTTL,
		Logger:  logger,
	})
	engine := leadcapture.NewEngine(leadcapture.Config{
		Timeout:            cfg.LeadTimeout,
		MaxServiceAttempts: cfg.LeadMaxAttempts,
		MaxFieldAttempts:   cfg.LeadMaxAttempts,
		SubmitTimeout:      2 * cfg.LLMTimeout,
	}, asst, notifier,
		leadcapture.WithMetrics(chatMetrics),
		leadcapture.WithLogger(logger),
	)
	chatService := chat.NewService(chat.Config{OffTopicLimit: cfg.OffTopicLimit},
		sessions, engine, asst, history, chatMetrics, logger)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx)
	}
	go sessions.Run(ctx, time.Minute)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chat.NewHandler(chatService, logger, cfg.Env == "production"),
		WebChat:            webchat.NewHandler(chatService, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	// Create HTTP server. A turn can wait on two sequential completion calls.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// setupCompletion builds the primary provider, wraps it with the optional
// fallback and instruments both. The returned func releases provider resources.
func setupCompletion(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.ChatMetrics, logger *logging.Logger) (completion.Client, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	tracer := otel.Tracer("exa.cmd.api.completion")

	primary, closePrimary, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return nil, closeAll, fmt.Errorf("primary provider %q: %w", cfg.LLMProvider, err)
	}
	closers = append(closers, closePrimary)
	client := completion.Client(completion.NewInstrumentedClient(cfg.LLMProvider, primary, m, tracer))

	if name := cfg.LLMFallbackProvider; name != "" && name != cfg.LLMProvider {
		fallback, closeFallback, err := buildProvider(ctx, name, cfg, awsCfg)
		if err != nil {
			logger.Warn("fallback completion provider disabled", "provider", name, "error", err)
		} else {
			closers = append(closers, closeFallback)
			client = completion.NewFallbackClient(client,
				completion.NewInstrumentedClient(name, fallback, m, tracer), logger)
			logger.Info("completion fallback enabled", "primary", cfg.LLMProvider, "fallback", name)
		}
	}
	return client, closeAll, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (completion.Client, func(), error) {
	noop := func() {}
	switch name {
	case "openai":
		c, err := completion.NewOpenAIClient(completion.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "bedrock":
		if awsCfg == nil {
			return nil, noop, errors.New("aws config not loaded")
		}
		c, err := completion.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, noop, errors.New("GEMINI_API_KEY is required")
		}
		c, err := completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown provider %q", name)
	}
}

// setupEmailSender falls back to the logging stub when the selected provider
// is not fully configured.
func setupEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg.LeadInboxAddress == "" {
		logger.Warn("LEAD_INBOX_ADDRESS not set; lead emails will only be logged")
		return notify.NewStubEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("SENDGRID_API_KEY not set; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFromAddress,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("aws config not loaded; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// setupHistoryStore returns a Redis-backed history when REDIS_ADDR is set and
// reachable, otherwise an in-process one.
func setupHistoryStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (chat.HistoryStore, *redis.Client) {
	opts := chat.HistoryOptions{TTL: cfg.ChatHistoryTTL, Turns: cfg.ChatHistoryTurns}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return chat.NewMemoryHistoryStore(opts), nil
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available, keeping chat history in memory", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return chat.NewMemoryHistoryStore(opts), nil
	}
	logger.Info("chat history stored in redis", "addr", cfg.RedisAddr)
	return chat.NewRedisHistoryStore(client, opts, nil), client
}
