package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/config"
	"github.com/zhouzirui/voice-interviewer/backend/internal/handler"
	"github.com/zhouzirui/voice-interviewer/backend/internal/logging"
	interviewModel "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/ai"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/interview"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/session"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	templates, err := interviewModel.LoadTemplates(cfg.PromptsFile)
	if err != nil {
		logger.Fatal("failed to load interview prompts", zap.String("file", cfg.PromptsFile), zap.Error(err))
	}

	store, closeStore, err := newSessionStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to init session store", zap.Error(err))
	}
	defer closeStore()

	// Initialize AI service
	var generator interview.Generator
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Fatal("failed to create chat model", zap.String("provider", cfg.AI.Provider), zap.Error(err))
		}
		aiService, err := ai.NewService(ctx, chatModel, logger)
		if err != nil {
			logger.Fatal("failed to initialize AI service", zap.Error(err))
		}
		generator = aiService
		logger.Info("AI service initialized", zap.String("provider", cfg.AI.Provider), zap.String("model", cfg.AI.Model))
	} else {
		logger.Warn("AI 凭证未配置，面试接口将返回错误", zap.String("provider", cfg.AI.Provider))
	}

	// Initialize Speech service
	speechService, err := speech.NewService(ctx, cfg.Speech, logger)
	if err != nil {
		logger.Fatal("failed to initialize speech service", zap.Error(err))
	}
	defer speechService.Close()

	interviewService := interview.NewService(store, generator, speechService, templates, logger)

	router := handler.NewRouter(handler.Dependencies{
		Interview:      interviewService,
		Speech:         speechService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newSessionStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (session.Store, func(), error) {
	switch cfg.Backend {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}

		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		return session.NewRedisStore(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil

	default:
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("voice interviewer backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
