package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"echomechanic/internal/app"
	"echomechanic/internal/config"
	"echomechanic/internal/ratelimit"
	"echomechanic/internal/server"
	"echomechanic/internal/usertoken"
	"echomechanic/internal/util"
	"echomechanic/pkg/ai"
	"echomechanic/pkg/storage"
	"echomechanic/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("failed to init gemini client: %v", err)
	}
	model := cfg.GenerationModel
	if model == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		model = ai.SelectModel(ctx, client)
		cancel()
	}
	slog.Info("generation model selected", "model", model)
	gateway := ai.NewGeminiGenerator(client, model)

	audio, err := newAudioStore(cfg)
	if err != nil {
		log.Fatalf("failed to init audio storage: %v", err)
	}

	var resetTokens *store.ResetTokenStore
	var registerLimiter, loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		resetTokens, err = store.NewResetTokenStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("failed to init reset token store: %v", err)
		}
		registerLimiter = newLimiter(cfg, "register", cfg.RegisterRateLimitPerMinute)
		loginLimiter = newLimiter(cfg, "login", cfg.LoginRateLimitPerMinute)
	}

	var tokens *usertoken.Issuer
	if cfg.TokenSecret != "" {
		tokens, err = usertoken.New(cfg.TokenSecret, usertoken.DefaultTTL)
		if err != nil {
			log.Fatalf("failed to init token issuer: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		Store:               st,
		Audio:               audio,
		Gateway:             gateway,
		ResetTokens:         resetTokens,
		Tokens:              tokens,
		ChatTitleGeneration: cfg.ChatTitleGeneration,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:             appCore,
		Audio:           audio,
		Tokens:          tokens,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		RegisterLimiter: registerLimiter,
		LoginLimiter:    loginLimiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // analysis turns wait on the model
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newAudioStore(cfg config.FileConfig) (storage.AudioStore, error) {
	if cfg.AudioBackend == "minio" {
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return storage.NewFileStore(cfg.AudioDir)
}

func newLimiter(cfg config.FileConfig, name string, limit int) *ratelimit.FixedWindowLimiter {
	if limit <= 0 {
		limit = 10
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
		"echomechanic:ratelimit:"+name, limit, time.Minute)
	if err != nil {
		log.Fatalf("failed to init %s limiter: %v", name, err)
	}
	return limiter
}
