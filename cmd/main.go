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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/mixclub/music-league/config"
	"github.com/mixclub/music-league/db"
	"github.com/mixclub/music-league/handlers"
	"github.com/mixclub/music-league/music"
	"github.com/mixclub/music-league/repositories"
	api "github.com/mixclub/music-league/routes"
	"github.com/mixclub/music-league/services"
	"github.com/mixclub/music-league/storage"
	"github.com/mixclub/music-league/tidal"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Загрузчик файлов (Cloudflare R2) — опционален
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 storage not configured, avatar upload disabled")
	}

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	voteRepo := repositories.NewPostgresVoteRepository(dbConn)
	transactor := repositories.NewSQLTransactor(dbConn)
	logger.Info("repositories initialized")

	// Поисковый провайдер музыки
	var searchProvider music.SearchProvider
	switch cfg.MusicSearchProvider {
	case "spotify":
		searchProvider = music.NewSpotifyProvider(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	default:
		searchProvider = music.NewITunesProvider()
	}
	songlinkClient := music.NewSonglinkClient(cfg.SonglinkAPIURL)
	logger.Info("music search provider initialized", slog.String("provider", searchProvider.Name()))

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	userService := services.NewUserService(userRepo, uploader, logger)
	leagueService := services.NewLeagueService(leagueRepo, memberRepo, transactor, logger)
	roundService := services.NewRoundService(roundRepo, leagueRepo, memberRepo, submissionRepo, logger)
	submissionService := services.NewSubmissionService(submissionRepo, roundRepo, leagueRepo, memberRepo, transactor)
	voteService := services.NewVoteService(voteRepo, roundRepo, memberRepo, submissionRepo, transactor)
	resultService := services.NewResultService(roundRepo, leagueRepo, submissionRepo, voteRepo)
	musicService := services.NewMusicService(searchProvider, songlinkClient, logger)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	routeCfg := api.Config{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.AllowedOrigins,

		Auth:       handlers.NewAuthHandler(authService, userService),
		League:     handlers.NewLeagueHandler(leagueService, resultService),
		Round:      handlers.NewRoundHandler(roundService, resultService),
		Submission: handlers.NewSubmissionHandler(submissionService, roundService, logger),
		Vote:       handlers.NewVoteHandler(voteService),
		Music:      handlers.NewMusicHandler(musicService),
	}
	if uploader != nil {
		routeCfg.User = handlers.NewUserHandler(userService)
	}
	if cfg.TidalEnabled() {
		tidalClient := tidal.NewClient(cfg.TidalClientID)
		playlistService := services.NewPlaylistService(userRepo, roundRepo, submissionRepo, memberRepo, tidalClient, logger)
		routeCfg.Tidal = handlers.NewTidalHandler(playlistService)
		logger.Info("tidal integration enabled")
	} else {
		logger.Info("TIDAL_CLIENT_ID not set, tidal integration disabled")
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, routeCfg)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
