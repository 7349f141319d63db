package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	AllowedOrigins []string

	// Поиск музыки: "itunes" (без ключа) или "spotify" (нужны credentials).
	MusicSearchProvider string
	SonglinkAPIURL      string
	SpotifyClientID     string
	SpotifyClientSecret string

	// Пустой TidalClientID отключает интеграцию с Tidal.
	TidalClientID string

	// Пустые R2-настройки отключают загрузку аватаров.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) TidalEnabled() bool {
	return c.TidalClientID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Отсутствие .env не считаем фатальной ошибкой.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	origins := []string{"http://localhost:5173"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	provider := strings.ToLower(os.Getenv("MUSIC_SEARCH_PROVIDER"))
	if provider == "" {
		provider = "itunes"
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		AllowedOrigins: origins,

		MusicSearchProvider: provider,
		SonglinkAPIURL:      os.Getenv("SONGLINK_API_URL"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		TidalClientID: os.Getenv("TIDAL_CLIENT_ID"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if cfg.MusicSearchProvider == "spotify" && (cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "") {
		return nil, fmt.Errorf("spotify provider requires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}
	if cfg.MusicSearchProvider != "itunes" && cfg.MusicSearchProvider != "spotify" {
		return nil, fmt.Errorf("unknown music search provider %q, valid options: itunes, spotify", cfg.MusicSearchProvider)
	}

	return cfg, nil
}
