package config

import (
	"fmt"
	"os"
	"strings"
	"tfm-tracker/internal/constants"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath         string
	ServerPort     string
	AllowedOrigins []string
	Timezone       string
	Location       *time.Location

	// client
	ServerURL    string
	CachePath    string
	PollInterval time.Duration
	ImportFile   string

	Archive ArchiveConfig
}

// ArchiveConfig points at an S3-compatible bucket. Archiving is off when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "tfm.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		Timezone:       getEnv("TIMEZONE", "Local"),
		ServerURL:      getEnv("SERVER_URL", "http://localhost:8080"),
		CachePath:      getEnv("CACHE_PATH", "tfm-client.db"),
		ImportFile:     getEnv("IMPORT_FILE", ""),
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		},
	}

	interval, err := time.ParseDuration(getEnv("POLL_INTERVAL", constants.DefaultPollInterval.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", interval)
	}
	cfg.PollInterval = interval

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Archive.Enabled() && (cfg.Archive.AccessKeyID == "") != (cfg.Archive.SecretAccessKey == "") {
		return nil, fmt.Errorf("ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_ACCESS_KEY must be set together")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("server_url", cfg.ServerURL).
		Str("timezone", cfg.Location.String()).
		Dur("poll_interval", cfg.PollInterval).
		Bool("archive", cfg.Archive.Enabled()).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
