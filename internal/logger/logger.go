package logger

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// New reads LOG_LEVEL itself because the logger is built before the config.
func New() zerolog.Logger {
	_ = godotenv.Load()
	return SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(level)

	return logger
}

// ParseLevel falls back to info for unknown or empty names.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
