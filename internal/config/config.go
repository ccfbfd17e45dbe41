package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Storage string

const (
	StoragePostgres Storage = "postgres"
	StorageMemory   Storage = "memory"
)

type Config struct {
	Environment string
	// LogLevel перекрывает уровень по умолчанию для окружения
	LogLevel string
	Storage     Storage
	DBDSN       string

	TelegramToken string
	// TelegramTutors чат -> тьютор
	TelegramTutors map[int64]int64
	// DemoTutorID тьютор по умолчанию для демо-чатов без привязки
	DemoTutorID int64

	LookAhead              time.Duration
	SafeguardingQuestionID int64

	DemoSeedPath    string
	DemoSessionTTL  time.Duration
	DemoJanitorCron string
	SweepCron       string
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:     getenv("ENV"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL")),
		Storage:         Storage(strings.ToLower(getenv("STORAGE"))),
		DBDSN:           getenv("DB_DSN"),
		TelegramToken:   getenv("TELEGRAM_TOKEN"),
		DemoSeedPath:    getenv("DEMO_SEED_PATH"),
		DemoJanitorCron: getenv("DEMO_JANITOR_CRON"),
		SweepCron:       getenv("SWEEP_CRON"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Storage == "" {
		cfg.Storage = StoragePostgres
	}
	if cfg.DemoJanitorCron == "" {
		cfg.DemoJanitorCron = "*/15 * * * *"
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = "5 0 * * *"
	}

	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for postgres storage")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be postgres or memory, got %q", cfg.Storage)
	}

	days, err := intVar(getenv, "LOOKAHEAD_DAYS", 180)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("LOOKAHEAD_DAYS must be positive")
	}
	cfg.LookAhead = time.Duration(days) * 24 * time.Hour

	if cfg.SafeguardingQuestionID, err = intVar(getenv, "SAFEGUARDING_QUESTION_ID", 6); err != nil {
		return nil, err
	}
	if cfg.DemoTutorID, err = intVar(getenv, "DEMO_TUTOR_ID", 1); err != nil {
		return nil, err
	}

	cfg.DemoSessionTTL = 2 * time.Hour
	if v := getenv("DEMO_SESSION_TTL"); v != "" {
		if cfg.DemoSessionTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("DEMO_SESSION_TTL: %w", err)
		}
	}

	if cfg.TelegramTutors, err = parseTutors(getenv("TELEGRAM_TUTORS")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Demo() bool {
	return c.Storage == StorageMemory
}

func intVar(getenv func(string) string, key string, def int64) (int64, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// parseTutors разбирает "chat:tutor,chat:tutor"
func parseTutors(s string) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		chat, tutor, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("TELEGRAM_TUTORS: %q is not chat:tutor", pair)
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_TUTORS: %w", err)
		}
		tutorID, err := strconv.ParseInt(strings.TrimSpace(tutor), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_TUTORS: %w", err)
		}
		out[chatID] = tutorID
	}
	return out, nil
}
