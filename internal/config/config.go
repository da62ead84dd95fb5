// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Переменные окружения, которые перекрывают значения из файла.
const (
	EnvDatabaseURL = "CATALOG_SERVICE_DATABASE_URL"
	EnvStoreDriver = "CATALOG_SERVICE_STORE_DRIVER"
	EnvRedisAddr   = "CATALOG_SERVICE_REDIS_ADDR"
	EnvHTTPPort    = "CATALOG_SERVICE_HTTP_PORT"
	EnvGRPCPort    = "CATALOG_SERVICE_GRPC_PORT"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config - полная конфигурация catalog-service.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Lock    LockConfig    `yaml:"lock"`
	Patch   PatchConfig   `yaml:"patch"`
	Reviews ReviewsConfig `yaml:"reviews"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	HTTPPort        int           `yaml:"httpPort"`
	GRPCPort        int           `yaml:"grpcPort"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit - запросов в секунду на весь процесс, 0 отключает ограничение.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

type StoreConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	// Transactions включает транзакции MongoDB (нужен replica set).
	Transactions bool `yaml:"transactions"`
}

type LockConfig struct {
	Driver string        `yaml:"driver"`
	Addr   string        `yaml:"addr"`
	TTL    time.Duration `yaml:"ttl"`
	Wait   time.Duration `yaml:"wait"`
}

type PatchConfig struct {
	InspectAllOperations bool `yaml:"inspectAllOperations"`
}

type ReviewsConfig struct {
	UnlinkOnDelete bool `yaml:"unlinkOnDelete"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию для локального запуска без внешних зависимостей.
func Default() Config {
	return Config{
		API: APIConfig{
			HTTPPort:        8081,
			GRPCPort:        9093,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
			RateBurst:       200,
		},
		Store: StoreConfig{Driver: DriverMemory, Database: "cinema"},
		Lock: LockConfig{
			Driver: DriverMemory,
			Addr:   "localhost:6379",
			TTL:    5 * time.Second,
			Wait:   3 * time.Second,
		},
		Patch:   PatchConfig{InspectAllOperations: true},
		Reviews: ReviewsConfig{UnlinkOnDelete: true},
		Log:     LogConfig{Level: "info"},
	}
}

// Load читает YAML файл поверх Default и применяет переменные окружения.
// Отсутствующий файл не ошибка.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("Configuration file not found, using defaults", slog.String("path", path))
		case err != nil:
			return Config{}, fmt.Errorf("open config %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv(EnvStoreDriver); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Lock.Driver = DriverRedis
		c.Lock.Addr = v
	}
	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", EnvHTTPPort, err)
		}
		c.API.HTTPPort = port
	}
	if v := os.Getenv(EnvGRPCPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", EnvGRPCPort, err)
		}
		c.API.GRPCPort = port
	}
	return nil
}

// Validate проверяет драйверы и обязательные для них параметры.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo, DriverPostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Lock.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Lock.Addr == "" {
			return errors.New("lock.addr is required for redis driver")
		}
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.API.HTTPPort <= 0 || c.API.GRPCPort <= 0 {
		return errors.New("api ports must be positive")
	}
	return nil
}

// SlogLevel переводит log.level в slog.Level, неизвестное значение дает info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
