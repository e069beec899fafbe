// Package config загружает конфигурацию сервисов Outreach.
//
// Источники, в порядке приоритета:
//  1. Переменные окружения (DB_URL, AMQP_URL, API_PORT, ...)
//  2. YAML файл, путь из OUTREACH_CONFIG
//  3. Значения по умолчанию
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath — переменная окружения с путём к YAML файлу.
const EnvPath = "OUTREACH_CONFIG"

// Хранилища.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config — конфигурация всех процессов.
type Config struct {
	Store    string         `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	API      APIConfig      `yaml:"api"`
	Log      LogConfig      `yaml:"log"`
	Requests RequestsConfig `yaml:"requests"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`

	// Seed — справочные данные для STORE=memory.
	Seed *Seed `yaml:"seed,omitempty"`
}

// DatabaseConfig — подключение к PostgreSQL.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// AMQPConfig — подключение к RabbitMQ. Пустой URL отключает публикацию событий.
type AMQPConfig struct {
	URL string `yaml:"url"`
}

// APIConfig — HTTP API.
type APIConfig struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`

	// ChangeFeedLag — запас курсора ленты изменений на расхождение часов
	// между репликами API и БД.
	ChangeFeedLag time.Duration `yaml:"change_feed_lag"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RequestsConfig — журнал статусов запросов.
type RequestsConfig struct {
	StrictStatusOrder bool `yaml:"strict_status_order"`
}

// SweeperConfig — отмена просроченных запланированных выездов.
type SweeperConfig struct {
	Cron       string        `yaml:"cron"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Port       string        `yaml:"port"`
	BatchSize  int           `yaml:"batch_size"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Store: StorePostgres,
		API:   APIConfig{Port: "8080", ChangeFeedLag: 2 * time.Second},
		Log:   LogConfig{Level: "info", Format: "json"},
		Sweeper: SweeperConfig{
			Cron:       "*/15 * * * *",
			StaleAfter: 24 * time.Hour,
			Port:       "8082",
			BatchSize:  100,
		},
	}
}

// Load читает YAML из OUTREACH_CONFIG (если задан) и применяет env overrides.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(EnvPath), os.LookupEnv)
}

// LoadFrom читает конфигурацию из path; lookup — источник переменных окружения.
func LoadFrom(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"STORE":        &c.Store,
		"DB_URL":       &c.Database.URL,
		"AMQP_URL":     &c.AMQP.URL,
		"API_PORT":     &c.API.Port,
		"JWT_SECRET":   &c.API.JWTSecret,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"SWEEP_CRON":   &c.Sweeper.Cron,
		"SWEEPER_PORT": &c.Sweeper.Port,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("STRICT_STATUS_ORDER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_STATUS_ORDER: %w", err)
		}
		c.Requests.StrictStatusOrder = b
	}
	durations := map[string]*time.Duration{
		"SWEEP_STALE_AFTER": &c.Sweeper.StaleAfter,
		"CHANGE_FEED_LAG":   &c.API.ChangeFeedLag,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	if c.Sweeper.StaleAfter < 0 {
		return errors.New("sweeper.stale_after must be >= 0")
	}
	if c.API.ChangeFeedLag < 0 {
		return errors.New("api.change_feed_lag must be >= 0")
	}
	if c.Sweeper.BatchSize <= 0 {
		c.Sweeper.BatchSize = 100
	}
	if c.Seed != nil && c.Store != StoreMemory {
		return errors.New("seed is only supported with store: memory")
	}
	return nil
}
