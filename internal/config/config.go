package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "EARNINGS_BOT_CONFIG"

	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	Slack     SlackConfig     `yaml:"slack"`
	Finnhub   FinnhubConfig   `yaml:"finnhub"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

type SlackConfig struct {
	BotToken      string `yaml:"botToken"`
	SigningSecret string `yaml:"signingSecret"`
}

type FinnhubConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	DatabasePath  string `yaml:"databasePath"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
}

// RedisConfig is optional: the earnings cache is off when Address is empty.
type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type SchedulerConfig struct {
	Timezone           string `yaml:"timezone"`
	WakeTimes          string `yaml:"wakeTimes"`
	CallTimeoutSeconds int    `yaml:"callTimeoutSeconds"`
	MaxConcurrentSends int    `yaml:"maxConcurrentSends"`
}

func (c SchedulerConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

func (c SchedulerConfig) Location() (*time.Location, error) {
	return calendar.LoadLocation(c.Timezone)
}

func (c SchedulerConfig) ParsedWakeTimes() ([]calendar.ClockTime, error) {
	return calendar.ParseClockTimes(c.WakeTimes)
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: "3000"},
		Store: StoreConfig{
			Driver:        StoreSQLite,
			DatabasePath:  "./reminders.db",
			MongoDatabase: "earnings",
		},
		Redis: RedisConfig{TTLSeconds: 6 * 60 * 60},
		Scheduler: SchedulerConfig{
			Timezone:           calendar.DefaultTimezone,
			WakeTimes:          "09:00,13:00,15:00",
			CallTimeoutSeconds: 30,
			MaxConcurrentSends: 8,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the config from defaults, then the YAML file named by
// EARNINGS_BOT_CONFIG if set, then environment variables. Every problem
// found is reported in the returned error.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var errs []error
	cfg.applyEnvOverrides(&errs)
	errs = append(errs, cfg.validate()...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides(errs *[]error) {
	c.Slack.BotToken = getEnv("SLACK_BOT_TOKEN", c.Slack.BotToken)
	c.Slack.SigningSecret = getEnv("SLACK_SIGNING_SECRET", c.Slack.SigningSecret)

	c.Finnhub.APIKey = getEnv("FINNHUB_API_KEY", c.Finnhub.APIKey)
	c.Finnhub.BaseURL = getEnv("FINNHUB_BASE_URL", c.Finnhub.BaseURL)

	c.Server.Port = getEnv("PORT", c.Server.Port)

	c.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", c.Store.Driver))
	c.Store.DatabasePath = getEnv("DATABASE_PATH", c.Store.DatabasePath)
	c.Store.MongoURI = getEnv("MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = getEnv("MONGO_DATABASE", c.Store.MongoDatabase)

	c.Redis.Address = getEnv("REDIS_ADDR", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB, errs)
	c.Redis.TTLSeconds = getEnvInt("REDIS_TTL_SECONDS", c.Redis.TTLSeconds, errs)

	c.Scheduler.Timezone = getEnv("BUSINESS_TIMEZONE", c.Scheduler.Timezone)
	c.Scheduler.WakeTimes = getEnv("WAKE_TIMES", c.Scheduler.WakeTimes)
	c.Scheduler.CallTimeoutSeconds = getEnvInt("CALL_TIMEOUT_SECONDS", c.Scheduler.CallTimeoutSeconds, errs)
	c.Scheduler.MaxConcurrentSends = getEnvInt("MAX_CONCURRENT_SENDS", c.Scheduler.MaxConcurrentSends, errs)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) validate() []error {
	var errs []error

	required := []struct {
		key   string
		value string
	}{
		{"SLACK_BOT_TOKEN", c.Slack.BotToken},
		{"SLACK_SIGNING_SECRET", c.Slack.SigningSecret},
		{"FINNHUB_API_KEY", c.Finnhub.APIKey},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("missing required setting: %s", r.key))
		}
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite store"))
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
		if c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreSQLite, StoreMongo, c.Store.Driver))
	}

	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("REDIS_DB must be >= 0"))
	}
	if c.Redis.TTLSeconds <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}

	if _, err := c.Scheduler.Location(); err != nil {
		errs = append(errs, fmt.Errorf("BUSINESS_TIMEZONE: %w", err))
	}
	if _, err := c.Scheduler.ParsedWakeTimes(); err != nil {
		errs = append(errs, fmt.Errorf("WAKE_TIMES: %w", err))
	}
	if c.Scheduler.CallTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("CALL_TIMEOUT_SECONDS must be > 0"))
	}
	if c.Scheduler.MaxConcurrentSends <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_SENDS must be > 0"))
	}

	return errs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid int for %s: %q", key, value))
		return defaultValue
	}
	return i
}
