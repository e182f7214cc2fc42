// Package config loads service settings from the environment, an optional .env file
// and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	StorageDriver string `mapstructure:"storage_driver"`

	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`

	CartCurrency string        `mapstructure:"cart_currency"`
	RemovalDelay time.Duration `mapstructure:"removal_delay"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"database_url"`
	Host     string `mapstructure:"db_host"`
	Port     int    `mapstructure:"db_port"`
	User     string `mapstructure:"db_user"`
	Password string `mapstructure:"db_password"`
	Name     string `mapstructure:"db_name"`
	MaxConns int32  `mapstructure:"db_max_conns"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"redis_addr"`
	CartTTL      time.Duration `mapstructure:"redis_cart_ttl"`
	PingAttempts int           `mapstructure:"redis_ping_attempts"`
}

var defaults = map[string]any{
	"http_addr":           ":8080",
	"storage_driver":      StoragePostgres,
	"database_url":        "",
	"db_host":             "localhost",
	"db_port":             5432,
	"db_user":             "postgres",
	"db_password":         "",
	"db_name":             "shop_db",
	"db_max_conns":        10,
	"redis_addr":          "localhost:6379",
	"redis_cart_ttl":      "720h",
	"redis_ping_attempts": 30,
	"cart_currency":       "THB",
	"removal_delay":       "300ms",
	"log_level":           "info",
	"log_format":          "json",
}

// Load reads envFile (if it exists) into the process environment, then configFile (if non-empty),
// then lets environment variables override both.
func Load(envFile, configFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !isNotExist(err) {
			return Config{}, fmt.Errorf("godotenv.Load: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("v.ReadInConfig: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("v.Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("cfg.Validate: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StoragePostgres, StorageRedis, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage_driver[%s] is not one of postgres, redis, memory", c.StorageDriver))
	}

	if _, err := c.Currency(); err != nil {
		errs = append(errs, err)
	}

	if c.Redis.PingAttempts < 1 {
		errs = append(errs, fmt.Errorf("redis_ping_attempts[%d] must be at least 1", c.Redis.PingAttempts))
	}

	if c.RemovalDelay < 0 {
		errs = append(errs, fmt.Errorf("removal_delay[%s] is negative", c.RemovalDelay))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level[%s]: %w", c.LogLevel, err))
	}

	return errors.Join(errs...)
}

func (c Config) Currency() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.CartCurrency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("cart_currency[%s] is not valid: %w", c.CartCurrency, err)
	}
	return unit, nil
}

// ConnString returns DatabaseURL when set, otherwise a URL assembled from the DB_* settings.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RedisAddr appends the default port when REDIS_ADDR has none.
func (r RedisConfig) RedisAddr() string {
	if strings.Contains(r.Addr, ":") {
		return r.Addr
	}
	return r.Addr + ":6379"
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
