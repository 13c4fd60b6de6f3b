package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jsherman999/skillswap/internal/logging"
	"github.com/spf13/viper"
)

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	API struct {
		Listen      string   `mapstructure:"listen"`
		CORSOrigins []string `mapstructure:"cors_origins"`
		RateLimit   struct {
			AuthPerMinute int `mapstructure:"auth_per_minute"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Auth struct {
		JWTSecret  string        `mapstructure:"jwt_secret"`
		TokenTTL   time.Duration `mapstructure:"token_ttl"`
		BcryptCost int           `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`

	Realtime struct {
		Buffer       int           `mapstructure:"buffer"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		Heartbeat    time.Duration `mapstructure:"heartbeat"`
	} `mapstructure:"realtime"`

	Retention struct {
		Enabled             bool          `mapstructure:"enabled"`
		Interval            time.Duration `mapstructure:"interval"`
		ReadNotificationAge time.Duration `mapstructure:"read_notification_age"`
	} `mapstructure:"retention"`

	Log logging.Config `mapstructure:"log"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("api.listen", "127.0.0.1:4000")
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("api.rate_limit.auth_per_minute", 20)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("realtime.buffer", 64)
	v.SetDefault("realtime.write_timeout", "10s")
	v.SetDefault("realtime.heartbeat", "25s")
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.interval", "1h")
	v.SetDefault("retention.read_notification_age", "720h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Env overrides
	v.SetEnvPrefix("SKILLSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("db.dsn", "SKILLSWAP_DB_DSN", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "SKILLSWAP_AUTH_JWT_SECRET", "JWT_SECRET")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.DB.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required (set SKILLSWAP_DB_DSN or config file)")
	}
	if c.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (set SKILLSWAP_AUTH_JWT_SECRET or config file)")
	}
	if c.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Realtime.WriteTimeout < 0 {
		return nil, fmt.Errorf("realtime.write_timeout must not be negative")
	}
	if c.Realtime.Heartbeat < 0 {
		return nil, fmt.Errorf("realtime.heartbeat must not be negative (0 disables)")
	}
	if c.Retention.Enabled {
		if c.Retention.Interval <= 0 {
			return nil, fmt.Errorf("retention.interval must be positive when retention is enabled")
		}
		if c.Retention.ReadNotificationAge < 0 {
			return nil, fmt.Errorf("retention.read_notification_age must not be negative")
		}
	}
	return &c, nil
}
