package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr       string
	DBDriver   string
	DBDSN      string
	RedisAddr  string
	JWTSecret  string
	SessionTTL time.Duration
	LogLevel   string
	LogFormat  string
	SeedDemo   bool
}

// Load reads config.yaml if present and lets CHATSYNC_* environment
// variables override every key (CHATSYNC_DB_DSN, CHATSYNC_REDIS_ADDR, ...).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("chatsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "chatsync.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("seed.demo", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Addr:       v.GetString("server.addr"),
		DBDriver:   v.GetString("db.driver"),
		DBDSN:      v.GetString("db.dsn"),
		RedisAddr:  v.GetString("redis.addr"),
		JWTSecret:  v.GetString("jwt.secret"),
		SessionTTL: v.GetDuration("session.ttl"),
		LogLevel:   v.GetString("logging.level"),
		LogFormat:  v.GetString("logging.format"),
		SeedDemo:   v.GetBool("seed.demo"),
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt.secret is not set (CHATSYNC_JWT_SECRET)")
	}
	return cfg, nil
}
