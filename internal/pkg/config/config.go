package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Sweep    SweepConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

type SweepConfig struct {
	Interval        string
	BatchSize       int
	DeliveryTimeout time.Duration
	DeliveryRate    float64
	LeaseTTL        time.Duration
	StaleClaim      time.Duration
	StaleExecution  time.Duration
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config

	// App
	cfg.App.Name = viper.GetString("app.name")
	cfg.App.Environment = viper.GetString("app.environment")
	cfg.App.Debug = viper.GetBool("app.debug")

	// Server
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.ReadTimeout = viper.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server.write_timeout")
	cfg.Server.IdleTimeout = viper.GetDuration("server.idle_timeout")

	// Database
	cfg.Database.Host = viper.GetString("database.host")
	cfg.Database.Port = viper.GetInt("database.port")
	cfg.Database.User = viper.GetString("database.user")
	cfg.Database.Password = viper.GetString("database.password")
	cfg.Database.Name = viper.GetString("database.name")
	cfg.Database.SSLMode = viper.GetString("database.sslmode")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetDuration("database.conn_max_lifetime")

	// Redis
	cfg.Redis.Host = viper.GetString("redis.host")
	cfg.Redis.Port = viper.GetInt("redis.port")
	cfg.Redis.Password = viper.GetString("redis.password")
	cfg.Redis.DB = viper.GetInt("redis.db")

	// SMTP
	cfg.SMTP.Host = viper.GetString("smtp.host")
	cfg.SMTP.Port = viper.GetInt("smtp.port")
	cfg.SMTP.Username = viper.GetString("smtp.username")
	cfg.SMTP.Password = viper.GetString("smtp.password")
	cfg.SMTP.From = viper.GetString("smtp.from")
	cfg.SMTP.FromName = viper.GetString("smtp.from_name")

	// SMS
	cfg.SMS.AccountSID = viper.GetString("sms.account_sid")
	cfg.SMS.AuthToken = viper.GetString("sms.auth_token")
	cfg.SMS.From = viper.GetString("sms.from")
	cfg.SMS.BaseURL = viper.GetString("sms.base_url")

	// Sweep
	cfg.Sweep.Interval = viper.GetString("sweep.interval")
	cfg.Sweep.BatchSize = viper.GetInt("sweep.batch_size")
	cfg.Sweep.DeliveryTimeout = viper.GetDuration("sweep.delivery_timeout")
	cfg.Sweep.DeliveryRate = viper.GetFloat64("sweep.delivery_rate")
	cfg.Sweep.LeaseTTL = viper.GetDuration("sweep.lease_ttl")
	cfg.Sweep.StaleClaim = viper.GetDuration("sweep.stale_claim")
	cfg.Sweep.StaleExecution = viper.GetDuration("sweep.stale_execution")

	// Worker
	cfg.Worker.Concurrency = viper.GetInt("worker.concurrency")

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "clientflow")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", true)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "clientflow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// SMTP defaults
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from_name", "ClientFlow")

	// SMS defaults
	viper.SetDefault("sms.base_url", "https://api.twilio.com/2010-04-01")

	// Sweep defaults
	viper.SetDefault("sweep.interval", "@every 10m")
	viper.SetDefault("sweep.batch_size", 200)
	viper.SetDefault("sweep.delivery_timeout", "30s")
	viper.SetDefault("sweep.delivery_rate", 10.0)
	viper.SetDefault("sweep.lease_ttl", "9m")
	viper.SetDefault("sweep.stale_claim", "30m")
	viper.SetDefault("sweep.stale_execution", "1h")

	// Worker defaults
	viper.SetDefault("worker.concurrency", 10)
}
