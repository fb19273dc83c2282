// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "local"}
	validDBTypes      = []string{"sqlite", "postgres"}
	validQueueTypes   = []string{"local", "asynq"}
	validCacheStores  = []string{"memory", "redis"}
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Host         HostConfig         `mapstructure:"host"`
	DB           DBConfig           `mapstructure:"db"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Verification VerificationConfig `mapstructure:"verification"`
	Accounts     AccountsConfig     `mapstructure:"accounts"`
	Mail         MailConfig         `mapstructure:"mail"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Storage      StorageConfig      `mapstructure:"storage"`
	AWS          AWSConfig          `mapstructure:"aws"`
	Upload       UploadConfig       `mapstructure:"upload"`
	AI           AIConfig           `mapstructure:"ai"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Security     SecurityConfig     `mapstructure:"security"`
	Turnstile    TurnstileConfig    `mapstructure:"turnstile"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

type HostConfig struct {
	Port   int       `mapstructure:"port"`
	Domain string    `mapstructure:"domain"`
	CORS   []string  `mapstructure:"cors"`
	SSL    SSLConfig `mapstructure:"ssl"`
}

type SSLConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertificatePath    string `mapstructure:"certificate_path"`
	CertificateKeyPath string `mapstructure:"certificate_key_path"`
}

type DBConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type VerificationConfig struct {
	// URL is the frontend page that receives both tokens as path segments
	URL            string        `mapstructure:"url"`
	TTL            time.Duration `mapstructure:"ttl"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

type AccountsConfig struct {
	// 0 disables the cleanup of accounts that never verified
	UnverifiedTTL time.Duration `mapstructure:"unverified_ttl"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Sender   string `mapstructure:"sender"`
	Password string `mapstructure:"password"`
}

type QueueConfig struct {
	Type    string `mapstructure:"type"`
	Workers int    `mapstructure:"workers"`
	Size    int    `mapstructure:"size"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	LocalPath string `mapstructure:"local_path"`
}

type AWSConfig struct {
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	// Endpoint overrides the S3 endpoint, e.g. for Cloudflare R2
	Endpoint string `mapstructure:"endpoint"`
}

type UploadConfig struct {
	// MaxSize is given in MB in the config file and converted to bytes by Setup
	MaxSize int64 `mapstructure:"max_size"`
}

type AIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	// Store is either memory or redis
	Store string `mapstructure:"store"`
	// TTL in seconds for cached listings, 0 disables the cache
	TTL int `mapstructure:"ttl"`
}

type SecurityConfig struct {
	RateLimit int `mapstructure:"rate_limit"`
}

type TurnstileConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. The returned config must be treated as read-only.
func Setup() (*Config, error) {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("db.type", "db_type")
	v.BindEnv("db.path", "db_path")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.access_ttl", "jwt_access_ttl")
	v.BindEnv("jwt.refresh_ttl", "jwt_refresh_ttl")

	v.BindEnv("verification.url", "verification_url")
	v.BindEnv("verification.ttl", "verification_ttl")
	v.BindEnv("verification.resend_cooldown", "verification_resend_cooldown")

	v.BindEnv("accounts.unverified_ttl", "accounts_unverified_ttl")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender", "mail_sender_address")
	v.BindEnv("mail.password", "mail_password")

	v.BindEnv("queue.type", "queue_type")
	v.BindEnv("queue.workers", "queue_workers")
	v.BindEnv("queue.size", "queue_size")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("storage.type", "storage_type")
	v.BindEnv("storage.local_path", "storage_local_path")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.endpoint", "aws_endpoint")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("ai.base_url", "ai_base_url")
	v.BindEnv("ai.api_key", "ai_api_key")
	v.BindEnv("ai.model", "ai_model")
	v.BindEnv("ai.timeout", "ai_timeout")

	v.BindEnv("cache.store", "cache_store")
	v.BindEnv("cache.ttl", "cache_ttl")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("turnstile.enabled", "turnstile_enabled")
	v.BindEnv("turnstile.secret_token", "turnstile_secret_token")

	v.BindEnv("admin.username", "admin_username")
	v.BindEnv("admin.email", "admin_email")
	v.BindEnv("admin.password", "admin_password")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.path", "database.db")

	v.SetDefault("jwt.access_ttl", "5m")
	v.SetDefault("jwt.refresh_ttl", "2160h") // 90 days

	v.SetDefault("verification.url", "http://localhost:5173/verify-email")
	v.SetDefault("verification.ttl", "72h")
	v.SetDefault("verification.resend_cooldown", "5m")

	v.SetDefault("accounts.unverified_ttl", "0s")

	v.SetDefault("mail.port", 587)

	v.SetDefault("queue.type", "local")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.size", 100)

	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "media")

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("upload.max_size", 5)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "30s")

	v.SetDefault("cache.store", "memory")
	v.SetDefault("cache.ttl", 15)
	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("turnstile.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return nil, errors.New("config.toml file is missing")
		}

		return nil, fmt.Errorf("failed to read config file, %w", err)
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Turnstile.Enabled {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Registration endpoints won't be guarded against bots")
	}

	cfg.Upload.MaxSize <<= 20
	return &cfg, nil
}

// Validate checks a decoded config for values the app can't run with
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.Host.SSL.Enabled {
		if c.Host.SSL.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if c.Host.SSL.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDBTypes, c.DB.Type) {
		return errors.New("invalid database type provided")
	}

	if c.DB.Type == "postgres" && c.DB.DSN == "" {
		return errors.New("db.dsn is required for postgres")
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt secret can't be empty")
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be bigger than 0")
	}

	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access token lifetime must be shorter than the refresh token lifetime")
	}

	if c.Verification.URL == "" {
		return errors.New("verification url can't be empty")
	}

	if c.Verification.TTL < 24*time.Hour {
		return errors.New("verification ttl must be at least 24h")
	}

	if c.Accounts.UnverifiedTTL < 0 {
		return errors.New("accounts.unverified_ttl can't be negative")
	}

	if !slices.Contains(validQueueTypes, c.Queue.Type) {
		return errors.New("invalid queue type provided")
	}

	if c.Queue.Type == "local" && (c.Queue.Workers <= 0 || c.Queue.Size <= 0) {
		return errors.New("queue.workers and queue.size must be bigger than 0")
	}

	if c.Queue.Type == "asynq" && c.Redis.Addr == "" {
		return errors.New("redis address is required for the asynq queue")
	}

	switch c.Storage.Type {
	case "s3":
		if c.AWS.AccessKey == "" {
			return errors.New("aws access key can't be empty")
		}
		if c.AWS.SecretAccessKey == "" {
			return errors.New("aws secret access key can't be empty")
		}
		if c.AWS.Bucket == "" {
			return errors.New("bucket can't be empty")
		}
	case "local":
		if c.Storage.LocalPath == "" {
			return errors.New("storage.local_path can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, c.Storage.Type) {
		return errors.New("invalid storage type provided")
	}

	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if !slices.Contains(validCacheStores, c.Cache.Store) {
		return errors.New("invalid cache store provided")
	}

	if c.Cache.Store == "redis" && c.Redis.Addr == "" {
		return errors.New("redis address is required for the redis cache store")
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl can't be negative")
	}

	if c.Security.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if c.Turnstile.Enabled && c.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	if c.Admin.Username != "" && (c.Admin.Email == "" || c.Admin.Password == "") {
		return errors.New("admin email and password are required when admin.username is set")
	}

	return nil
}
