package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	AI        AIConfig        `mapstructure:"ai"`
	S3        S3Config        `mapstructure:"s3"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address       string `mapstructure:"address"`
	AllowedOrigin string `mapstructure:"allowed_origin"` // browser origin allowed by CORS
	Mode          string `mapstructure:"mode"`           // gin mode: debug, release, test
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "mongo" or "memory"
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// RateLimitConfig configures the per-IP sliding window kept in Redis.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
	Prefix   string        `mapstructure:"prefix"`
}

// AIConfig points at an OpenAI-compatible chat completion API.
// An empty APIKey disables the model call; workouts then come from the fallback.
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// S3Config configures the optional generation transcript archive.
// An empty BucketName disables it.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	Prefix          string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

var (
	ErrMissingJWTSecret   = errors.New("jwt.secret (JWT_SECRET) must be set")
	ErrInvalidRateLimit   = errors.New("ratelimit.limit and ratelimit.window must be positive")
	ErrMissingRedisURL    = errors.New("ratelimit.redis_url (RATELIMIT_REDIS_URL) must be set when rate limiting is enabled")
	ErrUnknownDriver      = errors.New("database.driver must be \"mongo\" or \"memory\"")
	ErrMissingDatabaseURI = errors.New("database.uri (DATABASE_URI) must be set for the mongo driver")
)

// LoadConfig reads configuration from file or environment variables.
// A .env file in path is loaded into the process environment first, if present.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	// Missing .env is the normal case outside local development.
	_ = godotenv.Load(strings.TrimSuffix(path, "/") + "/.env")

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	v.AutomaticEnv()
	// server.allowed_origin -> SERVER_ALLOWED_ORIGIN
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	// --- Read Config File ---
	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	// --- Unmarshal Config ---
	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if err = config.Validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":5001")
	v.SetDefault("server.allowed_origin", "http://localhost:5173")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fittrack")

	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "168h")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.redis_url", "redis://localhost:6379/0")
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", "60s")
	v.SetDefault("ratelimit.prefix", "ratelimit")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-3.5-turbo")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.prefix", "ai-transcripts")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" {
			return ErrMissingDatabaseURI
		}
	case DriverMemory:
	default:
		return ErrUnknownDriver
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
			return ErrInvalidRateLimit
		}
		if c.RateLimit.RedisURL == "" {
			return ErrMissingRedisURL
		}
	}
	return nil
}
