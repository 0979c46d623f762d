// Package config provides configuration management for the sourcing service.
// It handles loading, validation, and access to configuration values from
// YAML files and environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Worker defaults
const (
	DefaultWorkerConcurrency = 10
	DefaultJobTimeout        = 600 * time.Second
	DefaultMaxAttempts       = 3
)

// Server defaults
const (
	defaultServerAddress      = ":8000"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultShutdownTimeout    = 30 * time.Second
)

// Search defaults
const (
	defaultRequestDelay   = 2 * time.Second
	defaultSearchMethod   = "rapid_api"
	defaultCandidateLimit = 10
	maxCandidateLimit     = 50
)

type Config struct {
	Debug     bool            `mapstructure:"debug"` // Application debug mode (controls log level and format)
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Search    SearchConfig    `mapstructure:"search"`
	AI        AIConfig        `mapstructure:"ai"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"` // e.g., ":8000"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig controls the background job worker pool.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`  // Concurrent jobs per worker process
	JobTimeout  time.Duration `mapstructure:"job_timeout"`  // Per-job execution deadline
	MaxAttempts int           `mapstructure:"max_attempts"` // Attempts before a job is marked failed
	QueueName   string        `mapstructure:"queue_name"`
}

// ArtifactsConfig controls the on-disk scrape artifact store.
type ArtifactsConfig struct {
	Dir           string        `mapstructure:"dir"`             // Root directory for html/ and json/ artifacts
	SessionPath   string        `mapstructure:"session_path"`    // Persisted browser session file
	SessionMaxAge time.Duration `mapstructure:"session_max_age"` // Session freshness window
	SweepEnabled  bool          `mapstructure:"sweep_enabled"`   // Enable scheduled expiry of old artifacts
	SweepMaxAge   time.Duration `mapstructure:"sweep_max_age"`   // Artifacts older than this are removed by the sweep
	SweepSchedule string        `mapstructure:"sweep_schedule"`  // Cron expression for the sweep
}

type SearchConfig struct {
	Method           string        `mapstructure:"method"`        // Default search method for new jobs
	RequestDelay     time.Duration `mapstructure:"request_delay"` // Delay between profile fetches
	UserAgent        string        `mapstructure:"user_agent"`
	RapidAPIKey      string        `mapstructure:"rapidapi_key"`
	RapidAPIHost     string        `mapstructure:"rapidapi_host"`
	LinkedInEmail    string        `mapstructure:"linkedin_email"`
	LinkedInPassword string        `mapstructure:"linkedin_password"`
}

type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ScoringConfig struct {
	PassThreshold int `mapstructure:"pass_threshold"` // Total score required to pass (0-100)
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker.job_timeout must be positive, got %v", c.Worker.JobTimeout)
	}
	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("worker.max_attempts must be positive, got %d", c.Worker.MaxAttempts)
	}
	if c.Artifacts.Dir == "" {
		return errors.New("artifacts.dir is required")
	}
	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 100 {
		return fmt.Errorf("scoring.pass_threshold must be in [0, 100], got %d", c.Scoring.PassThreshold)
	}
	if c.Artifacts.SweepEnabled && c.Artifacts.SweepMaxAge <= 0 {
		return errors.New("artifacts.sweep_max_age is required when artifacts.sweep_enabled is true")
	}
	switch c.Search.Method {
	case "rapid_api", "google_crawler", "google_two_phase":
	default:
		return fmt.Errorf("search.method must be one of rapid_api, google_crawler, google_two_phase, got %q", c.Search.Method)
	}
	return nil
}

// Load loads configuration from the specified path. A missing config file is
// not an error; defaults and environment variables are applied either way.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// An explicit path must exist; the default search is best effort.
	if err := v.ReadInConfig(); err != nil && path != "" {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server", map[string]any{
		"address":          defaultServerAddress,
		"read_timeout":     defaultServerReadTimeout.String(),
		"write_timeout":    defaultServerWriteTimeout.String(),
		"shutdown_timeout": defaultShutdownTimeout.String(),
		"cors_origins":     []string{"http://localhost:3000"},
	})

	v.SetDefault("redis", map[string]any{
		"addr":     "localhost:6379",
		"password": "",
		"db":       0,
	})

	v.SetDefault("worker", map[string]any{
		"concurrency":  DefaultWorkerConcurrency,
		"job_timeout":  DefaultJobTimeout.String(),
		"max_attempts": DefaultMaxAttempts,
		"queue_name":   "sourcing:jobs",
	})

	v.SetDefault("artifacts", map[string]any{
		"dir":             "data/profiles",
		"session_path":    "data/session.json",
		"session_max_age": "24h",
		"sweep_enabled":   false,
		"sweep_max_age":   "0s",
		"sweep_schedule":  "0 3 * * *",
	})

	v.SetDefault("search", map[string]any{
		"method":        defaultSearchMethod,
		"request_delay": defaultRequestDelay.String(),
		"user_agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})

	v.SetDefault("ai", map[string]any{
		"model": "gemini-2.0-flash",
	})

	v.SetDefault("scoring", map[string]any{
		"pass_threshold": 85,
	})
}

// bindEnvVars binds well-known environment variables to config keys.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"debug":                    {"APP_DEBUG"},
		"server.address":           {"SERVER_ADDRESS"},
		"server.cors_origins":      {"CORS_ORIGINS"},
		"redis.addr":               {"REDIS_ADDR", "REDIS_URL"},
		"redis.password":           {"REDIS_PASSWORD"},
		"search.rapidapi_key":      {"RAPIDAPI_KEY"},
		"search.rapidapi_host":     {"RAPIDAPI_HOST"},
		"search.linkedin_email":    {"LINKEDIN_EMAIL"},
		"search.linkedin_password": {"LINKEDIN_PASSWORD"},
		"ai.api_key":               {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"ai.model":                 {"GEMINI_MODEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", envs[0], err)
		}
	}
	return nil
}

// DefaultCandidateLimit returns the candidate limit to use when a job does
// not specify one.
func DefaultCandidateLimit() int { return defaultCandidateLimit }

// MaxCandidateLimit returns the largest candidate limit a job may request.
func MaxCandidateLimit() int { return maxCandidateLimit }
