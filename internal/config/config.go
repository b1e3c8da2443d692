package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluation service.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	AllowOrigins string
	TriggerLimit int

	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string
	JWTSecret   string

	AIProvider     string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiModel    string
	AITimeout      time.Duration
	AIMaxTokens    int
	AITemperature  float32
	ResultsTTL     time.Duration
	QueueKey       string
	WorkerCount    int
	MaxAttempts    int
	StaleAfter     time.Duration
	RecoverEvery   time.Duration
	ShutdownBudget time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Interview Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("http.allow_origins", "*")
	v.SetDefault("http.trigger_limit", 30)
	v.SetDefault("nats.subject", "evaluation.completed")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", "45s")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("results.cache_ttl", "10m")
	v.SetDefault("queue.key", "interview:evaluation:jobs")
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.stale_after", "15m")
	v.SetDefault("worker.recover_interval", "1m")
	v.SetDefault("app.shutdown_timeout", "20s")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		AllowOrigins:  v.GetString("http.allow_origins"),
		TriggerLimit:  v.GetInt("http.trigger_limit"),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		NATSSubject:   v.GetString("nats.subject"),
		JWTSecret:     v.GetString("jwt.secret"),
		AIProvider:    strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		OpenAIAPIKey:  v.GetString("openai.api_key"),
		OpenAIModel:   v.GetString("openai.model"),
		OpenAIBaseURL: v.GetString("openai.base_url"),
		GeminiAPIKey:  v.GetString("gemini.api_key"),
		GeminiModel:   v.GetString("gemini.model"),
		AIMaxTokens:   v.GetInt("ai.max_tokens"),
		AITemperature: float32(v.GetFloat64("ai.temperature")),
		QueueKey:      v.GetString("queue.key"),
		WorkerCount:   v.GetInt("worker.concurrency"),
		MaxAttempts:   v.GetInt("worker.max_attempts"),
	}
	durations["ai.timeout"] = &cfg.AITimeout
	durations["results.cache_ttl"] = &cfg.ResultsTTL
	durations["worker.stale_after"] = &cfg.StaleAfter
	durations["worker.recover_interval"] = &cfg.RecoverEvery
	durations["app.shutdown_timeout"] = &cfg.ShutdownBudget

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		*target = parsed
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.AIProvider {
	case "openai", "gemini":
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 1024
	}

	return cfg, nil
}
