package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Math      MathConfig      `yaml:"math" mapstructure:"math"`
	QA        QAConfig        `yaml:"qa" mapstructure:"qa"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Rate      RateConfig      `yaml:"rate" mapstructure:"rate"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig selects the generation provider. Provider is openai (any
// OpenAI-compatible endpoint), anthropic, or offline.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EmbeddingConfig selects the embedding provider: ollama, openai or hash.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	ChunkSize int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// IndexConfig holds the on-disk index cache locations.
type IndexConfig struct {
	QADir      string `yaml:"qa_dir" mapstructure:"qa_dir"`
	FewShotDir string `yaml:"few_shot_dir" mapstructure:"few_shot_dir"`
}

// MathConfig configures the math solver.
type MathConfig struct {
	PAL          PALConfig          `yaml:"pal" mapstructure:"pal"`
	CoT          CoTConfig          `yaml:"cot" mapstructure:"cot"`
	FewShot      FewShotConfig      `yaml:"few_shot" mapstructure:"few_shot"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
}

// PALConfig configures program generation and the sandbox.
type PALConfig struct {
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Python      string        `yaml:"python" mapstructure:"python"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CoTConfig configures chain-of-thought sampling.
type CoTConfig struct {
	NumSamples  int     `yaml:"num_samples" mapstructure:"num_samples"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FewShotConfig configures solved-example retrieval.
type FewShotConfig struct {
	K         int    `yaml:"k" mapstructure:"k"`
	TrainPath string `yaml:"train_path" mapstructure:"train_path"`
}

// VerificationConfig configures candidate reconciliation.
type VerificationConfig struct {
	PreferPALForArithmetic bool `yaml:"prefer_pal_for_arithmetic" mapstructure:"prefer_pal_for_arithmetic"`
}

// QAConfig configures the multi-hop reasoning engine.
type QAConfig struct {
	Tiers           map[string]TierConfig `yaml:"tiers" mapstructure:"tiers"`
	SelfConsistency bool                  `yaml:"self_consistency" mapstructure:"self_consistency"`
	Samples         int                   `yaml:"samples" mapstructure:"samples"`
	UseHints        bool                  `yaml:"use_hints" mapstructure:"use_hints"`
	TrainPath       string                `yaml:"train_path" mapstructure:"train_path"`
}

// TierConfig holds generation settings for one difficulty level.
type TierConfig struct {
	Temperature float64  `yaml:"temperature" mapstructure:"temperature"`
	TopP        float64  `yaml:"top_p" mapstructure:"top_p"`
	MaxTokens   int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Stop        []string `yaml:"stop" mapstructure:"stop"`
	NumExamples int      `yaml:"num_examples" mapstructure:"num_examples"`
}

// DatasetConfig configures table reads.
type DatasetConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig configures backoff for rate-limited provider calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// RateConfig configures the adaptive request limiter. A non-positive
// RequestsPerSecond disables limiting.
type RateConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentQuestions int `yaml:"max_concurrent_questions" mapstructure:"max_concurrent_questions"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ANSWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "answers.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_questions", 4)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.chunk_size", 64)
	v.SetDefault("index.qa_dir", "indexes/qa")
	v.SetDefault("index.few_shot_dir", "indexes/few_shot")
	v.SetDefault("math.pal.max_retries", 2)
	v.SetDefault("math.pal.retry_delay", 500*time.Millisecond)
	v.SetDefault("math.pal.timeout", 5*time.Second)
	v.SetDefault("math.pal.python", "python3")
	v.SetDefault("math.pal.temperature", 0.0)
	v.SetDefault("math.pal.max_tokens", 512)
	v.SetDefault("math.cot.num_samples", 3)
	v.SetDefault("math.cot.temperature", 0.7)
	v.SetDefault("math.cot.max_tokens", 1024)
	v.SetDefault("math.few_shot.k", 2)
	v.SetDefault("math.few_shot.train_path", "data/math/train.csv")
	v.SetDefault("math.verification.prefer_pal_for_arithmetic", true)
	for level, tier := range map[string]TierConfig{
		"easy":   {Temperature: 0.2, TopP: 0.9, MaxTokens: 800, NumExamples: 2},
		"medium": {Temperature: 0.3, TopP: 0.9, MaxTokens: 1000, NumExamples: 3},
		"hard":   {Temperature: 0.5, TopP: 0.9, MaxTokens: 1200, NumExamples: 3},
	} {
		v.SetDefault("qa.tiers."+level+".temperature", tier.Temperature)
		v.SetDefault("qa.tiers."+level+".top_p", tier.TopP)
		v.SetDefault("qa.tiers."+level+".max_tokens", tier.MaxTokens)
		v.SetDefault("qa.tiers."+level+".stop", []string{})
		v.SetDefault("qa.tiers."+level+".num_examples", tier.NumExamples)
	}
	v.SetDefault("qa.self_consistency", true)
	v.SetDefault("qa.samples", 5)
	v.SetDefault("qa.use_hints", true)
	v.SetDefault("qa.train_path", "data/qa/train.csv")
	v.SetDefault("dataset.timeout_secs", 60)
	v.SetDefault("dataset.user_agent", "answer-engine/1.0")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("rate.requests_per_second", 0.0)
	v.SetDefault("rate.burst", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Mode is one of
// solve, answer, index or serve.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if n := c.Batch.MaxConcurrentQuestions; n < 1 || n > 256 {
		add("batch.max_concurrent_questions must be between 1 and 256 (got %d)", n)
	}

	needsLLM := mode == "solve" || mode == "answer" || mode == "serve"
	if needsLLM {
		switch c.LLM.Provider {
		case "offline":
		case "openai":
			if c.LLM.APIKey == "" {
				add("llm.api_key is required for the openai provider (ANSWER_LLM_API_KEY)")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				add("anthropic.key is required for the anthropic provider (ANSWER_ANTHROPIC_KEY)")
			}
		default:
			add("llm.provider must be openai, anthropic or offline (got %q)", c.LLM.Provider)
		}
	}

	switch c.Embedding.Provider {
	case "ollama", "hash":
	case "openai":
		if c.Embedding.APIKey == "" && c.LLM.APIKey == "" {
			add("embedding.api_key is required for the openai embedding provider")
		}
	default:
		add("embedding.provider must be ollama, openai or hash (got %q)", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		add("embedding.dimension must be positive (got %d)", c.Embedding.Dimension)
	}

	if mode == "solve" || mode == "serve" {
		if c.Math.PAL.MaxRetries < 1 {
			add("math.pal.max_retries must be at least 1 (got %d)", c.Math.PAL.MaxRetries)
		}
		if c.Math.CoT.NumSamples < 1 {
			add("math.cot.num_samples must be at least 1 (got %d)", c.Math.CoT.NumSamples)
		}
	}

	if mode == "answer" || mode == "serve" {
		if _, ok := c.QA.Tiers["hard"]; !ok {
			add("qa.tiers.hard is required")
		}
		for level, t := range c.QA.Tiers {
			if t.MaxTokens <= 0 {
				add("qa.tiers.%s.max_tokens must be positive (got %d)", level, t.MaxTokens)
			}
			if t.Temperature < 0 || t.Temperature > 2 {
				add("qa.tiers.%s.temperature must be between 0 and 2 (got %.2f)", level, t.Temperature)
			}
			if t.TopP < 0 || t.TopP > 1 {
				add("qa.tiers.%s.top_p must be between 0 and 1 (got %.2f)", level, t.TopP)
			}
		}
		if c.QA.SelfConsistency && c.QA.Samples < 1 {
			add("qa.samples must be at least 1 when self_consistency is on (got %d)", c.QA.Samples)
		}
	}

	switch mode {
	case "solve", "answer", "index":
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			add("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
		}
	default:
		add("unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
