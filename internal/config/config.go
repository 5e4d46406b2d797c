package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
	CORS      CORSConfig     `mapstructure:"cors"`
	Persona   PersonaConfig  `mapstructure:"persona"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Grok      ProviderConfig `mapstructure:"grok"`
	GeminiAI  ProviderConfig `mapstructure:"gemini_ai"`
	Lorem     LoremConfig    `mapstructure:"lorem"`
	JWT       JWTConfig      `mapstructure:"jwt"`
	Database  DatabaseConfig `mapstructure:"database"`
	Ingest    IngestConfig   `mapstructure:"ingest"`
	Client    ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// PersonaConfig is the system instruction prepended to every conversation.
// An empty (or whitespace only) Text disables the system turn.
type PersonaConfig struct {
	Text     string `mapstructure:"text"`
	UserName string `mapstructure:"user_name"`
}

type ProviderConfig struct {
	APIKey    string   `mapstructure:"api_key"`
	BaseURL   string   `mapstructure:"base_url"`
	Model     string   `mapstructure:"model"`
	MaxTokens int      `mapstructure:"max_tokens"`
	Models    []string `mapstructure:"models"`
}

type LoremConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
	Words   int           `mapstructure:"words"`
}

type JWTConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type IngestConfig struct {
	URLs           []string `mapstructure:"urls"`
	Selector       string   `mapstructure:"selector"`
	ChunkSize      int      `mapstructure:"chunk_size"`
	ChunkOverlap   int      `mapstructure:"chunk_overlap"`
	EmbeddingModel string   `mapstructure:"embedding_model"`
	Dimensions     int      `mapstructure:"dimensions"`
	Table          string   `mapstructure:"table"`
	Concurrency    int      `mapstructure:"concurrency"`
	BatchSize      int      `mapstructure:"batch_size"`
}

type ClientConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Token    string `mapstructure:"token"`
}

// envBindings maps config keys to the environment variable names used by the
// hosted providers' own tooling.
var envBindings = map[string]string{
	"server.port":       "PORT",
	"openai.api_key":    "OPENAI_API_KEY",
	"anthropic.api_key": "ANTHROPIC_API_KEY",
	"grok.api_key":      "XAI_API_KEY",
	"gemini_ai.api_key": "GEMINI_API_KEY",
	"jwt.secret_key":    "JWT_SECRET_KEY",
	"database.url":      "POSTGRES_URL",
	"client.token":      "RELAY_TOKEN",
	"persona.text":      "PERSONA_TEXT",
	"persona.user_name": "PERSONA_USER_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 120*time.Second)
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 10)

	v.SetDefault("log.level", "info")

	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allow_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allow_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.expose_headers", []string{"Content-Type"})
	v.SetDefault("cors.allow_credentials", false)

	v.SetDefault("persona.text", "")
	v.SetDefault("persona.user_name", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4.1-nano")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.models", []string{"gpt-4.1-nano"})

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.models", []string{"claude-3-haiku-20240307"})

	v.SetDefault("grok.api_key", "")
	v.SetDefault("grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("grok.model", "grok-3-mini")
	v.SetDefault("grok.max_tokens", 0)
	v.SetDefault("grok.models", []string{"grok-3-mini"})

	v.SetDefault("gemini_ai.api_key", "")
	v.SetDefault("gemini_ai.base_url", "")
	v.SetDefault("gemini_ai.model", "gemini-2.0-flash")
	v.SetDefault("gemini_ai.max_tokens", 1000)
	v.SetDefault("gemini_ai.models", []string{"gemini-2.0-flash"})

	v.SetDefault("lorem.enabled", false)
	v.SetDefault("lorem.delay", 100*time.Millisecond)
	v.SetDefault("lorem.words", 40)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("database.url", "")

	v.SetDefault("ingest.urls", []string{})
	v.SetDefault("ingest.selector", "p")
	v.SetDefault("ingest.chunk_size", 500)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("ingest.embedding_model", "text-embedding-3-large")
	v.SetDefault("ingest.dimensions", 3072)
	v.SetDefault("ingest.table", "embeddings")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.batch_size", 64)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.provider", "openai")
	v.SetDefault("client.model", "")
	v.SetDefault("client.token", "")
}

// LoadConfig reads the YAML file at configPath and the dotenv file at envPath.
// Either path may be empty or point to a missing file; defaults and the
// process environment still apply.
func LoadConfig(configPath string, envPath string) (*Config, error) {
	// Load .env file first
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
