package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the case-study agent suite
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Markets MarketsConfig `mapstructure:"markets"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	OutputDir      string        `mapstructure:"output_dir"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains LLM provider settings. Provider selects the backend
// (anthropic or openai); Model must be a key of the model table in
// internal/llm.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "anthropic":
		if strings.TrimSpace(l.AnthropicAPIKey) == "" {
			return fmt.Errorf("llm.anthropic_api_key required (set CASESTUDY_LLM_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY)")
		}
	case "openai":
		if strings.TrimSpace(l.OpenAIAPIKey) == "" {
			return fmt.Errorf("llm.openai_api_key required (set CASESTUDY_LLM_OPENAI_API_KEY or OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("llm.provider must be anthropic or openai, got %q", l.Provider)
	}
	return nil
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // tavily, serper, brave
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "tavily", "serper", "brave":
	default:
		return fmt.Errorf("search.provider must be tavily, serper or brave, got %q", s.Provider)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("search.api_key required (set CASESTUDY_SEARCH_API_KEY or TAVILY_API_KEY)")
	}
	return nil
}

// MarketsConfig contains the market data (Twelve Data) settings
type MarketsConfig struct {
	TwelveDataAPIKey string        `mapstructure:"twelvedata_api_key"`
	RequestInterval  time.Duration `mapstructure:"request_interval"`
}

func (m MarketsConfig) Validate() error {
	if strings.TrimSpace(m.TwelveDataAPIKey) == "" {
		return fmt.Errorf("markets.twelvedata_api_key required (set CASESTUDY_MARKETS_TWELVEDATA_API_KEY or TWELVEDATA_API_KEY)")
	}
	return nil
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN assembles a connection string from the parts, preferring URL.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address           string `mapstructure:"address"`
	JWTSecret         string `mapstructure:"jwt_secret"`
	AdminEmail        string `mapstructure:"admin_email"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"` // bcrypt hash
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("server.jwt_secret required")
	}
	if strings.TrimSpace(s.AdminEmail) == "" || strings.TrimSpace(s.AdminPasswordHash) == "" {
		return fmt.Errorf("server.admin_email and server.admin_password_hash required")
	}
	return nil
}

// LoadConfig loads config from file. A missing config file is fine (env
// vars and defaults apply); a malformed one is fatal. Per-command
// validation happens in cmd, because agents, import and serve need
// different sections.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.output_dir", "output")
	v.SetDefault("general.default_timeout", "120s")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-3-haiku")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("markets.request_interval", "8s")
	v.SetDefault("server.address", ":10001")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CASESTUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// Plain env var names the original agents documented keep working.
	if config.LLM.AnthropicAPIKey == "" {
		config.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if config.LLM.OpenAIAPIKey == "" {
		config.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Search.APIKey == "" {
		config.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if config.Markets.TwelveDataAPIKey == "" {
		config.Markets.TwelveDataAPIKey = os.Getenv("TWELVEDATA_API_KEY")
	}
	return &config
}
