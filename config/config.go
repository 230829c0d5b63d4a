// Package config loads runtime settings from defaults, an optional YAML file
// and the environment (including a .env file), in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	LLM        LLMConfig        `yaml:"llm"`
	Agent      AgentConfig      `yaml:"agent"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Simulation SimulationConfig `yaml:"simulation"`
}

type AppConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Debug           bool          `yaml:"debug"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	DeepSeekAPIKey  string        `yaml:"deepseek_api_key"`
	DeepSeekBaseURL string        `yaml:"deepseek_base_url"`
	DeepSeekModel   string        `yaml:"deepseek_model"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	BackoffBase     time.Duration `yaml:"backoff_base"`
}

// AgentConfig bounds the negotiation phase.
type AgentConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
	RoundDelay    time.Duration `yaml:"round_delay"`
}

type MySQLConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
}

// Enabled reports whether results should be persisted.
func (m MySQLConfig) Enabled() bool {
	return m.Host != ""
}

// SimulationConfig drives the simulated marketplace.
type SimulationConfig struct {
	SendDelayMin  time.Duration `yaml:"send_delay_min"`
	SendDelayMax  time.Duration `yaml:"send_delay_max"`
	ReplyDelayMin time.Duration `yaml:"reply_delay_min"`
	ReplyDelayMax time.Duration `yaml:"reply_delay_max"`
}

func Default() Config {
	return Config{
		App: AppConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Debug:           false,
			LogLevel:        "info",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        ProviderDeepSeek,
			DeepSeekBaseURL: "https://api.deepseek.com",
			DeepSeekModel:   "deepseek-reasoner",
			GeminiModel:     "gemini-2.0-flash-001",
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			BackoffBase:     time.Second,
		},
		Agent: AgentConfig{
			MaxConcurrent: 5,
			Timeout:       300 * time.Second,
			RoundDelay:    2 * time.Second,
		},
		Simulation: SimulationConfig{
			SendDelayMin:  time.Second,
			SendDelayMax:  3 * time.Second,
			ReplyDelayMin: 2 * time.Second,
			ReplyDelayMax: 5 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty; when set, the YAML file
// must exist. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	// godotenv never overrides variables already present in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}
	// Durations accept Go syntax ("90s") or a bare number of seconds.
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = time.Duration(secs * float64(time.Second))
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("APP_HOST", &c.App.Host)
	integer("PORT", &c.App.Port) // legacy name; APP_PORT wins
	integer("APP_PORT", &c.App.Port)
	boolean("DEBUG", &c.App.Debug)
	str("LOG_LEVEL", &c.App.LogLevel)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("DEEPSEEK_API_KEY", &c.LLM.DeepSeekAPIKey)
	str("DEEPSEEK_BASE_URL", &c.LLM.DeepSeekBaseURL)
	str("DEEPSEEK_MODEL", &c.LLM.DeepSeekModel)
	str("GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	str("GEMINI_MODEL", &c.LLM.GeminiModel)
	integer("LLM_MAX_RETRIES", &c.LLM.MaxRetries)
	duration("LLM_BACKOFF_BASE", &c.LLM.BackoffBase)
	duration("LLM_REQUEST_TIMEOUT", &c.LLM.RequestTimeout)

	integer("MAX_CONCURRENT_AGENTS", &c.Agent.MaxConcurrent)
	duration("AGENT_TIMEOUT", &c.Agent.Timeout)
	duration("ROUND_DELAY", &c.Agent.RoundDelay)

	str("MYSQL_USER", &c.MySQL.User)
	str("MYSQL_PWD", &c.MySQL.Password)
	str("MYSQL_HOST", &c.MySQL.Host)
	str("MYSQL_DATABASE", &c.MySQL.Database)

	duration("SIM_SEND_DELAY_MIN", &c.Simulation.SendDelayMin)
	duration("SIM_SEND_DELAY_MAX", &c.Simulation.SendDelayMax)
	duration("SIM_REPLY_DELAY_MIN", &c.Simulation.ReplyDelayMin)
	duration("SIM_REPLY_DELAY_MAX", &c.Simulation.ReplyDelayMax)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app port out of range: %d", c.App.Port))
	}
	switch c.LLM.Provider {
	case ProviderDeepSeek, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.MaxRetries < 1 {
		errs = append(errs, errors.New("llm max retries must be at least 1"))
	}
	if c.LLM.BackoffBase < 0 {
		errs = append(errs, errors.New("llm backoff base must not be negative"))
	}
	if c.Agent.MaxConcurrent < 1 {
		errs = append(errs, errors.New("max concurrent agents must be at least 1"))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, errors.New("agent timeout must be positive"))
	}
	if c.Agent.RoundDelay < 0 {
		errs = append(errs, errors.New("round delay must not be negative"))
	}
	if c.Simulation.ReplyDelayMax < c.Simulation.ReplyDelayMin {
		errs = append(errs, errors.New("simulation reply delay max below min"))
	}
	if c.Simulation.SendDelayMax < c.Simulation.SendDelayMin {
		errs = append(errs, errors.New("simulation send delay max below min"))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.App.Host, strconv.Itoa(c.App.Port))
}

// LLMAPIKey returns the credential for the selected provider.
func (c Config) LLMAPIKey() string {
	if c.LLM.Provider == ProviderGemini {
		return c.LLM.GeminiAPIKey
	}
	return c.LLM.DeepSeekAPIKey
}
