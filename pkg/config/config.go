package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Solver  SolverConfig  `mapstructure:"solver"`
	TUI     TUIConfig     `mapstructure:"tui"`
}

// ServerConfig holds the solver service endpoint configuration
type ServerConfig struct {
	URL                  string        `mapstructure:"url"`
	TimeoutStr           string        `mapstructure:"timeout"`
	Timeout              time.Duration `mapstructure:"-"`
	StreamIdleTimeoutStr string        `mapstructure:"stream_idle_timeout"`
	StreamIdleTimeout    time.Duration `mapstructure:"-"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// SolverConfig holds the embedded dev solver server configuration
type SolverConfig struct {
	Listen       string        `mapstructure:"listen"`
	DBPath       string        `mapstructure:"db_path"`
	Provider     string        `mapstructure:"provider"` // builtin or ollama
	StepDelayStr string        `mapstructure:"step_delay"`
	StepDelay    time.Duration `mapstructure:"-"`
	Ollama       OllamaConfig  `mapstructure:"ollama"`
	KB           KBConfig      `mapstructure:"kb"`
}

// OllamaConfig holds Ollama connection settings for the optional LLM solver
type OllamaConfig struct {
	URL        string        `mapstructure:"url"`
	Model      string        `mapstructure:"model"`
	TimeoutStr string        `mapstructure:"timeout"`
	Timeout    time.Duration `mapstructure:"-"`
}

// KBConfig holds knowledge-base routing settings for the dev solver server
type KBConfig struct {
	PersistDir string  `mapstructure:"persist_dir"`
	MinScore   float64 `mapstructure:"min_score"`
}

// TUIConfig holds terminal UI configuration
type TUIConfig struct {
	Plain bool `mapstructure:"plain"`
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Set replaces the global config instance (primarily for tests)
func Set(c *Config) {
	cfg = c
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.stepwise") // project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "stepwise"))
		viper.SetConfigName("settings")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Missing config file is fine; defaults and env cover everything.
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	// Solver service endpoint
	viper.SetDefault("server.url", "http://localhost:8000")
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("server.stream_idle_timeout", "0s")

	// Logging defaults
	viper.SetDefault("logging.log_file", "./.stepwise/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	// Embedded dev solver server
	viper.SetDefault("solver.listen", ":8000")
	viper.SetDefault("solver.db_path", "./.stepwise/feedback.db")
	viper.SetDefault("solver.provider", "builtin")
	viper.SetDefault("solver.step_delay", "0s")
	viper.SetDefault("solver.ollama.url", "http://localhost:11434")
	viper.SetDefault("solver.ollama.model", "qwen3:latest")
	viper.SetDefault("solver.ollama.timeout", "90s")
	viper.SetDefault("solver.kb.persist_dir", "")
	viper.SetDefault("solver.kb.min_score", 0.2)

	// TUI defaults
	viper.SetDefault("tui.plain", false)
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("server.url", "STEPWISE_SERVER_URL")
	viper.BindEnv("server.timeout", "STEPWISE_SERVER_TIMEOUT")
	viper.BindEnv("logging.log_file", "STEPWISE_LOG_FILE")
	viper.BindEnv("logging.level", "STEPWISE_LOG_LEVEL")
	viper.BindEnv("logging.preserve", "STEPWISE_LOG_PRESERVE")
	viper.BindEnv("solver.listen", "STEPWISE_SOLVER_LISTEN")
	viper.BindEnv("solver.db_path", "STEPWISE_SOLVER_DB")
	viper.BindEnv("solver.provider", "STEPWISE_SOLVER_PROVIDER")
	viper.BindEnv("solver.ollama.url", "STEPWISE_OLLAMA_URL")
	viper.BindEnv("solver.ollama.model", "STEPWISE_OLLAMA_MODEL")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	var err error

	if cfg.Server.Timeout, err = parseDuration(cfg.Server.TimeoutStr, 30*time.Second); err != nil {
		return fmt.Errorf("invalid server.timeout: %w", err)
	}
	if cfg.Server.StreamIdleTimeout, err = parseDuration(cfg.Server.StreamIdleTimeoutStr, 0); err != nil {
		return fmt.Errorf("invalid server.stream_idle_timeout: %w", err)
	}
	if cfg.Solver.StepDelay, err = parseDuration(cfg.Solver.StepDelayStr, 0); err != nil {
		return fmt.Errorf("invalid solver.step_delay: %w", err)
	}
	if cfg.Solver.Ollama.Timeout, err = parseDuration(cfg.Solver.Ollama.TimeoutStr, 90*time.Second); err != nil {
		return fmt.Errorf("invalid solver.ollama.timeout: %w", err)
	}

	return nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
