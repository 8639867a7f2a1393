package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/trellis/internal/app"
	"github.com/tinytelemetry/trellis/internal/trace"
)

const (
	defaultInitialURL = "/items"
	defaultAPIAddr    = "127.0.0.1:3000"
)

type appConfig struct {
	Debug         bool          `mapstructure:"debug"`
	Development   bool          `mapstructure:"development"`
	InitialURL    string        `mapstructure:"initial-url"`
	ToastDuration time.Duration `mapstructure:"toast-duration"`
	APIEnabled    bool          `mapstructure:"api-enabled"`
	APIAddr       string        `mapstructure:"api-addr"`
	TracePath     string        `mapstructure:"trace-path"`
	TraceBuffer   int           `mapstructure:"trace-buffer"`
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TRELLIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("debug", false)
	v.SetDefault("development", false)
	v.SetDefault("initial-url", defaultInitialURL)
	v.SetDefault("toast-duration", app.DefaultToastDuration)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("trace-path", "")
	v.SetDefault("trace-buffer", trace.DefaultCapacity)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "trellis", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	if !strings.HasPrefix(cfg.InitialURL, "/") {
		return cfg, fmt.Errorf("initial-url %q must start with /", cfg.InitialURL)
	}
	if cfg.TraceBuffer <= 0 {
		return cfg, fmt.Errorf("trace-buffer must be positive, got %d", cfg.TraceBuffer)
	}
	if rest, ok := strings.CutPrefix(cfg.TracePath, "~/"); ok {
		cfg.TracePath = filepath.Join(home, rest)
	}

	return cfg, nil
}

// configureRuntimeLogger sends the standard logger to a file so it does not
// draw over the terminal UI.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "trellis")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "trellis.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
