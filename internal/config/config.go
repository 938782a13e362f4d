package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Harness  HarnessConfig  `mapstructure:"harness"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

type BrowserConfig struct {
	ExecutablePath  string        `mapstructure:"executablePath"`
	Headless        bool          `mapstructure:"headless"`
	MaxSessions     int           `mapstructure:"maxSessions"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type HarnessConfig struct {
	BaseURL           string        `mapstructure:"baseUrl"`
	MaxWaitTime       time.Duration `mapstructure:"maxWaitTime"`
	LoadTimeout       time.Duration `mapstructure:"loadTimeout"`
	DataRows          int           `mapstructure:"dataRows"`
	DiagnosticsPath   string        `mapstructure:"diagnosticsPath"`
	PublicDir         string        `mapstructure:"publicDir"`
	ChartLibraryURL   string        `mapstructure:"chartLibraryUrl"`
	LocalSourceMarker string        `mapstructure:"localSourceMarker"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	ApiKey         string   `mapstructure:"apiKey"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.idleTimeout", "60s")

	v.SetDefault("browser.executablePath", "") // Attempt auto-detect if empty
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.maxSessions", 4)
	v.SetDefault("browser.shutdownTimeout", "10s")

	v.SetDefault("harness.baseUrl", "http://localhost:8080")
	v.SetDefault("harness.maxWaitTime", "2s")
	v.SetDefault("harness.loadTimeout", "10s")
	v.SetDefault("harness.dataRows", 3)
	v.SetDefault("harness.diagnosticsPath", "full_html_snippet.html")
	v.SetDefault("harness.publicDir", "public")
	v.SetDefault("harness.chartLibraryUrl", "https://cdn.jsdelivr.net/npm/chart.js")
	v.SetDefault("harness.localSourceMarker", "")

	v.SetDefault("log.level", "info")

	v.SetDefault("security.allowedOrigins", []string{"*"})
	v.SetDefault("security.apiKey", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.htmltester")
		v.AddConfigPath("/etc/htmltester")
	}

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("HTMLTESTER")

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NewLogger builds the process logger from the configured level.
func NewLogger(cfg *LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	return zapCfg.Build()
}
