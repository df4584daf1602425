// Package config loads server settings from defaults, an optional .env file,
// STUDYBUDDY_* environment variables and command-line flags, in rising order
// of precedence.
//
// Keys are dotted (ai.api_key); the matching environment variable replaces
// dots with underscores and adds the prefix (STUDYBUDDY_AI_API_KEY).
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "STUDYBUDDY"

// Config is the fully resolved server configuration.
type Config struct {
	Port   int
	DBPath string
	// Memory keeps all data in process memory. Nothing survives a restart.
	Memory bool

	JWTSecret  string
	SessionTTL time.Duration

	GitHub GitHubConfig
	AI     AIConfig

	// ChatPollInterval is how often the shared chat table is re-read so
	// messages written by other server processes reach live subscribers.
	ChatPollInterval time.Duration
	AllowedOrigins   []string

	LogLevel  string
	LogFormat string
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether GitHub login is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type AIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	RatePerMinute int
	Burst         int
}

// New returns a viper instance with every default set and the environment
// bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("port", 8080)
	v.SetDefault("db.path", "data/studybuddy.db")
	v.SetDefault("memory", false)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.callback_url", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.rate_per_minute", 20)
	v.SetDefault("ai.burst", 5)
	v.SetDefault("chat.poll_interval", 2*time.Second)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads path into the process environment if it exists. Variables
// already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:       v.GetInt("port"),
		DBPath:     v.GetString("db.path"),
		Memory:     v.GetBool("memory"),
		JWTSecret:  v.GetString("jwt.secret"),
		SessionTTL: v.GetDuration("jwt.ttl"),
		GitHub: GitHubConfig{
			ClientID:     v.GetString("github.client_id"),
			ClientSecret: v.GetString("github.client_secret"),
			CallbackURL:  v.GetString("github.callback_url"),
		},
		AI: AIConfig{
			APIKey:        v.GetString("ai.api_key"),
			BaseURL:       v.GetString("ai.base_url"),
			Model:         v.GetString("ai.model"),
			RatePerMinute: v.GetInt("ai.rate_per_minute"),
			Burst:         v.GetInt("ai.burst"),
		},
		ChatPollInterval: v.GetDuration("chat.poll_interval"),
		AllowedOrigins:   v.GetStringSlice("cors.allowed_origins"),
		LogLevel:         strings.ToLower(v.GetString("log.level")),
		LogFormat:        strings.ToLower(v.GetString("log.format")),
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !c.Memory && c.DBPath == "" {
		errs = append(errs, errors.New("db.path is required unless memory is set"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt.secret must be at least 16 characters"))
	}
	if c.ChatPollInterval <= 0 {
		errs = append(errs, errors.New("chat.poll_interval must be positive"))
	}
	if c.AI.RatePerMinute <= 0 {
		errs = append(errs, errors.New("ai.rate_per_minute must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Logger builds the process logger described by the log.* keys.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
