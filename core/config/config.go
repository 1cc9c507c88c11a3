package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing reports that a required credential or identifier is absent.
var ErrConfigMissing = errors.New("required configuration missing")

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
// URL wins over AppName; AppName expands to https://<app>.herokuapp.com.
type WebhookConfig struct {
	URL     string `yaml:"url" envconfig:"WEBHOOK_URL"`
	AppName string `yaml:"app_name" envconfig:"WEBHOOK_APP_NAME"`
	Listen  string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port    int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateCommand identifies slash-command messages for rate limit exclusions.
	UpdateCommand = "command"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "message": text and photo messages
// - "command": slash commands such as /start and /cancel
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CoreConfig lets the core config satisfy carriers that embed it.
func (c *Config) CoreConfig() *Config { return c }

// Load reads core configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills out from the YAML file at path and then overlays environment
// variables. A missing file is not an error: env-only deployments are allowed.
func Decode(path string, out any) error {
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize trims and validates cfg in place and fills run mode defaults.
// "polling" is accepted as a spelling of longpoll.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	tc := &cfg.Telegram
	if tc.Token = strings.TrimSpace(tc.Token); tc.Token == "" {
		return fmt.Errorf("%w: telegram token (BOT_TOKEN)", ErrConfigMissing)
	}

	mode := strings.ToLower(strings.TrimSpace(tc.RunMode))
	switch mode {
	case RunModeWebhook:
		if err := normalizeWebhook(&cfg.Webhook); err != nil {
			return err
		}
	case "", "polling", RunModeLongpoll:
		mode = RunModeLongpoll
		if tc.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", tc.RunMode)
	}
	tc.RunMode = mode

	kinds := cfg.RateLimit.ExcludeUpdates
	for i, raw := range kinds {
		kind := strings.ToLower(strings.TrimSpace(raw))
		if kind != "" && !slices.Contains([]string{UpdateMessage, UpdateCommand}, kind) {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message, command", raw)
		}
		kinds[i] = kind
	}
	return nil
}

func normalizeWebhook(wh *WebhookConfig) error {
	wh.URL = strings.TrimRight(strings.TrimSpace(wh.URL), "/")
	if wh.URL == "" {
		app := strings.TrimSpace(wh.AppName)
		if app == "" {
			return fmt.Errorf("%w: webhook.url or webhook.app_name is required when telegram.run_mode is 'webhook'", ErrConfigMissing)
		}
		wh.URL = fmt.Sprintf("https://%s.herokuapp.com", app)
	}
	if strings.TrimSpace(wh.Listen) == "" {
		wh.Listen = "0.0.0.0"
	}
	if wh.Port == 0 {
		// PaaS platforms hand the port out via $PORT.
		if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
			port, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid PORT %q: %w", raw, err)
			}
			wh.Port = port
		}
	}
	if wh.Port <= 0 {
		return fmt.Errorf("%w: webhook.port (WEBHOOK_PORT or PORT) must be > 0 when telegram.run_mode is 'webhook'", ErrConfigMissing)
	}
	return nil
}
