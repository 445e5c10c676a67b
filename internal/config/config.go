package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	DBDSN    string `yaml:"db_dsn"`
	MediaDir string `yaml:"media_dir"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	BotToken      string `yaml:"bot_token"`
	BotAPIURL     string `yaml:"bot_api_url"`
	BotMode       string `yaml:"bot_mode"` // polling | webhook
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`

	AdminIDs     []int64 `yaml:"admin_ids"`
	AdminKeyHash string  `yaml:"admin_key_hash"` // bcrypt hash of the admin HTTP key

	SessionBackend string        `yaml:"session_backend"` // memory | sqlite
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`

	PageSize   int     `yaml:"page_size"`
	MaxResults int     `yaml:"max_results"`
	Currency   string  `yaml:"currency"`
	UserRate   float64 `yaml:"user_rate"` // inbound events per second per user
	UserBurst  int     `yaml:"user_burst"`
}

// ValidationError names the offending setting.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

func Defaults() Config {
	return Config{
		Port:           "8080",
		DBDSN:          "detaltap.db",
		MediaDir:       "./images",
		LogLevel:       "INFO",
		BotAPIURL:      "https://api.telegram.org",
		BotMode:        "polling",
		SessionBackend: "memory",
		SessionTTL:     24 * time.Hour,
		SweepInterval:  5 * time.Minute,
		PageSize:       5,
		MaxResults:     20,
		Currency:       "AZN",
		UserRate:       2,
		UserBurst:      8,
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"PORT":            &cfg.Port,
		"DB_DSN":          &cfg.DBDSN,
		"MEDIA_DIR":       &cfg.MediaDir,
		"LOG_FILE":        &cfg.LogFile,
		"LOG_LEVEL":       &cfg.LogLevel,
		"BOT_TOKEN":       &cfg.BotToken,
		"BOT_API_URL":     &cfg.BotAPIURL,
		"BOT_MODE":        &cfg.BotMode,
		"WEBHOOK_URL":     &cfg.WebhookURL,
		"WEBHOOK_SECRET":  &cfg.WebhookSecret,
		"ADMIN_KEY_HASH":  &cfg.AdminKeyHash,
		"SESSION_BACKEND": &cfg.SessionBackend,
		"CURRENCY":        &cfg.Currency,
	}
	for k, p := range str {
		if v := os.Getenv(k); v != "" {
			*p = v
		}
	}

	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := ParseIDs(v)
		if err != nil {
			return ValidationError{Field: "ADMIN_IDS", Value: v, Message: err.Error()}
		}
		cfg.AdminIDs = ids
	}
	for k, p := range map[string]*time.Duration{"SESSION_TTL": &cfg.SessionTTL, "SWEEP_INTERVAL": &cfg.SweepInterval} {
		if v := os.Getenv(k); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return ValidationError{Field: k, Value: v, Message: "must be a duration such as 24h"}
			}
			*p = d
		}
	}
	for k, p := range map[string]*int{"PAGE_SIZE": &cfg.PageSize, "MAX_RESULTS": &cfg.MaxResults, "USER_BURST": &cfg.UserBurst} {
		if v := os.Getenv(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return ValidationError{Field: k, Value: v, Message: "must be an integer"}
			}
			*p = n
		}
	}
	if v := os.Getenv("USER_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ValidationError{Field: "USER_RATE", Value: v, Message: "must be a number"}
		}
		cfg.UserRate = f
	}
	return nil
}

// ParseIDs parses a comma separated list of numeric user ids.
func ParseIDs(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad user id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, e ValidationError) {
		if !ok {
			errs = append(errs, e.Error())
		}
	}
	check(c.BotMode == "polling" || c.BotMode == "webhook",
		ValidationError{Field: "bot_mode", Value: c.BotMode, Message: "must be polling or webhook"})
	check(c.BotMode != "webhook" || c.WebhookSecret != "",
		ValidationError{Field: "webhook_secret", Message: "required in webhook mode"})
	check(c.BotMode != "webhook" || strings.HasPrefix(c.WebhookURL, "https://"),
		ValidationError{Field: "webhook_url", Value: c.WebhookURL, Message: "an https URL is required in webhook mode"})
	check(c.SessionBackend == "memory" || c.SessionBackend == "sqlite",
		ValidationError{Field: "session_backend", Value: c.SessionBackend, Message: "must be memory or sqlite"})
	check(c.PageSize >= 1 && c.PageSize <= 50,
		ValidationError{Field: "page_size", Value: c.PageSize, Message: "must be between 1 and 50"})
	check(c.MaxResults >= 1,
		ValidationError{Field: "max_results", Value: c.MaxResults, Message: "must be positive"})
	check(c.SessionTTL >= 0,
		ValidationError{Field: "session_ttl", Value: c.SessionTTL, Message: "must not be negative"})
	check(c.UserRate > 0 && c.UserBurst >= 1,
		ValidationError{Field: "user_rate", Value: c.UserRate, Message: "rate and burst must be positive"})
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

// OperatorID is the admin identity the HTTP admin surface acts as.
func (c *Config) OperatorID() int64 {
	if len(c.AdminIDs) == 0 {
		return 0
	}
	return c.AdminIDs[0]
}
