package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tropicaldog17/replyqueue/internal/db"
	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/llm"
	"github.com/tropicaldog17/replyqueue/internal/notifier"
	"github.com/tropicaldog17/replyqueue/internal/platform"
	"github.com/tropicaldog17/replyqueue/internal/services"
)

const (
	configPathEnv = "REPLYQUEUE_CONFIG"

	VectorCacheDB   = "db"
	VectorCacheFile = "file"
)

// Config holds every setting the binary needs.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Database db.Config               `yaml:"database"`
	Platform platform.Config         `yaml:"platform"`
	LLM      llm.Config              `yaml:"llm"`
	Notifier notifier.Config         `yaml:"notifier"`
	Proposal services.ProposalConfig `yaml:"proposal"`
	Scan     services.ScanConfig     `yaml:"scan"`
	Outbox   services.OutboxConfig   `yaml:"outbox"`
	Schedule ScheduleConfig          `yaml:"schedule"`
	Bank     BankConfig              `yaml:"bank"`
}

// ServerConfig configures the admin HTTP surface.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	BaseURL      string        `yaml:"base_url"`
	AdminToken   string        `yaml:"-"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ScheduleConfig drives the cron scheduler.
type ScheduleConfig struct {
	ScanSchedules []string      `yaml:"scan_schedules"`
	Timezone      string        `yaml:"timezone"`
	OutboxTick    string        `yaml:"outbox_tick"`
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
	TickTimeout   time.Duration `yaml:"tick_timeout"`
}

// BankConfig locates the answer bank and its vector cache.
type BankConfig struct {
	Path            string `yaml:"path"`
	VectorCache     string `yaml:"vector_cache"`
	VectorCachePath string `yaml:"vector_cache_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			BaseURL:      "http://localhost:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: db.Config{
			Driver:     db.DriverPostgres,
			Host:       "localhost",
			Port:       "5432",
			User:       "replyqueue",
			Password:   "replyqueue",
			Name:       "replyqueue",
			SSLMode:    "disable",
			SQLitePath: "replyqueue.db",
		},
		Platform: platform.Config{
			BaseURL:     platform.DefaultGraphURL,
			MaxPosts:    300,
			MaxComments: 800,
			MaxReplies:  100,
			Timeout:     15 * time.Second,
		},
		LLM: llm.Config{
			Provider:         llm.ProviderOpenAI,
			OpenAIBaseURL:    llm.DefaultOpenAIBaseURL,
			OpenAIEmbedModel: llm.DefaultOpenAIEmbedModel,
			OpenAITextModel:  llm.DefaultOpenAITextModel,
			GenAIEmbedModel:  llm.DefaultGenAIEmbedModel,
			GenAITextModel:   llm.DefaultGenAITextModel,
		},
		Notifier: notifier.Config{Kind: notifier.KindDiscord},
		Proposal: services.DefaultProposalConfig(),
		Scan:     services.DefaultScanConfig(),
		Outbox:   services.DefaultOutboxConfig(),
		Schedule: ScheduleConfig{
			ScanSchedules: []string{"0 6 * * *", "0 12 * * *", "0 18 * * *"},
			Timezone:      "Asia/Bangkok",
			OutboxTick:    "@every 1m",
			ScanTimeout:   10 * time.Minute,
			TickTimeout:   time.Minute,
		},
		Bank: BankConfig{
			Path:            "data/answer_bank.json",
			VectorCache:     VectorCacheDB,
			VectorCachePath: "data/answer_vectors.json",
		},
	}
}

// Load layers defaults, an optional YAML file and the environment. A .env file
// in the working directory is loaded first when present. path may be empty, in
// which case REPLYQUEUE_CONFIG is consulted.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("DB_DRIVER", &c.Database.Driver)
	envString("DATABASE_URL", &c.Database.URL)
	envString("DB_HOST", &c.Database.Host)
	envString("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Name)
	envString("DB_SSL_MODE", &c.Database.SSLMode)
	envString("DB_SQLITE_PATH", &c.Database.SQLitePath)

	envString("FB_PAGE_ID", &c.Platform.PageID)
	envString("FB_PAGE_ACCESS_TOKEN", &c.Platform.AccessToken)
	envString("FB_GRAPH_URL", &c.Platform.BaseURL)

	envString("LLM_PROVIDER", &c.LLM.Provider)
	envString("OPENAI_API_KEY", &c.LLM.OpenAIKey)
	envString("OPENAI_BASE_URL", &c.LLM.OpenAIBaseURL)
	envString("OPENAI_EMBED_MODEL", &c.LLM.OpenAIEmbedModel)
	envString("OPENAI_TEXT_MODEL", &c.LLM.OpenAITextModel)
	envString("GENAI_API_KEY", &c.LLM.GenAIKey)
	envString("GENAI_EMBED_MODEL", &c.LLM.GenAIEmbedModel)
	envString("GENAI_TEXT_MODEL", &c.LLM.GenAITextModel)

	envString("NOTIFIER", &c.Notifier.Kind)
	envString("DISCORD_WEBHOOK_URL", &c.Notifier.DiscordWebhookURL)
	envString("TELEGRAM_BOT_TOKEN", &c.Notifier.TelegramBotToken)
	envString("TELEGRAM_CHAT_ID", &c.Notifier.TelegramChatID)

	envString("PORT", &c.Server.Port)
	envString("SERVER_PORT", &c.Server.Port)
	envString("APP_BASE_URL", &c.Server.BaseURL)
	envString("ADMIN_APPROVE_TOKEN", &c.Server.AdminToken)

	envString("BANK_PATH", &c.Bank.Path)
	envString("VECTOR_CACHE", &c.Bank.VectorCache)
	envString("VECTOR_CACHE_PATH", &c.Bank.VectorCachePath)

	envList("RISKY_KEYWORDS", &c.Proposal.RiskyKeywords)
	envList("SCAN_SCHEDULES", &c.Schedule.ScanSchedules)
	envString("SCAN_TIMEZONE", &c.Schedule.Timezone)
	envString("OUTBOX_TICK", &c.Schedule.OutboxTick)

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_BATCH_SIZE", &c.Scan.MaxBatchSize},
		{"POST_LOOKBACK_DAYS", &c.Scan.PostLookbackDays},
		{"MAX_COMMENTS_PER_POST", &c.Platform.MaxComments},
		{"REWRITE_PERCENT", &c.Proposal.RewritePercent},
		{"MAX_REPLY_CHARS", &c.Proposal.MaxReplyChars},
		{"MIN_IMPACT_SCORE", &c.Proposal.MinImpactScore},
		{"SEND_MIN_DELAY_SEC", &c.Outbox.MinDelaySec},
		{"SEND_MAX_DELAY_SEC", &c.Outbox.MaxDelaySec},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.dst); err != nil {
			return err
		}
	}
	return envBool("DRY_RUN", &c.Outbox.DryRun)
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	c.Notifier.Kind = strings.ToLower(c.Notifier.Kind)
	c.Bank.VectorCache = strings.ToLower(c.Bank.VectorCache)
}

// Validate reports the first missing or inconsistent setting needed to run the service.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Platform.PageID == "" {
		return missing("FB_PAGE_ID")
	}
	if c.Platform.AccessToken == "" {
		return missing("FB_PAGE_ACCESS_TOKEN")
	}

	switch c.LLM.Provider {
	case llm.ProviderOpenAI:
		if c.LLM.OpenAIKey == "" {
			return missing("OPENAI_API_KEY")
		}
	case llm.ProviderGenAI:
		if c.LLM.GenAIKey == "" {
			return missing("GENAI_API_KEY")
		}
	default:
		return invalid("LLM_PROVIDER", "unknown provider %q", c.LLM.Provider)
	}

	switch c.Notifier.Kind {
	case notifier.KindDiscord:
		if c.Notifier.DiscordWebhookURL == "" {
			return missing("DISCORD_WEBHOOK_URL")
		}
	case notifier.KindTelegram:
		if c.Notifier.TelegramBotToken == "" {
			return missing("TELEGRAM_BOT_TOKEN")
		}
		if c.Notifier.TelegramChatID == "" {
			return missing("TELEGRAM_CHAT_ID")
		}
	case notifier.KindNone:
	default:
		return invalid("NOTIFIER", "unknown notifier %q", c.Notifier.Kind)
	}

	if c.Server.AdminToken == "" {
		return missing("ADMIN_APPROVE_TOKEN")
	}
	if c.Server.BaseURL == "" {
		return missing("APP_BASE_URL")
	}

	switch c.Bank.VectorCache {
	case VectorCacheDB:
	case VectorCacheFile:
		if c.Bank.VectorCachePath == "" {
			return missing("VECTOR_CACHE_PATH")
		}
	default:
		return invalid("VECTOR_CACHE", "must be %q or %q", VectorCacheDB, VectorCacheFile)
	}

	if c.Proposal.RewritePercent < 0 || c.Proposal.RewritePercent > 100 {
		return invalid("REWRITE_PERCENT", "must be between 0 and 100")
	}
	if c.Scan.MaxBatchSize <= 0 {
		return invalid("MAX_BATCH_SIZE", "must be positive")
	}
	if c.Outbox.MinDelaySec > c.Outbox.MaxDelaySec {
		return invalid("SEND_MIN_DELAY_SEC", "must not exceed SEND_MAX_DELAY_SEC")
	}
	if len(c.Schedule.ScanSchedules) == 0 {
		return missing("SCAN_SCHEDULES")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return invalid("SCAN_TIMEZONE", "%v", err)
	}
	return nil
}

// ValidateDatabase checks only what the migrate command needs.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case db.DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return missing("DATABASE_URL")
		}
	case db.DriverSQLite:
	default:
		return invalid("DB_DRIVER", "unsupported driver %q", c.Database.Driver)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

func missing(key string) error {
	return &apperrors.ErrConfig{Key: key, Message: "is required"}
}

func invalid(key, format string, args ...any) error {
	return &apperrors.ErrConfig{Key: key, Message: fmt.Sprintf(format, args...)}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return invalid(key, "not an integer: %q", v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return invalid(key, "not a boolean: %q", v)
	}
	*dst = b
	return nil
}

// envList splits a comma separated value, dropping blanks.
func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
