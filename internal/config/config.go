package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsDigest/internal/domain"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "NEWS_DIGEST_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	interestsEnv       = "USER_INTERESTS"
	apiAddrEnv         = "API_ADDR"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	sendGridAPIKeyEnv  = "SENDGRID_API_KEY"
	emailFromEnv       = "EMAIL_FROM"
	emailRecipientsEnv = "EMAIL_RECIPIENTS"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	databaseDSNEnv     = "DATABASE_DSN"
)

const defaultInterests = `Topics of interest (in order of priority):
1. AI news, especially in education and model updates
2. Important technological innovations
3. News that would help a software engineer and product manager be more productive
4. Major scandals or security issues in tech

Please ignore news about investments, business funding, or other less relevant topics.`

// Site kinds understood by the source factory.
const (
	KindTechCrunch = "techcrunch"
	KindCNN        = "cnn"
	KindArxiv      = "arxiv"
	KindHackerNews = "hackernews"
	KindFeed       = "feed"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Digest    DigestConfig    `yaml:"digest"`
	Fetch     FetchConfig     `yaml:"fetch"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Email     EmailConfig     `yaml:"email"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Sites     []SiteConfig    `yaml:"sites"`
}

// LoggingConfig selects the log level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when the digest should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// DigestConfig is the default request a scheduled run makes.
type DigestConfig struct {
	Interests        string   `yaml:"interests"`
	Sources          []string `yaml:"sources"`
	Categories       []string `yaml:"categories"`
	PerCategoryLimit int      `yaml:"perCategoryLimit"`
	MaxSelected      int      `yaml:"maxSelected"`
}

// FetchConfig bounds network work.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	CallTimeout   time.Duration `yaml:"callTimeout"`
	Workers       int           `yaml:"workers"`
	UserAgent     string        `yaml:"userAgent"`
	RespectRobots bool          `yaml:"respectRobots"`
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	APIKey     string `yaml:"apiKey"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"baseUrl"`
	MaxRetries int    `yaml:"maxRetries"`
}

// Enabled reports whether an API key is configured.
func (o OpenAIConfig) Enabled() bool {
	return o.APIKey != ""
}

// EmailConfig wires SendGrid delivery.
type EmailConfig struct {
	APIKey     string   `yaml:"apiKey"`
	Host       string   `yaml:"host"`
	From       string   `yaml:"from"`
	FromName   string   `yaml:"fromName"`
	Recipients []string `yaml:"recipients"`
}

// Enabled reports whether e-mail delivery has everything it needs.
func (e EmailConfig) Enabled() bool {
	return e.APIKey != "" && e.From != "" && len(e.Recipients) > 0
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether Telegram delivery is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// DatabaseConfig describes Postgres connection details. An empty DSN disables run history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// SiteConfig describes a single news source.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	BaseURL    string            `yaml:"baseUrl"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig maps a category token to a listing path or feed URL.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load applies defaults, then the YAML file named by NEWS_DIGEST_CONFIG, then environment overrides.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c Config) Validate() error {
	seen := map[string]struct{}{}
	for _, site := range c.Sites {
		name := strings.TrimSpace(site.Name)
		if name == "" {
			return &domain.ConfigurationError{Reason: "site without a name"}
		}
		if _, dup := seen[name]; dup {
			return &domain.ConfigurationError{SourceID: name, Reason: "duplicate site name"}
		}
		seen[name] = struct{}{}

		switch site.Kind {
		case KindTechCrunch, KindCNN, KindArxiv, KindHackerNews:
		case KindFeed:
			if len(site.Categories) == 0 {
				return &domain.ConfigurationError{SourceID: name, Reason: "feed site needs at least one category"}
			}
		default:
			return &domain.ConfigurationError{SourceID: name, Reason: fmt.Sprintf("unknown kind %q", site.Kind)}
		}
	}

	if c.Fetch.Workers < 0 {
		return &domain.ConfigurationError{Reason: "fetch.workers must not be negative"}
	}
	if c.Digest.PerCategoryLimit < 0 || c.Digest.MaxSelected < 0 {
		return &domain.ConfigurationError{Reason: "digest limits must not be negative"}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(interestsEnv); v != "" {
		c.Digest.Interests = v
	}

	if v := os.Getenv(apiAddrEnv); v != "" {
		c.API.Addr = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(sendGridAPIKeyEnv); v != "" {
		c.Email.APIKey = v
	}

	if v := os.Getenv(emailFromEnv); v != "" {
		c.Email.From = v
	}

	if v := os.Getenv(emailRecipientsEnv); v != "" {
		c.Email.Recipients = splitList(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler timezone %s: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Digest: DigestConfig{
			Interests:        defaultInterests,
			Categories:       []string{"latest", "ai", "technology"},
			PerCategoryLimit: 20,
			MaxSelected:      10,
		},
		Fetch: FetchConfig{
			Timeout:     20 * time.Second,
			CallTimeout: 30 * time.Second,
			Workers:     4,
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o", MaxRetries: 3},
		Email:  EmailConfig{Host: "https://api.sendgrid.com", FromName: "News Digest"},
		API:    APIConfig{Addr: ":8080"},
		Sites: []SiteConfig{
			{Name: "techcrunch", Kind: KindTechCrunch},
			{Name: "cnn", Kind: KindCNN},
			{Name: "arxiv", Kind: KindArxiv},
			{Name: "hackernews", Kind: KindHackerNews},
		},
	}
}
