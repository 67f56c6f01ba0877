// Package config builds the single Config value a run is wired from:
// defaults, then an optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "NEWSPOSTER_CONFIG"

type Config struct {
	// News source
	Fetcher         string // newsapi | rss
	NewsAPIKey      string
	NewsAPIURL      string
	Language        string // en | es
	Domains         []string
	Since           time.Duration
	FeedsConfigPath string
	RSSFallback     bool

	// Generation
	Rewriter              string // gemini | openai
	GeminiAPIKey          string
	GeminiModel           string
	OpenAIAPIKey          string
	OpenAIModel           string
	MaxGenerationRequests int // per run, 0 = unlimited
	StylePrompt           string

	// Publishing
	Publisher        string // linkedin | telegram
	LinkedInToken    string
	LinkedInPersonID string
	TelegramToken    string
	TelegramChatID   string
	UnsplashKey      string

	// Ledger
	LedgerBackend       string // file | sqlite | postgres
	LedgerDir           string
	SQLitePath          string
	DatabaseURL         string
	RetentionDays       int
	SimilarityThreshold float64

	// Selection policy
	TargetCount    int
	PRegional      float64
	PollRatio      float64
	CarouselRule   string // first | top-rank
	EnableCarousel bool
	EnableImages   bool
	RandomSeed     int64 // 0 = seeded from the clock
	Topics         TopicsConfig
	Keywords       KeywordsConfig

	// App settings
	Debug            bool
	DryRun           bool
	ItemTimeout      time.Duration
	RequestTimeout   time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	EnableMonitoring bool
	MonitoringPort   string
}

// TopicsConfig lists the query topics grouped in blocks. Blocks are indexed
// by weekday (Monday = 0) on work days.
type TopicsConfig struct {
	Regional []string     `yaml:"regional"`
	Blocks   []TopicBlock `yaml:"blocks"`
	Workdays []string     `yaml:"workdays"`
}

type TopicBlock struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

// KeywordsConfig feeds the scorer. The two lists must not overlap.
type KeywordsConfig struct {
	Controversy []string `yaml:"controversy"`
	Interest    []string `yaml:"interest"`
}

// fileConfig is the YAML file layout; only static data lives there.
type fileConfig struct {
	Topics      TopicsConfig   `yaml:"topics"`
	Keywords    KeywordsConfig `yaml:"keywords"`
	StylePrompt string         `yaml:"style_prompt"`
}

func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	return cfg, cfg.Validate()
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Fetcher:               "newsapi",
		NewsAPIURL:            "https://newsapi.org/v2/everything",
		Language:              "es",
		Since:                 48 * time.Hour,
		FeedsConfigPath:       "configs/feeds.yaml",
		Rewriter:              "gemini",
		GeminiModel:           "gemini-1.5-flash",
		OpenAIModel:           "gpt-3.5-turbo",
		MaxGenerationRequests: 12,
		StylePrompt:           defaultStylePrompt,
		Publisher:             "linkedin",
		LedgerBackend:         "file",
		LedgerDir:             ".",
		SQLitePath:            "ledger.db",
		RetentionDays:         7,
		SimilarityThreshold:   0.8,
		TargetCount:           5,
		PRegional:             0.6,
		PollRatio:             0.5,
		CarouselRule:          "first",
		EnableCarousel:        true,
		ItemTimeout:           60 * time.Second,
		RequestTimeout:        30 * time.Second,
		RetryAttempts:         3,
		RetryDelay:            2 * time.Second,
		MonitoringPort:        "8080",
		Topics:                defaultTopics(),
		Keywords:              defaultKeywords(),
	}
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(fc.Topics.Regional) > 0 {
		c.Topics.Regional = fc.Topics.Regional
	}
	if len(fc.Topics.Blocks) > 0 {
		c.Topics.Blocks = fc.Topics.Blocks
	}
	if len(fc.Topics.Workdays) > 0 {
		c.Topics.Workdays = fc.Topics.Workdays
	}
	if len(fc.Keywords.Controversy) > 0 {
		c.Keywords.Controversy = fc.Keywords.Controversy
	}
	if len(fc.Keywords.Interest) > 0 {
		c.Keywords.Interest = fc.Keywords.Interest
	}
	if s := strings.TrimSpace(fc.StylePrompt); s != "" {
		c.StylePrompt = s
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Fetcher = getEnvOrDefault("FETCHER", c.Fetcher)
	c.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	c.NewsAPIURL = getEnvOrDefault("NEWSAPI_URL", c.NewsAPIURL)
	c.Language = getEnvOrDefault("NEWS_LANGUAGE", c.Language)
	if v := os.Getenv("NEWS_DOMAINS"); v != "" {
		c.Domains = splitList(v)
	}
	if hours := getEnvIntOrDefault("NEWS_SINCE_HOURS", 0); hours > 0 {
		c.Since = time.Duration(hours) * time.Hour
	}
	c.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", c.FeedsConfigPath)
	c.RSSFallback = getEnvBoolOrDefault("RSS_FALLBACK", c.RSSFallback)

	c.Rewriter = getEnvOrDefault("REWRITER", c.Rewriter)
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.OpenAIModel)
	if v := os.Getenv("MAX_GENERATION_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			c.MaxGenerationRequests = val
		}
	}

	c.Publisher = getEnvOrDefault("PUBLISHER", c.Publisher)
	c.LinkedInToken = os.Getenv("LINKEDIN_ACCESS_TOKEN")
	c.LinkedInPersonID = os.Getenv("LINKEDIN_PERSON_ID")
	c.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	c.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	c.UnsplashKey = os.Getenv("UNSPLASH_ACCESS_KEY")

	c.LedgerBackend = getEnvOrDefault("LEDGER_BACKEND", c.LedgerBackend)
	c.LedgerDir = getEnvOrDefault("LEDGER_DIR", c.LedgerDir)
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.RetentionDays = getEnvIntOrDefault("RETENTION_DAYS", c.RetentionDays)
	c.SimilarityThreshold = getEnvFloatOrDefault("SIMILARITY_THRESHOLD", c.SimilarityThreshold)

	c.TargetCount = getEnvIntOrDefault("TARGET_COUNT", c.TargetCount)
	c.PRegional = getEnvFloatOrDefault("P_REGIONAL", c.PRegional)
	c.PollRatio = getEnvFloatOrDefault("POLL_RATIO", c.PollRatio)
	c.CarouselRule = getEnvOrDefault("CAROUSEL_RULE", c.CarouselRule)
	c.EnableCarousel = getEnvBoolOrDefault("ENABLE_CAROUSEL", c.EnableCarousel)
	c.EnableImages = getEnvBoolOrDefault("ENABLE_IMAGES", c.EnableImages)
	if v := os.Getenv("RANDOM_SEED"); v != "" {
		if val, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RandomSeed = val
		}
	}

	c.Debug = getEnvBoolOrDefault("DEBUG", c.Debug)
	c.DryRun = getEnvBoolOrDefault("DRY_RUN", c.DryRun)
	c.ItemTimeout = getEnvDurationOrDefault("ITEM_TIMEOUT", c.ItemTimeout)
	c.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", c.RetryDelay)
	c.EnableMonitoring = getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", c.EnableMonitoring)
	c.MonitoringPort = getEnvOrDefault("MONITORING_PORT", c.MonitoringPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring invalid number", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("ignoring invalid boolean", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", value)
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Retention is the ledger window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Workdays resolves the configured day names. Unknown names are an error.
func (c *Config) Workdays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(c.Topics.Workdays))
	for _, name := range c.Topics.Workdays {
		d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown workday %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
	"sunday": time.Sunday, "domingo": time.Sunday,
}

func (c *Config) Validate() error {
	switch c.Fetcher {
	case "newsapi":
		if c.NewsAPIKey == "" {
			return fmt.Errorf("NEWSAPI_KEY is required")
		}
	case "rss":
	default:
		return fmt.Errorf("FETCHER must be 'newsapi' or 'rss'")
	}
	if c.Language != "en" && c.Language != "es" {
		return fmt.Errorf("NEWS_LANGUAGE must be 'en' or 'es'")
	}

	switch c.Rewriter {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("REWRITER must be 'gemini' or 'openai'")
	}

	switch c.Publisher {
	case "linkedin":
		if !c.DryRun && (c.LinkedInToken == "" || c.LinkedInPersonID == "") {
			return fmt.Errorf("LINKEDIN_ACCESS_TOKEN and LINKEDIN_PERSON_ID are required")
		}
	case "telegram":
		if !c.DryRun && (c.TelegramToken == "" || c.TelegramChatID == "") {
			return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are required")
		}
	default:
		return fmt.Errorf("PUBLISHER must be 'linkedin' or 'telegram'")
	}

	switch c.LedgerBackend {
	case "file", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be 'file', 'sqlite' or 'postgres'")
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("TARGET_COUNT must be positive")
	}
	if c.PRegional < 0 || c.PRegional > 1 {
		return fmt.Errorf("P_REGIONAL must be in [0, 1]")
	}
	if c.PollRatio < 0 || c.PollRatio > 1 {
		return fmt.Errorf("POLL_RATIO must be in [0, 1]")
	}
	if c.CarouselRule != "first" && c.CarouselRule != "top-rank" {
		return fmt.Errorf("CAROUSEL_RULE must be 'first' or 'top-rank'")
	}
	if len(c.Topics.Blocks) == 0 {
		return fmt.Errorf("at least one topic block is required")
	}
	if _, err := c.Workdays(); err != nil {
		return err
	}
	return nil
}
