package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Edgar       EdgarConfig     `toml:"edgar"`
	Quotes      QuotesConfig    `toml:"quotes"`
	Notify      NotifyConfig    `toml:"notify"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Evaluator   EvaluatorConfig `toml:"evaluator"`
	Watchlist   WatchlistConfig `toml:"watchlist"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=0,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Type   string       `toml:"type"` // only "badger" is supported
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level republished on the event bus
}

// EdgarConfig configures the SEC EDGAR fetch collaborator. The SEC
// requires every automated client to identify itself; UserAgent must
// carry a contact (e.g. "caveo/1.0 ops@example.com") or startup fails
// validation.
type EdgarConfig struct {
	UserAgent      string        `toml:"user_agent" validate:"required"`
	DataBaseURL    string        `toml:"data_base_url"`    // companyfacts + submissions host
	ArchiveBaseURL string        `toml:"archive_base_url"` // filing archive host
	RateLimit      int           `toml:"rate_limit" validate:"min=1,max=10"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	LookbackDays   int           `toml:"lookback_days" validate:"min=1"` // 8-K scan window
	MaxFilings     int           `toml:"max_filings" validate:"min=1"`   // cap per scan
}

// QuotesConfig configures the Stooq daily-quote collaborator used for
// dashboard price overlays.
type QuotesConfig struct {
	Enabled        bool          `toml:"enabled"`
	BaseURL        string        `toml:"base_url"`
	RateLimit      int           `toml:"rate_limit" validate:"min=1,max=10"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// NotifyConfig configures the outbound chat notifier. An empty webhook
// URL disables notification silently.
type NotifyConfig struct {
	WebhookURL     string        `toml:"webhook_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type SchedulerConfig struct {
	Enabled          bool   `toml:"enabled"`
	EvaluateSchedule string `toml:"evaluate_schedule"` // cron expression for the evaluation cycle
	ExportSchedule   string `toml:"export_schedule"`   // cron expression for the dashboard export
}

// EvaluatorConfig bounds the batch run. Concurrency limits parallel
// company evaluations; per-company work is still serialized by key.
type EvaluatorConfig struct {
	Concurrency int `toml:"concurrency" validate:"min=1,max=32"`
}

type WatchlistConfig struct {
	Path string `toml:"path"` // companies.yaml location
}

type DashboardConfig struct {
	Path       string `toml:"path"`                            // dashboard.json output location
	EventLimit int    `toml:"event_limit" validate:"min=1"`    // recent events included in the payload
	QuoteDays  int    `toml:"quote_days" validate:"min=5"`     // trailing calendar days of quotes fetched
	QuoteRows  int    `toml:"quote_rows" validate:"min=2"`     // fallback row count when date filter yields too few
	StaleAfter string `toml:"stale_after" validate:"required"` // duration after which a state row is flagged stale
}

// WebSocketConfig contains configuration for the event stream endpoint
type WebSocketConfig struct {
	MinLevel      string   `toml:"min_level"`      // Minimum log level to broadcast ("debug", "info", "warn", "error")
	AllowedEvents []string `toml:"allowed_events"` // Whitelist of event types to broadcast. Empty allows all.
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in caveo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "warn",
		},
		Edgar: EdgarConfig{
			UserAgent:      "", // must be provided; the SEC rejects anonymous clients
			DataBaseURL:    "https://data.sec.gov",
			ArchiveBaseURL: "https://www.sec.gov",
			RateLimit:      4, // stays under the published 10 req/s guideline
			RequestTimeout: 30 * time.Second,
			LookbackDays:   90,
			MaxFilings:     50,
		},
		Quotes: QuotesConfig{
			Enabled:        true,
			BaseURL:        "https://stooq.com",
			RateLimit:      2,
			RequestTimeout: 20 * time.Second,
		},
		Notify: NotifyConfig{
			WebhookURL:     "",
			RequestTimeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			EvaluateSchedule: "0 7 * * *",  // daily, after overnight filings settle
			ExportSchedule:   "30 7 * * *", // dashboard refresh after the evaluation cycle
		},
		Evaluator: EvaluatorConfig{
			Concurrency: 4,
		},
		Watchlist: WatchlistConfig{
			Path: "companies.yaml",
		},
		Dashboard: DashboardConfig{
			Path:       "dashboard.json",
			EventLimit: 50,
			QuoteDays:  35,
			QuoteRows:  22,
			StaleAfter: "72h",
		},
		WebSocket: WebSocketConfig{
			MinLevel:      "warn",
			AllowedEvents: []string{},
		},
	}
}

// LoadFromFile loads configuration from a single file path.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: CAVEO_ENV, fallback: GO_ENV)
	if env := os.Getenv("CAVEO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("CAVEO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CAVEO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("CAVEO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("CAVEO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("CAVEO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("CAVEO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("CAVEO_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// EDGAR configuration. SEC_USER_AGENT is the conventional variable
	// name for the identifying header; the CAVEO_ form takes priority.
	if userAgent := os.Getenv("SEC_USER_AGENT"); userAgent != "" {
		config.Edgar.UserAgent = userAgent
	}
	if userAgent := os.Getenv("CAVEO_EDGAR_USER_AGENT"); userAgent != "" {
		config.Edgar.UserAgent = userAgent
	}
	if rateLimit := os.Getenv("CAVEO_EDGAR_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Edgar.RateLimit = rl
		}
	}
	if timeout := os.Getenv("CAVEO_EDGAR_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Edgar.RequestTimeout = d
		}
	}
	if lookback := os.Getenv("CAVEO_EDGAR_LOOKBACK_DAYS"); lookback != "" {
		if days, err := strconv.Atoi(lookback); err == nil {
			config.Edgar.LookbackDays = days
		}
	}

	// Quotes configuration
	if enabled := os.Getenv("CAVEO_QUOTES_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Quotes.Enabled = e
		}
	}

	// Notify configuration. SLACK_WEBHOOK_URL is the conventional name;
	// the CAVEO_ form takes priority.
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		config.Notify.WebhookURL = webhook
	}
	if webhook := os.Getenv("CAVEO_NOTIFY_WEBHOOK_URL"); webhook != "" {
		config.Notify.WebhookURL = webhook
	}

	// Scheduler configuration
	if enabled := os.Getenv("CAVEO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("CAVEO_SCHEDULER_EVALUATE_SCHEDULE"); schedule != "" {
		config.Scheduler.EvaluateSchedule = schedule
	}
	if schedule := os.Getenv("CAVEO_SCHEDULER_EXPORT_SCHEDULE"); schedule != "" {
		config.Scheduler.ExportSchedule = schedule
	}

	// Evaluator configuration
	if concurrency := os.Getenv("CAVEO_EVALUATOR_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Evaluator.Concurrency = c
		}
	}

	// Watchlist configuration
	if path := os.Getenv("CAVEO_WATCHLIST_PATH"); path != "" {
		config.Watchlist.Path = path
	}

	// Dashboard configuration
	if path := os.Getenv("CAVEO_DASHBOARD_PATH"); path != "" {
		config.Dashboard.Path = path
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the resolved configuration using go-playground/validator
// plus the semantic checks struct tags cannot express. edgar.user_agent is
// required because the SEC rejects anonymous clients.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.Type != "" && c.Storage.Type != "badger" {
		return fmt.Errorf("invalid configuration: storage.type %q is not supported (only 'badger')", c.Storage.Type)
	}
	if _, err := time.ParseDuration(c.Dashboard.StaleAfter); err != nil {
		return fmt.Errorf("invalid configuration: dashboard.stale_after: %w", err)
	}
	return nil
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateSchedule validates a cron schedule expression and ensures a
// minimum 5-minute interval. Descriptor forms (@daily, @every 6h) are
// accepted as-is.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	if strings.HasPrefix(schedule, "@") {
		return nil
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
