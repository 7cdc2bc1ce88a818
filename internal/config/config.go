package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "Europe/Amsterdam"
	configPathEnv     = "CLIPPINGS_CONFIG"
	pureAPIKeyEnv     = "PURE_API_KEY"
	pureBaseURLEnv    = "PURE_BASE_URL"
	ledgerDSNEnv      = "LEDGER_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Pure          PureConfig          `yaml:"pure"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Organizations OrganizationConfig  `yaml:"organizations"`
	Inputs        []InputConfig       `yaml:"inputs"`
	Filters       FilterConfig        `yaml:"filters"`
	URLResolution URLResolutionConfig `yaml:"urlResolution"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Output        OutputConfig        `yaml:"output"`
	ChatGPT       ChatGPTConfig       `yaml:"chatgpt"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Workers       int                 `yaml:"workers"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PureConfig describes the research-information system API shared by the
// person directory, the organisation lookup and the press-media store.
type PureConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"maxRetries"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	EmployeeIDType    string        `yaml:"employeeIdType"`
}

// ExtractionConfig tunes the name candidate heuristics.
type ExtractionConfig struct {
	PersonsLabel    string   `yaml:"personsLabel"`
	UnitLabel       string   `yaml:"unitLabel"`
	HighlightColor  string   `yaml:"highlightColor"`
	Blacklist       []string `yaml:"blacklist"`
	UnwantedTerms   []string `yaml:"unwantedTerms"`
	ValidFaculties  []string `yaml:"validFaculties"`
	MaxHighlightRun int      `yaml:"maxHighlightRun"`
}

// OrganizationConfig drives organisation-type classification.
type OrganizationConfig struct {
	ResearchMarker     string   `yaml:"researchMarker"`
	DepartmentPrefixes []string `yaml:"departmentPrefixes"`
	FallbackOrgUUID    string   `yaml:"fallbackOrgUuid"`
}

// InputConfig describes one digest location and the scanner that reads it.
type InputConfig struct {
	Name    string `yaml:"name"`
	Scanner string `yaml:"scanner"`
	Glob    string `yaml:"glob"`
	Faculty string `yaml:"faculty"`
}

// FilterConfig points at the media filter workbook.
type FilterConfig struct {
	Workbook string `yaml:"workbook"`
}

// URLResolutionConfig bounds the URL resolution worker pool.
type URLResolutionConfig struct {
	Disabled     bool              `yaml:"disabled"`
	Workers      int               `yaml:"workers"`
	Timeout      time.Duration     `yaml:"timeout"`
	SearchURL    string            `yaml:"searchUrl"`
	FallbackURL  string            `yaml:"fallbackUrl"`
	BlockedHosts []string          `yaml:"blockedHosts"`
	SourceMap    map[string]string `yaml:"sourceMap"`
}

// LedgerConfig selects the SQL ledger backend.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// OutputConfig controls where XML and reports are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	ReportDir string `yaml:"reportDir"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIURL   string `yaml:"apiUrl"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines how often watch mode reruns and in which timezone.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads YAML configuration from path (or the CLIPPINGS_CONFIG env var
// when path is empty) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(pureAPIKeyEnv); v != "" {
		c.Pure.APIKey = v
	}
	if v := os.Getenv(pureBaseURLEnv); v != "" {
		c.Pure.BaseURL = v
	}
	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Pure.BaseURL != "" {
		base.Pure.BaseURL = override.Pure.BaseURL
	}
	if override.Pure.APIKey != "" {
		base.Pure.APIKey = override.Pure.APIKey
	}
	if override.Pure.Timeout > 0 {
		base.Pure.Timeout = override.Pure.Timeout
	}
	if override.Pure.MaxRetries > 0 {
		base.Pure.MaxRetries = override.Pure.MaxRetries
	}
	if override.Pure.RequestsPerSecond > 0 {
		base.Pure.RequestsPerSecond = override.Pure.RequestsPerSecond
	}
	if override.Pure.EmployeeIDType != "" {
		base.Pure.EmployeeIDType = override.Pure.EmployeeIDType
	}

	if override.Extraction.PersonsLabel != "" {
		base.Extraction.PersonsLabel = override.Extraction.PersonsLabel
	}
	if override.Extraction.UnitLabel != "" {
		base.Extraction.UnitLabel = override.Extraction.UnitLabel
	}
	if override.Extraction.HighlightColor != "" {
		base.Extraction.HighlightColor = override.Extraction.HighlightColor
	}
	if override.Extraction.Blacklist != nil {
		base.Extraction.Blacklist = override.Extraction.Blacklist
	}
	if override.Extraction.UnwantedTerms != nil {
		base.Extraction.UnwantedTerms = override.Extraction.UnwantedTerms
	}
	if override.Extraction.ValidFaculties != nil {
		base.Extraction.ValidFaculties = override.Extraction.ValidFaculties
	}
	if override.Extraction.MaxHighlightRun > 0 {
		base.Extraction.MaxHighlightRun = override.Extraction.MaxHighlightRun
	}

	if override.Organizations.ResearchMarker != "" {
		base.Organizations.ResearchMarker = override.Organizations.ResearchMarker
	}
	if override.Organizations.DepartmentPrefixes != nil {
		base.Organizations.DepartmentPrefixes = override.Organizations.DepartmentPrefixes
	}
	if override.Organizations.FallbackOrgUUID != "" {
		base.Organizations.FallbackOrgUUID = override.Organizations.FallbackOrgUUID
	}

	if len(override.Inputs) > 0 {
		base.Inputs = override.Inputs
	}

	if override.Filters.Workbook != "" {
		base.Filters.Workbook = override.Filters.Workbook
	}

	if override.URLResolution.Disabled {
		base.URLResolution.Disabled = true
	}
	if override.URLResolution.Workers > 0 {
		base.URLResolution.Workers = override.URLResolution.Workers
	}
	if override.URLResolution.Timeout > 0 {
		base.URLResolution.Timeout = override.URLResolution.Timeout
	}
	if override.URLResolution.SearchURL != "" {
		base.URLResolution.SearchURL = override.URLResolution.SearchURL
	}
	if override.URLResolution.FallbackURL != "" {
		base.URLResolution.FallbackURL = override.URLResolution.FallbackURL
	}
	if len(override.URLResolution.BlockedHosts) > 0 {
		base.URLResolution.BlockedHosts = override.URLResolution.BlockedHosts
	}
	for k, v := range override.URLResolution.SourceMap {
		if base.URLResolution.SourceMap == nil {
			base.URLResolution.SourceMap = map[string]string{}
		}
		base.URLResolution.SourceMap[k] = v
	}

	if override.Ledger.Driver != "" {
		base.Ledger.Driver = override.Ledger.Driver
	}
	if override.Ledger.DSN != "" {
		base.Ledger.DSN = override.Ledger.DSN
	}

	if override.Output.Directory != "" {
		base.Output.Directory = override.Output.Directory
	}
	if override.Output.ReportDir != "" {
		base.Output.ReportDir = override.Output.ReportDir
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Workers > 0 {
		base.Workers = override.Workers
	}

	return base
}

// Default returns the built-in configuration without file or env input.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pure: PureConfig{
			BaseURL:           "https://staging.research-portal.uu.nl/ws/api/",
			Timeout:           15 * time.Second,
			MaxRetries:        5,
			RequestsPerSecond: 5,
			EmployeeIDType:    "Employee ID",
		},
		Extraction: ExtractionConfig{
			PersonsLabel:   "Personen",
			UnitLabel:      "Faculteit",
			HighlightColor: "#88C53E",
			Blacklist:      []string{"Anton Pijpers", "David Beverborg"},
			UnwantedTerms: []string{
				`\bUtrecht University\b`,
				`\bUniversiteit Utrecht\b`,
				`\bUniversiteit\b`,
				`\bUtrecht\b`,
			},
			ValidFaculties: []string{
				"Faculteit Bètawetenschappen", "Faculteit Betawetenschappen", "Faculteit Diergeneeskunde",
				"Faculteit Geesteswetenschappen", "Faculteit Geowetenschappen", "Faculteit REBO",
				"Faculteit Sociale Wetenschappen", "UMC Utrecht",
			},
			MaxHighlightRun: 6,
		},
		Organizations: OrganizationConfig{
			ResearchMarker:     "r",
			DepartmentPrefixes: []string{"1"},
			FallbackOrgUUID:    "cdd6493c-70ab-40f8-8246-b8be95f27e71",
		},
		Inputs: []InputConfig{
			{Name: "knipsel", Scanner: "lexisnexis", Glob: "knipsel/*.html"},
			{Name: "knipsel-mail", Scanner: "lexisnexis", Glob: "knipsel/*.eml"},
		},
		Filters: FilterConfig{Workbook: "files/Filter_media.xlsx"},
		URLResolution: URLResolutionConfig{
			Workers:      10,
			Timeout:      10 * time.Second,
			SearchURL:    "https://duckduckgo.com/html/",
			FallbackURL:  "https://www.google.com/search",
			BlockedHosts: []string{"lexisnexis.com"},
			SourceMap: map[string]string{
				"fd.nl":                 "https://fd.nl",
				"volkskrant.nl":         "https://www.volkskrant.nl",
				"ad.nl":                 "https://www.ad.nl",
				"tech daily news":       "https://www.techdailynews.com",
				"nature geoscience":     "https://www.nature.com/ngeo",
				"ncbi":                  "https://www.ncbi.nlm.nih.gov",
				"open universiteit":     "https://www.ou.nl",
				"nscr":                  "https://nscr.nl",
				"movisie.nl":            "https://www.movisie.nl",
				"university world news": "https://www.universityworldnews.com",
				"annekeschrijft.com":    "https://annekeschrijft.com",
				"po-raad.nl":            "https://www.poraad.nl",
			},
		},
		Ledger: LedgerConfig{Driver: "sqlite", DSN: "file:clippings.db"},
		Output: OutputConfig{Directory: "output", ReportDir: "logs"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4-turbo",
			SystemPrompt: "Return only valid JSON without explanation.",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		Workers:   4,
	}
}
