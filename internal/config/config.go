package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultWorkers = 4
const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type Config struct {
	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	RosterPath      string `yaml:"roster_path"`
	DefaultsPath    string `yaml:"defaults_path"`

	Users            []string `yaml:"users"`
	Workers          int      `yaml:"workers"`
	AnalysisSchedule string   `yaml:"analysis_schedule"`
	Timezone         string   `yaml:"timezone"`
	LogLevel         string   `yaml:"log_level"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	LLMNarrativeEnabled bool   `yaml:"llm_narrative_enabled"`
	LLMModel            string `yaml:"llm_model"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig is Load for the binary: any problem is fatal.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Load reads CONFIG_PATH (default ./config.yaml) when present, applies env
// overrides and defaults, then validates.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.RosterPath, "ROSTER_PATH")
	envOverride(&cfg.DefaultsPath, "DEFAULTS_PATH")
	envOverrideAllowEmpty(&cfg.AnalysisSchedule, "ANALYSIS_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverrideBool(&cfg.LLMNarrativeEnabled, "LLM_NARRATIVE_ENABLED")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	if err := envOverrideInt(&cfg.Workers, "WORKERS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"); err != nil {
		return Config{}, err
	}
	if users := os.Getenv("USERS"); users != "" {
		cfg.Users = splitList(users)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "./abcdreport.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}

	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("invalid workers '%d': must be >= 1", cfg.Workers)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 0 {
		return Config{}, fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 0", cfg.ExternalHTTPTimeoutSeconds)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		return Config{}, fmt.Errorf("log_level must be one of debug, info, warn, error, got '%s'", cfg.LogLevel)
	}
	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
	if s := strings.TrimSpace(cfg.AnalysisSchedule); s != "" {
		if _, err := ParseSchedule(s); err != nil {
			return Config{}, fmt.Errorf("invalid analysis_schedule '%s': %w", s, err)
		}
	}
	if cfg.LLMNarrativeEnabled && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("anthropic_api_key is required when llm_narrative_enabled=true")
	}
	if cfg.ReportChannelID != "" && cfg.SlackBotToken == "" {
		return Config{}, fmt.Errorf("report_channel_id is set but slack_bot_token is not")
	}

	return cfg, nil
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
