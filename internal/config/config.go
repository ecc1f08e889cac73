package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	PublishNotion = "notion"
	PublishSQLite = "sqlite"
)

const (
	defaultGitHubAPIURL   = "https://api.github.com"
	defaultAsanaAPIURL    = "https://app.asana.com/api/1.0"
	defaultNotionAPIURL   = "https://api.notion.com/v1"
	defaultOrgTimezone    = "America/Toronto"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

var defaultTeamTopics = []string{"meta-data", "meta-product", "meta-design", "meta-mobile"}

type JournalDatabase struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

type Config struct {
	GitHubToken             string   `yaml:"github_token"`
	GitHubOrg               string   `yaml:"github_org"`
	GitHubAPIURL            string   `yaml:"github_api_url"`
	GitHubRequestsPerSecond float64  `yaml:"github_requests_per_second"`
	TeamTopics              []string `yaml:"team_topics"`
	IgnoreProjectPrefixes   []string `yaml:"ignore_project_prefixes"`
	BotLoginPrefixes        []string `yaml:"bot_login_prefixes"`

	AsanaToken             string `yaml:"asana_token"`
	AsanaWorkspace         string `yaml:"asana_workspace"`
	AsanaProject           string `yaml:"asana_project"`
	AsanaSection           string `yaml:"asana_section"`
	AsanaAPIURL            string `yaml:"asana_api_url"`
	AsanaRequestsPerMinute int    `yaml:"asana_requests_per_minute"`

	NotionToken             string            `yaml:"notion_token"`
	NotionDatabaseID        string            `yaml:"notion_database_id"`
	NotionAPIURL            string            `yaml:"notion_api_url"`
	NotionRequestsPerSecond float64           `yaml:"notion_requests_per_second"`
	NotionJournalDatabases  []JournalDatabase `yaml:"notion_journal_databases"`

	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`
	SlackAPIURL   string `yaml:"slack_api_url"`

	PublishTarget string `yaml:"publish_target"`
	SQLitePath    string `yaml:"sqlite_path"`

	OrgTimezone                string `yaml:"org_timezone"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	SkipComments bool `yaml:"skip_comments"`
	SkipReviews  bool `yaml:"skip_reviews"`
	SkipCommits  bool `yaml:"skip_commits"`

	LLMLabelsEnabled bool   `yaml:"llm_labels_enabled"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	LLMModel         string `yaml:"llm_model"`

	DailySchedule  string   `yaml:"daily_schedule"`
	WeeklySchedule string   `yaml:"weekly_schedule"`
	WeeklyTeams    []string `yaml:"weekly_teams"`

	Location *time.Location `yaml:"-"` // computed from OrgTimezone, not from YAML
}

// LoadConfig reads CONFIG_PATH (default config.yaml) and the environment,
// exiting on invalid configuration.
func LoadConfig() Config {
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	cfg, err := Load(configPath, os.Getenv)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// Load builds a Config from an optional YAML file and environment overrides.
// A missing file is not an error.
func Load(path string, getenv func(string) string) (Config, error) {
	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Error parsing %s: %w", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	var errs []error
	envOverride(getenv, &cfg.GitHubToken, "GITHUB_TOKEN")
	envOverride(getenv, &cfg.GitHubOrg, "GITHUB_ORG")
	envOverride(getenv, &cfg.GitHubAPIURL, "GITHUB_API_URL")
	errs = append(errs, envOverrideFloat(getenv, &cfg.GitHubRequestsPerSecond, "GITHUB_REQUESTS_PER_SECOND"))
	envOverrideList(getenv, &cfg.TeamTopics, "TEAM_TOPICS")
	envOverrideList(getenv, &cfg.IgnoreProjectPrefixes, "IGNORE_PROJ_PREFIXES")
	envOverrideList(getenv, &cfg.BotLoginPrefixes, "BOT_LOGIN_PREFIXES")

	envOverride(getenv, &cfg.AsanaToken, "ASANA_TOKEN")
	envOverride(getenv, &cfg.AsanaWorkspace, "ASANA_WORKSPACE")
	envOverride(getenv, &cfg.AsanaProject, "ASANA_PROJECT")
	envOverride(getenv, &cfg.AsanaSection, "ASANA_SECTION")
	envOverride(getenv, &cfg.AsanaAPIURL, "ASANA_API_URL")
	errs = append(errs, envOverrideInt(getenv, &cfg.AsanaRequestsPerMinute, "ASANA_REQUESTS_PER_MINUTE"))

	envOverride(getenv, &cfg.NotionToken, "NOTION_TOKEN")
	envOverride(getenv, &cfg.NotionDatabaseID, "NOTION_DATABASE_ID")
	envOverride(getenv, &cfg.NotionAPIURL, "NOTION_API_URL")
	errs = append(errs, envOverrideFloat(getenv, &cfg.NotionRequestsPerSecond, "NOTION_REQUESTS_PER_SECOND"))
	if dbs := getenv("NOTION_JOURNAL_DATABASES"); dbs != "" {
		parsed, err := parseJournalDatabases(dbs)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.NotionJournalDatabases = parsed
	}

	envOverride(getenv, &cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(getenv, &cfg.SlackChannel, "SLACK_CHANNEL")
	envOverride(getenv, &cfg.SlackAPIURL, "SLACK_API_URL")

	envOverride(getenv, &cfg.PublishTarget, "PUBLISH_TARGET")
	envOverride(getenv, &cfg.SQLitePath, "SQLITE_PATH")
	envOverride(getenv, &cfg.OrgTimezone, "ORG_TZ")
	errs = append(errs, envOverrideInt(getenv, &cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"))

	envOverrideBool(getenv, &cfg.SkipComments, "SKIP_COMMENTS")
	envOverrideBool(getenv, &cfg.SkipReviews, "SKIP_REVIEWS")
	envOverrideBool(getenv, &cfg.SkipCommits, "SKIP_COMMITS")

	envOverrideBool(getenv, &cfg.LLMLabelsEnabled, "LLM_LABELS_ENABLED")
	envOverride(getenv, &cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(getenv, &cfg.LLMModel, "LLM_MODEL")

	envOverride(getenv, &cfg.DailySchedule, "DAILY_SCHEDULE")
	envOverride(getenv, &cfg.WeeklySchedule, "WEEKLY_SCHEDULE")
	envOverrideList(getenv, &cfg.WeeklyTeams, "WEEKLY_TEAMS")

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(cfg.OrgTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid org_timezone '%s': %w", cfg.OrgTimezone, err)
	}
	cfg.Location = loc
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = defaultGitHubAPIURL
	}
	if cfg.GitHubRequestsPerSecond == 0 {
		cfg.GitHubRequestsPerSecond = 10
	}
	if len(cfg.TeamTopics) == 0 {
		cfg.TeamTopics = append([]string(nil), defaultTeamTopics...)
	}
	if len(cfg.BotLoginPrefixes) == 0 {
		cfg.BotLoginPrefixes = []string{"dependabot"}
	}
	if cfg.AsanaAPIURL == "" {
		cfg.AsanaAPIURL = defaultAsanaAPIURL
	}
	if cfg.AsanaRequestsPerMinute == 0 {
		cfg.AsanaRequestsPerMinute = 59
	}
	if cfg.NotionAPIURL == "" {
		cfg.NotionAPIURL = defaultNotionAPIURL
	}
	if cfg.NotionRequestsPerSecond == 0 {
		cfg.NotionRequestsPerSecond = 3
	}
	if cfg.PublishTarget == "" {
		cfg.PublishTarget = PublishNotion
	}
	cfg.PublishTarget = strings.ToLower(strings.TrimSpace(cfg.PublishTarget))
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "./digests.db"
	}
	if cfg.OrgTimezone == "" {
		cfg.OrgTimezone = defaultOrgTimezone
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
}

func (c Config) validate() error {
	if c.GitHubOrg == "" {
		return fmt.Errorf("Required config 'github_org' is not set (via config.yaml or env var)")
	}
	if c.GitHubRequestsPerSecond < 0 {
		return fmt.Errorf("invalid github_requests_per_second '%g': must be >= 0", c.GitHubRequestsPerSecond)
	}
	if c.AsanaRequestsPerMinute < 1 {
		return fmt.Errorf("invalid asana_requests_per_minute '%d': must be >= 1", c.AsanaRequestsPerMinute)
	}
	switch c.PublishTarget {
	case PublishNotion, PublishSQLite:
	default:
		return fmt.Errorf("publish_target must be 'notion' or 'sqlite', got '%s'", c.PublishTarget)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	if c.LLMLabelsEnabled && c.AnthropicAPIKey == "" {
		return fmt.Errorf("anthropic_api_key is required when llm_labels_enabled=true")
	}
	for _, db := range c.NotionJournalDatabases {
		if db.ID == "" {
			return fmt.Errorf("notion journal database '%s' has no id", db.Name)
		}
	}
	return nil
}

// CheckPublish verifies the settings needed to publish and notify. It is
// skipped for dry runs.
func (c Config) CheckPublish() error {
	if c.PublishTarget == PublishNotion {
		if c.NotionToken == "" || c.NotionDatabaseID == "" {
			return fmt.Errorf("notion_token and notion_database_id are required when publish_target=notion")
		}
	}
	return nil
}

func (c Config) AsanaConfigured() bool {
	return c.AsanaToken != "" && c.AsanaWorkspace != ""
}

func (c Config) JournalsConfigured() bool {
	return c.NotionToken != "" && len(c.NotionJournalDatabases) > 0
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

func envOverride(getenv func(string) string, field *string, envKey string) {
	if val := getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(getenv func(string) string, field *int, envKey string) error {
	if val := getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(getenv func(string) string, field *float64, envKey string) error {
	if val := getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(getenv func(string) string, field *bool, envKey string) {
	if val := getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideList(getenv func(string) string, field *[]string, envKey string) {
	val := getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, v := range strings.Split(val, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			*field = append(*field, v)
		}
	}
}

// parseJournalDatabases reads "Dev Journal=abc,Design Journal=def".
func parseJournalDatabases(s string) ([]JournalDatabase, error) {
	var out []JournalDatabase
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, id, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid NOTION_JOURNAL_DATABASES entry '%s': want Name=id", part)
		}
		out = append(out, JournalDatabase{Name: strings.TrimSpace(name), ID: strings.TrimSpace(id)})
	}
	return out, nil
}
