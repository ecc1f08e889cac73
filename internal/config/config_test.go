package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	_ "time/tzdata"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFromEnvWithDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing-config.yaml"), envMap(map[string]string{
		"GITHUB_ORG":           "acme",
		"IGNORE_PROJ_PREFIXES": "cs-, swarm-",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubOrg != "acme" {
		t.Fatalf("unexpected org: %q", cfg.GitHubOrg)
	}
	if cfg.GitHubAPIURL != "https://api.github.com" {
		t.Fatalf("unexpected github api default: %q", cfg.GitHubAPIURL)
	}
	if len(cfg.IgnoreProjectPrefixes) != 2 || cfg.IgnoreProjectPrefixes[1] != "swarm-" {
		t.Fatalf("unexpected ignore prefixes: %v", cfg.IgnoreProjectPrefixes)
	}
	if len(cfg.TeamTopics) != 4 || cfg.BotLoginPrefixes[0] != "dependabot" {
		t.Fatalf("unexpected topic/bot defaults: %v %v", cfg.TeamTopics, cfg.BotLoginPrefixes)
	}
	if cfg.AsanaRequestsPerMinute != 59 {
		t.Fatalf("unexpected asana budget default: %d", cfg.AsanaRequestsPerMinute)
	}
	if cfg.PublishTarget != PublishNotion || cfg.SQLitePath != "./digests.db" {
		t.Fatalf("unexpected publish defaults: %q %q", cfg.PublishTarget, cfg.SQLitePath)
	}
	if cfg.ExternalHTTPTimeoutSeconds != defaultExternalHTTPTimeoutSeconds {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Toronto" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
github_org: "yaml-org"
github_token: "yaml-token"
org_timezone: "America/Los_Angeles"
publish_target: "sqlite"
sqlite_path: "/tmp/yaml.db"
external_http_timeout_seconds: 75
notion_journal_databases:
  - name: "Dev Journal"
    id: "abc"
weekly_teams: ["data", "mobile"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath, envMap(map[string]string{
		"GITHUB_TOKEN":                  "env-token",
		"SQLITE_PATH":                   "/tmp/env.db",
		"EXTERNAL_HTTP_TIMEOUT_SECONDS": "120",
		"SKIP_COMMITS":                  "true",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubToken != "env-token" {
		t.Fatalf("expected token from env override, got %q", cfg.GitHubToken)
	}
	if cfg.GitHubOrg != "yaml-org" {
		t.Fatalf("expected org from yaml, got %q", cfg.GitHubOrg)
	}
	if cfg.SQLitePath != "/tmp/env.db" || cfg.PublishTarget != PublishSQLite {
		t.Fatalf("unexpected sqlite settings: %q %q", cfg.PublishTarget, cfg.SQLitePath)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 120 {
		t.Fatalf("expected external HTTP timeout from env override, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if !cfg.SkipCommits || cfg.SkipComments {
		t.Fatalf("unexpected skip flags: %+v", cfg)
	}
	if len(cfg.NotionJournalDatabases) != 1 || cfg.NotionJournalDatabases[0].ID != "abc" {
		t.Fatalf("unexpected journal databases: %+v", cfg.NotionJournalDatabases)
	}
	if len(cfg.WeeklyTeams) != 2 {
		t.Fatalf("unexpected weekly teams: %v", cfg.WeeklyTeams)
	}
	if cfg.Location.String() != "America/Los_Angeles" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoadValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing org", map[string]string{}},
		{"bad timezone", map[string]string{"GITHUB_ORG": "acme", "ORG_TZ": "Mars/Colony"}},
		{"bad publish target", map[string]string{"GITHUB_ORG": "acme", "PUBLISH_TARGET": "s3"}},
		{"timeout too small", map[string]string{"GITHUB_ORG": "acme", "EXTERNAL_HTTP_TIMEOUT_SECONDS": "2"}},
		{"llm without key", map[string]string{"GITHUB_ORG": "acme", "LLM_LABELS_ENABLED": "1"}},
		{"bad int", map[string]string{"GITHUB_ORG": "acme", "ASANA_REQUESTS_PER_MINUTE": "many"}},
		{"bad journal list", map[string]string{"GITHUB_ORG": "acme", "NOTION_JOURNAL_DATABASES": "Dev Journal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(missing, envMap(tt.env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCheckPublish(t *testing.T) {
	cfg := Config{PublishTarget: PublishNotion}
	if err := cfg.CheckPublish(); err == nil {
		t.Fatal("notion publishing without credentials must fail")
	}
	cfg.NotionToken, cfg.NotionDatabaseID = "secret", "db"
	if err := cfg.CheckPublish(); err != nil {
		t.Fatalf("CheckPublish: %v", err)
	}
	if err := (Config{PublishTarget: PublishSQLite}).CheckPublish(); err != nil {
		t.Fatalf("sqlite needs no credentials: %v", err)
	}
}

func TestParseJournalDatabases(t *testing.T) {
	got, err := parseJournalDatabases("Dev Journal=f232, Design Journal = d4a9 ,")
	if err != nil {
		t.Fatalf("parseJournalDatabases: %v", err)
	}
	if len(got) != 2 || got[0] != (JournalDatabase{Name: "Dev Journal", ID: "f232"}) || got[1].Name != "Design Journal" || got[1].ID != "d4a9" {
		t.Fatalf("unexpected databases: %+v", got)
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	env := envMap(map[string]string{
		"DD_TEST_STR":   "value",
		"DD_TEST_INT":   "42",
		"DD_TEST_FLOAT": "0.75",
		"DD_TEST_BOOL":  "1",
		"DD_TEST_LIST":  "a, ,b",
	})

	s := "initial"
	envOverride(env, &s, "DD_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}
	envOverride(env, &s, "DD_TEST_UNSET")
	if s != "value" {
		t.Fatalf("unset env must not override, got %q", s)
	}

	i := 1
	if err := envOverrideInt(env, &i, "DD_TEST_INT"); err != nil || i != 42 {
		t.Fatalf("envOverrideInt failed, got %d, %v", i, err)
	}

	f := 0.1
	if err := envOverrideFloat(env, &f, "DD_TEST_FLOAT"); err != nil || f != 0.75 {
		t.Fatalf("envOverrideFloat failed, got %f, %v", f, err)
	}

	b := false
	envOverrideBool(env, &b, "DD_TEST_BOOL")
	if !b {
		t.Fatalf("envOverrideBool failed, got %v", b)
	}

	list := []string{"old"}
	envOverrideList(env, &list, "DD_TEST_LIST")
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Fatalf("envOverrideList failed, got %v", list)
	}
}

func TestLoadConfigInvalidTimezoneFatal(t *testing.T) {
	if os.Getenv("TEST_INVALID_TZ_FATAL") == "1" {
		_ = os.Setenv("CONFIG_PATH", filepath.Join(os.TempDir(), "no-config.yaml"))
		_ = os.Setenv("GITHUB_ORG", "acme")
		_ = os.Setenv("ORG_TZ", "Mars/Colony")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfigInvalidTimezoneFatal")
	cmd.Env = append(os.Environ(), "TEST_INVALID_TZ_FATAL=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with failure")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got: %v", err)
	}
}
