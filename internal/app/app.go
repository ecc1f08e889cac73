package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"devdigest/internal/config"
	"devdigest/internal/domain"
	"devdigest/internal/httpx"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Org=%s Timezone=%s Publish=%s Asana=%t Journals=%d Slack=%t LLMLabels=%t ExternalHTTPTimeout=%s",
		cfg.GitHubOrg,
		cfg.OrgTimezone,
		cfg.PublishTarget,
		cfg.AsanaConfigured(),
		len(cfg.NotionJournalDatabases),
		cfg.SlackConfigured(),
		cfg.LLMLabelsEnabled,
		appliedHTTPTimeout,
	)

	root := newRootCmd(NewRunner(cfg, os.Stdout))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(r *Runner) *cobra.Command {
	root := &cobra.Command{
		Use:           "devdigest",
		Short:         "Engineering activity digests from GitHub, Asana and Notion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		digestCmd(r, KindDaily, "Digest of the previous work day"),
		digestCmd(r, KindWeekly, "Digest of the past week"),
		digestCmd(r, KindRange, "GitHub-only digest of a calendar day, week, month, quarter or year"),
		serveCmd(r),
	)
	return root
}

func digestCmd(r *Runner, kind Kind, short string) *cobra.Command {
	var (
		date     string
		team     string
		timeZone string
		scope    string
		labels   []string
		raw      bool
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timeZone)
			if err != nil {
				return fmt.Errorf("invalid --time-zone %q: %w", timeZone, err)
			}
			ref, err := parseDate(date, loc, r.now)
			if err != nil {
				return err
			}
			p := Params{
				Kind:     kind,
				Ref:      ref,
				Team:     strings.TrimSpace(team),
				Raw:      raw,
				DryRun:   dryRun,
				Location: loc,
			}
			if kind == KindRange {
				if p.Scope, err = rangeScope(scope); err != nil {
					return err
				}
				p.Labels = labels
			}
			return r.Run(cmd.Context(), p)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&date, "date", "d", "", "reference date (YYYY-MM-DD or RFC 3339); default now")
	f.StringVarP(&team, "team", "t", "", "team filter, matched against meta-<team> repository topics")
	f.BoolVar(&raw, "raw", false, "print the fetched and classified data as JSON instead of a digest")
	f.BoolVar(&dryRun, "dry-run", false, "print the digest markdown instead of publishing it")
	f.StringVar(&timeZone, "time-zone", r.cfg.OrgTimezone, "IANA time zone for calendar days")
	if kind == KindRange {
		f.StringVar(&scope, "scope", string(domain.ScopeMonth), "day, week, month, quarter or year")
		f.StringSliceVar(&labels, "labels", nil, "only include items with one of these labels")
	}
	return cmd
}

// parseDate reads --date. A bare date is a calendar day in loc.
func parseDate(s string, loc *time.Location, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now().In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func rangeScope(s string) (domain.Scope, error) {
	scope, err := domain.ParseScope(s)
	if err != nil {
		return "", err
	}
	if scope == domain.ScopeDaily || scope == domain.ScopeWeekly {
		return "", fmt.Errorf("range --scope must be day, week, month, quarter or year, got %q", s)
	}
	return scope, nil
}

func serveCmd(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Publish daily and weekly digests on the configured cron schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.cfg.CheckPublish(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := r.scheduler()
			if err != nil {
				return err
			}
			log.Println("Starting devdigest scheduler...")
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Println("Scheduler stopped")
			return nil
		},
	}
}
