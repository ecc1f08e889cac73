package app

import (
	"context"
	"errors"
	"fmt"

	"devdigest/internal/schedule"
)

// scheduler registers the recurring digests. Each weekly tick publishes the
// org-wide digest and then one per configured team; a failing team does not
// stop the others.
func (r *Runner) scheduler() (*schedule.Scheduler, error) {
	s := schedule.New(r.cfg.Location)
	if err := s.Add("daily digest", r.cfg.DailySchedule, func(ctx context.Context) error {
		return r.Run(ctx, Params{Kind: KindDaily, Ref: r.now(), Location: r.cfg.Location})
	}); err != nil {
		return nil, err
	}
	if err := s.Add("weekly digest", r.cfg.WeeklySchedule, r.weeklyDigests); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("serve needs daily_schedule or weekly_schedule")
	}
	return s, nil
}

func (r *Runner) weeklyDigests(ctx context.Context) error {
	ref := r.now()
	var errs []error
	for _, team := range append([]string{""}, r.cfg.WeeklyTeams...) {
		err := r.Run(ctx, Params{Kind: KindWeekly, Ref: ref, Team: team, Location: r.cfg.Location})
		if err != nil {
			if team == "" {
				team = "org"
			}
			errs = append(errs, fmt.Errorf("weekly %s: %w", team, err))
		}
	}
	return errors.Join(errs...)
}
