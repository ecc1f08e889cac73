package schedule

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse reads a standard 5-field cron expression (minute hour
// day-of-month month day-of-week), e.g. "0 9 * * 1-5" for weekdays 9am.
func Parse(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", spec, err)
	}
	return sched, nil
}

type job struct {
	name  string
	spec  string
	sched cron.Schedule
	run   func(ctx context.Context) error
}

// Scheduler runs named jobs on cron schedules in the org time zone. A
// failing run is logged and the job waits for its next slot.
type Scheduler struct {
	loc   *time.Location
	jobs  []job
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, now: time.Now, sleep: sleepContext}
}

// Add registers a job. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, run func(ctx context.Context) error) error {
	if strings.TrimSpace(spec) == "" {
		log.Printf("schedule %s disabled (no schedule set)", name)
		return nil
	}
	sched, err := Parse(spec)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.jobs = append(s.jobs, job{name: name, spec: spec, sched: sched, run: run})
	log.Printf("schedule %s registered (cron: %s)", name, spec)
	return nil
}

func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// Run blocks until ctx is done, running every job at its scheduled times.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return fmt.Errorf("no schedules configured")
	}
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	for {
		now := s.now().In(s.loc)
		next := j.sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next %s at %s (in %s)", j.name, next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		if err := s.sleep(ctx, wait); err != nil {
			return
		}

		started := time.Now()
		if err := j.run(ctx); err != nil {
			log.Printf("schedule %s error: %v", j.name, err)
			continue
		}
		log.Printf("schedule %s complete in %s", j.name, time.Since(started).Round(time.Millisecond))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
