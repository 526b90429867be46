package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"vigia/internal/logger"
)

// EraseTime is the daily wall-clock moment the sweep fires.
type EraseTime struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// Scheduler fires the sweep once per day at the configured time.
type Scheduler struct {
	sweeper *Sweeper
	at      EraseTime
	sched   cron.Schedule
}

// NewScheduler builds the daily schedule for the configured erase time.
func NewScheduler(sweeper *Sweeper, at EraseTime) (*Scheduler, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	spec := fmt.Sprintf("%d %d %d * * *", at.Second, at.Minute, at.Hour)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("build erase schedule: %w", err)
	}
	return &Scheduler{sweeper: sweeper, at: at, sched: sched}, nil
}

// Run sleeps until the next firing time, sweeps, and repeats until ctx is
// cancelled. The millisecond component is applied as an offset past the
// scheduled second.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := time.Now()
		next := s.sched.Next(now).Add(time.Duration(s.at.Millisecond) * time.Millisecond)
		logger.Infof("Next retention sweep at %s", next.Format("2006-01-02 15:04:05.000"))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next.Sub(now)):
		}

		logger.Infof("Running retention sweep")
		for _, line := range s.sweeper.Sweep() {
			logger.Infof("retention: %s", line)
		}
	}
}
