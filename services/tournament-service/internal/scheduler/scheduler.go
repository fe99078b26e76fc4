package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bracket-esports/bracket/common/logger"
)

const (
	statusSweepJob = "tournament-status-sweep"
	matchPollJob   = "match-tracking-poll"
)

type tournamentStarter interface {
	StartDue(ctx context.Context) (int, error)
}

type matchPoller interface {
	PollTracking(ctx context.Context) (int, error)
}

type Config struct {
	StatusSweepInterval time.Duration
	MatchPollInterval   time.Duration
}

// Scheduler runs the periodic background jobs: moving due tournaments to
// in_progress and re-fetching matches that are still being tracked.
type Scheduler struct {
	cron        gocron.Scheduler
	tournaments tournamentStarter
	matches     matchPoller
	cfg         Config
	logger      *logger.Logger
}

func NewScheduler(
	tournaments tournamentStarter,
	matches matchPoller,
	cfg Config,
	log *logger.Logger,
) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		cron:        cron,
		tournaments: tournaments,
		matches:     matches,
		cfg:         cfg,
		logger:      log.With("component", "scheduler"),
	}

	if err := s.register(statusSweepJob, cfg.StatusSweepInterval, s.sweepStatuses); err != nil {
		return nil, err
	}
	if err := s.register(matchPollJob, cfg.MatchPollInterval, s.pollMatches); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) register(name string, every time.Duration, run func(ctx context.Context)) error {
	if every <= 0 {
		s.logger.Warn("Job disabled", "job", name)
		return nil
	}

	_, err := s.cron.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			run(ctx)
		}),
		gocron.WithName(name),
		// A slow run must not overlap with the next one.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", name, err)
	}

	s.logger.Info("Job registered", "job", name, "every", every)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Jobs()))
}

func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) sweepStatuses(ctx context.Context) {
	started, err := s.tournaments.StartDue(ctx)
	if err != nil {
		s.logger.Error("Status sweep failed", "error", err, "started", started)
		return
	}
	if started > 0 {
		s.logger.Info("Tournaments started", "count", started)
	}
}

func (s *Scheduler) pollMatches(ctx context.Context) {
	completed, err := s.matches.PollTracking(ctx)
	if err != nil {
		s.logger.Error("Match poll failed", "error", err, "completed", completed)
		return
	}
	if completed > 0 {
		s.logger.Info("Tracked matches completed", "count", completed)
	}
}
