package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

// DefaultRunTimeout bounds one refresh run across every dataset.
const DefaultRunTimeout = 10 * time.Minute

// Refresher is the part of benchmark.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, peers benchmark.PeerSet) (benchmark.RefreshReport, error)
}

// Scheduler periodically refreshes benchmark observations for the
// configured peers.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    Refresher
	peers      benchmark.PeerSet
	interval   time.Duration
	runTimeout time.Duration
	logger     zerolog.Logger
}

// New creates a new Scheduler. A zero interval disables it.
func New(peers benchmark.PeerSet, interval time.Duration, service Refresher, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		service:    service,
		peers:      peers,
		interval:   interval,
		runTimeout: DefaultRunTimeout,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run starts immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info().Msg("refresh interval is zero; scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Strs("peers", s.peers).Msg("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	s.logger.Info().Msg("running benchmark refresh job")
	report, err := s.service.Refresh(ctx, s.peers)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", report.RunID).Msg("refresh job failed")
		return
	}
	s.logger.Info().Str("run_id", report.RunID).Int("saved", report.Saved).Msg("completed benchmark refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
