// Package sweeper hard-deletes parties whose retention window has passed.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SessionRepository defines what the sweeper needs from the repository
type SessionRepository interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Config struct {
	Interval time.Duration `yaml:"sweep_interval"`
}

func DefaultConfig() Config {
	return Config{Interval: 10 * time.Minute}
}

// Stats reports what the sweeper has done since it started
type Stats struct {
	Sweeps    uint64    `json:"sweeps"`
	Deleted   int64     `json:"deleted"`
	LastSweep time.Time `json:"last_sweep"`
}

type Worker struct {
	repo   SessionRepository
	clock  clockwork.Clock
	config Config

	mu       sync.Mutex
	running  bool
	stats    Stats
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(repo SessionRepository, clock clockwork.Clock, cfg Config) *Worker {
	return &Worker{
		repo:     repo,
		clock:    clock,
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().Dur("interval", w.config.Interval).Msg("sweeper started")
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweeper not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("sweeper stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.Sweep(ctx)
		}
	}
}

// Sweep deletes every party expired at the current clock time
func (w *Worker) Sweep(ctx context.Context) int64 {
	now := w.clock.Now()
	deleted, err := w.repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete expired parties")
		return 0
	}

	w.mu.Lock()
	w.stats.Sweeps++
	w.stats.Deleted += deleted
	w.stats.LastSweep = now
	w.mu.Unlock()

	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("expired parties deleted")
	}
	return deleted
}

func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
