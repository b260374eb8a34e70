package branchsync

import (
	"context"
	"sync"
	"time"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
)

// Scheduler runs PerformSync on a ticker and applies the sync toggle and
// interval settings.
type Scheduler struct {
	engine *Engine
	logger *logrus.Logger

	mu       sync.Mutex
	baseCtx  context.Context
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	interval time.Duration
}

func NewScheduler(engine *Engine, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		logger:   logger,
		interval: models.DefaultSyncIntervalMinutes * time.Minute,
	}
}

func (s *Scheduler) Engine() *Engine {
	return s.engine
}

// Start reads the persisted settings and starts the timer when sync is
// enabled. ctx bounds every loop the scheduler starts.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.engine.ClearStaleFlag(ctx); err != nil {
		return err
	}
	status, err := s.engine.Status(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.interval = time.Duration(status.SyncIntervalMinutes) * time.Minute
	s.mu.Unlock()
	if status.SyncEnabled {
		s.startLoop()
	}
	return nil
}

// Stop halts the timer and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.stopLoop()
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) startLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.baseCtx == nil {
		return
	}
	if s.interval <= 0 {
		s.interval = models.DefaultSyncIntervalMinutes * time.Minute
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.loop(s.baseCtx, s.ticker, s.stopCh)
	s.logger.WithFields(logrus.Fields{
		"branch_id": s.engine.branchId(),
		"interval":  s.interval.String(),
	}).Info("sync scheduler started")
}

func (s *Scheduler) stopLoop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.WithField("branch_id", s.engine.branchId()).Info("sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.engine.PerformSync(ctx)
	if err != nil {
		config.LogError(s.logger, "SyncScheduler", "runOnce", "sync cycle failed", s.engine.branchId(), err)
		return
	}
	if result.Skipped {
		s.logger.WithFields(logrus.Fields{
			"branch_id": s.engine.branchId(),
			"reason":    result.Reason,
		}).Debug("sync cycle skipped")
	}
}

// TriggerSync runs a cycle now, outside the timer.
func (s *Scheduler) TriggerSync(ctx context.Context) (SyncResult, error) {
	return s.engine.PerformSync(ctx)
}

// ToggleSync persists the flag. Disabling stops the timer; enabling starts it
// and runs a cycle straight away.
func (s *Scheduler) ToggleSync(ctx context.Context, enabled bool) (models.SyncStatus, error) {
	if err := s.engine.Queue.UpdateStatus(ctx, nil, s.engine.branchId(), map[string]interface{}{"sync_enabled": enabled}); err != nil {
		return models.SyncStatus{}, err
	}
	if !enabled {
		s.stopLoop()
		return s.engine.Status(ctx)
	}
	s.startLoop()
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	if base != nil {
		go s.runOnce(base)
	}
	return s.engine.Status(ctx)
}

// UpdateInterval persists a new interval of 1 to 1440 minutes and resets a
// running timer to it.
func (s *Scheduler) UpdateInterval(ctx context.Context, minutes int) (models.SyncStatus, error) {
	if !models.ValidSyncInterval(minutes) {
		return models.SyncStatus{}, utils.Invalidf("sync interval must be between 1 and %d minutes", models.MaxSyncIntervalMinutes)
	}
	if err := s.engine.Queue.UpdateStatus(ctx, nil, s.engine.branchId(), map[string]interface{}{"sync_interval_minutes": minutes}); err != nil {
		return models.SyncStatus{}, err
	}
	s.mu.Lock()
	s.interval = time.Duration(minutes) * time.Minute
	if s.running {
		s.ticker.Reset(s.interval)
	}
	s.mu.Unlock()
	return s.engine.Status(ctx)
}
