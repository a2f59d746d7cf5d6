package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the retention job daily at 03:30.
const DefaultSchedule = "30 3 * * *"

// EventPruner removes audit events older than a retention period.
type EventPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// AuditRetentionScheduler prunes old audit events on a cron schedule.
type AuditRetentionScheduler struct {
	pruner        EventPruner
	retentionDays int
	schedule      string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewAuditRetentionScheduler(pruner EventPruner, retentionDays int, schedule string) *AuditRetentionScheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &AuditRetentionScheduler{
		pruner:        pruner,
		retentionDays: retentionDays,
		schedule:      schedule,
		cron:          cron.New(cron.WithParser(parser)),
	}
}

// Start registers the job and starts the cron runner. A non-positive
// retention disables pruning. Cancelling ctx stops the scheduler.
func (s *AuditRetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.retentionDays <= 0 {
		log.Printf("[AuditRetention] disabled (retention %d days)", s.retentionDays)
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("[AuditRetention] started with schedule '%s', keeping %d days", s.schedule, s.retentionDays)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish and stops the scheduler.
func (s *AuditRetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("[AuditRetention] stopped")
}

func (s *AuditRetentionScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job fires next, or nil when not running.
func (s *AuditRetentionScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// RunNow prunes synchronously and returns the number of deleted events.
func (s *AuditRetentionScheduler) RunNow() int64 {
	retention := time.Duration(s.retentionDays) * 24 * time.Hour
	deleted, err := s.pruner.DeleteOldEvents(retention)
	if err != nil {
		log.Printf("[AuditRetention] failed to delete old events: %v", err)
		return 0
	}
	if deleted > 0 {
		log.Printf("[AuditRetention] deleted %d events older than %d days", deleted, s.retentionDays)
	}
	return deleted
}
