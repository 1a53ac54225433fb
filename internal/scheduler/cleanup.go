package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lerio/luciko/internal/config"
	"github.com/lerio/luciko/internal/database"
)

// BlobCleanupScheduler periodically deletes blobs that no attachment or
// post media row references anymore.
type BlobCleanupScheduler struct {
	db  *database.Database
	cfg config.Cleanup

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isCleaning bool
	cancelFunc context.CancelFunc
}

func NewBlobCleanupScheduler(db *database.Database, cfg config.Cleanup) *BlobCleanupScheduler {
	return &BlobCleanupScheduler{
		db:  db,
		cfg: cfg,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if cleanup is enabled.
func (s *BlobCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Blob cleanup scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runCleanup()
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Blob cleanup scheduler: started with schedule '%s'", s.cfg.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *BlobCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Blob cleanup scheduler: stopped")
}

// RunNow triggers an immediate cleanup.
func (s *BlobCleanupScheduler) RunNow() {
	go s.runCleanup()
}

// IsRunning returns whether the scheduler is active.
func (s *BlobCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next cleanup will occur.
func (s *BlobCleanupScheduler) GetNextRunTime() *time.Time {
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

func (s *BlobCleanupScheduler) runCleanup() {
	s.mu.Lock()
	if s.isCleaning {
		s.mu.Unlock()
		log.Printf("Blob cleanup: skipped (already running)")
		return
	}
	s.isCleaning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isCleaning = false
		s.mu.Unlock()
	}()

	startTime := time.Now()

	ids, err := s.db.OrphanBlobIDs()
	if err != nil {
		log.Printf("Blob cleanup: failed to scan for orphans: %v", err)
		return
	}
	if len(ids) == 0 {
		log.Printf("Blob cleanup: no orphaned blobs")
		return
	}

	if err := s.db.DeleteBlobs(ids); err != nil {
		log.Printf("Blob cleanup: failed to delete %d orphaned blobs: %v", len(ids), err)
		return
	}

	log.Printf("Blob cleanup: deleted %d orphaned blobs in %v",
		len(ids), time.Since(startTime).Round(time.Millisecond))
}
