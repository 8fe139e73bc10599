// Package scheduler triggers crawler runs from their stored cron schedules.
// Runs fire only on the elected leader, so multiple instances can share one
// database without duplicate crawls.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// defaultSyncInterval is how often schedules are re-read from the store.
const defaultSyncInterval = time.Minute

// CrawlRunner starts crawl runs. The crawl package's Runner implements it.
type CrawlRunner interface {
	Run(ctx context.Context, crawlerID string, byCron bool, userID *string) (*crawl.RunResult, error)
}

// ScheduleSource lists the crawlers carrying a cron schedule.
type ScheduleSource interface {
	ListScheduledCrawlers(ctx context.Context) ([]*domain.LibraryCrawler, error)
}

// Leader gates job execution to one instance. A nil Leader always fires.
type Leader interface {
	IsLeader() bool
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Scheduler reconciles stored crawler schedules into cron entries.
type Scheduler struct {
	source ScheduleSource
	runner CrawlRunner
	leader Leader
	logger logger.Interface

	cron         *cron.Cron
	syncInterval time.Duration

	mu      sync.Mutex
	entries map[string]entry

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a scheduler. leader may be nil for single-instance deployments.
func New(source ScheduleSource, runner CrawlRunner, leader Leader, log logger.Interface) *Scheduler {
	return &Scheduler{
		source:       source,
		runner:       runner,
		leader:       leader,
		logger:       log.WithComponent("scheduler"),
		cron:         cron.New(),
		syncInterval: defaultSyncInterval,
		entries:      make(map[string]entry),
		stop:         make(chan struct{}),
	}
}

// Start loads the schedules, starts the cron loop, and keeps the schedules
// synced until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.syncLoop(ctx)

	s.logger.Info("scheduler started", "sync_interval", s.syncInterval)
	return nil
}

// Stop halts the cron loop, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) syncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("failed to sync schedules", "error", err)
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sync reconciles cron entries with the stored schedules: new crawlers are
// added, changed schedules replaced, removed ones dropped.
func (s *Scheduler) Sync(ctx context.Context) error {
	crawlers, err := s.source.ListScheduledCrawlers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled crawlers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(crawlers))
	for _, c := range crawlers {
		if c.Schedule == nil {
			continue
		}
		seen[c.ID] = true

		current, exists := s.entries[c.ID]
		if exists && current.schedule == *c.Schedule {
			continue
		}
		if exists {
			s.cron.Remove(current.id)
		}

		id, addErr := s.cron.AddFunc(*c.Schedule, s.jobFor(c.ID))
		if addErr != nil {
			s.logger.Warn("skipping crawler with invalid schedule",
				"crawler_id", c.ID, "schedule", *c.Schedule, "error", addErr)
			delete(s.entries, c.ID)
			continue
		}
		s.entries[c.ID] = entry{id: id, schedule: *c.Schedule}
		s.logger.Info("scheduled crawler", "crawler_id", c.ID, "schedule", *c.Schedule)
	}

	for crawlerID, e := range s.entries {
		if !seen[crawlerID] {
			s.cron.Remove(e.id)
			delete(s.entries, crawlerID)
			s.logger.Info("unscheduled crawler", "crawler_id", crawlerID)
		}
	}
	return nil
}

// ScheduledIDs returns the crawler IDs currently registered.
func (s *Scheduler) ScheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) jobFor(crawlerID string) func() {
	return func() {
		if s.leader != nil && !s.leader.IsLeader() {
			return
		}

		result, err := s.runner.Run(context.Background(), crawlerID, true, nil)
		if err != nil {
			s.logger.Error("scheduled crawl failed", "crawler_id", crawlerID, "error", err)
			return
		}
		s.logger.Info("scheduled crawl finished",
			"crawler_id", crawlerID,
			"run_id", result.RunID,
			"crawled", result.FilesCrawled)
	}
}
