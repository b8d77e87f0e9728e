package storage

import (
	"context"
	"handsoff/internal/providers"
	"handsoff/internal/services"
	"handsoff/internal/storage/interfaces"
	"handsoff/internal/structures"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	sync        services.SyncManagerInterface
	db          services.Database
	fileManager *FileManager
	clock       clockwork.Clock
	metrics     providers.MetricsProviderInterface
	opsMu       sync.Mutex
	done        chan struct{}
	wg          sync.WaitGroup
}

// Init probes connectivity once, loads today's records when sync is
// possible, then starts the periodic jobs.
func (s *Scheduler) Init() {
	s.probe()
	if s.sync.State().Favorable() {
		ctx, cancel := s.jobContext()
		added, err := s.sync.FetchExistingRecords(ctx, s.clock.Now())
		cancel()
		if err != nil {
			s.logger.Warnf(providers.TypeSync, "Initial fetch failed: %s", err)
		} else {
			s.logger.Infof(providers.TypeSync, "Loaded %d records for today", added)
		}
	}

	s.done = make(chan struct{})
	s.every(s.config.Sync.ProbeInterval, s.probe)
	s.every(s.config.Sync.FetchInterval, s.fetchLatest)
	s.every(s.config.Persistence.SaveInterval, func() { _ = s.Persist() })
}

func (s *Scheduler) every(interval time.Duration, job func()) {
	ticker := s.clock.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.Chan():
				job()
			}
		}
	}()
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.config.Sync.SaveTimeout)
}

// probe pings the store and reports reachability changes. While reachable
// it also retries anything still queued.
func (s *Scheduler) probe() {
	ctx, cancel := s.jobContext()
	defer cancel()

	err := s.db.Ping(ctx)
	available := err == nil
	if available != s.sync.State().IsNetworkAvailable {
		if err != nil {
			s.logger.Warnf(providers.TypeSync, "Store unreachable: %s", err)
		}
		s.sync.SetNetworkAvailable(ctx, available)
		return
	}
	if available && s.sync.PendingCount() > 0 {
		s.sync.Flush(ctx)
	}
}

func (s *Scheduler) fetchLatest() {
	if !s.sync.State().Favorable() {
		return
	}
	ctx, cancel := s.jobContext()
	defer cancel()

	added, err := s.sync.FetchLatestRecords(ctx)
	if err != nil {
		s.logger.Warnf(providers.TypeSync, "Fetch of latest records failed: %s", err)
		return
	}
	if added > 0 {
		s.logger.Infof(providers.TypeSync, "Fetched %d new records", added)
	}
}

func (s *Scheduler) Stop() {
	if s.done == nil {
		return
	}
	close(s.done)
	s.wg.Wait()
	s.done = nil
}

func (s *Scheduler) Restore() error {
	restored, err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
	if err != nil {
		return err
	}
	if restored > 0 {
		s.logger.Infof(providers.TypeApp, "Restored %d pending records from %s", restored, s.config.Persistence.FilePath)
	}
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	saved, err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	s.logger.Debugf(providers.TypeApp, "Persisted %d pending records", saved)
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, sync services.SyncManagerInterface, db services.Database, fileManager *FileManager, clk clockwork.Clock, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		sync:        sync,
		db:          db,
		fileManager: fileManager,
		clock:       clk,
		metrics:     metrics,
	}
}
