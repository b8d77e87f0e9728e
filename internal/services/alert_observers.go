package services

import (
	"context"
	"handsoff/internal/providers"
	"handsoff/internal/structures"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type LoggingAlertObserver struct {
	logger providers.Logger
}

func NewLoggingAlertObserver(logger providers.Logger) *LoggingAlertObserver {
	return &LoggingAlertObserver{logger: logger}
}

func (o *LoggingAlertObserver) AlertStarted() {
	o.logger.Infof(providers.TypeAlert, "Face touch alert started")
}

func (o *LoggingAlertObserver) AlertStopped() {
	o.logger.Infof(providers.TypeAlert, "Face touch alert stopped")
}

type MetricsAlertObserver struct {
	metrics providers.MetricsProviderInterface
}

func NewMetricsAlertObserver(metrics providers.MetricsProviderInterface) *MetricsAlertObserver {
	return &MetricsAlertObserver{metrics: metrics}
}

func (o *MetricsAlertObserver) AlertStarted() { o.metrics.IncAlerts("started") }
func (o *MetricsAlertObserver) AlertStopped() { o.metrics.IncAlerts("stopped") }

// RecordAlertObserver turns every alert start into a touch record. The
// save runs on its own goroutine so a slow store never holds up the
// observers queued behind it.
type RecordAlertObserver struct {
	sync    SyncManagerInterface
	clock   clockwork.Clock
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecordAlertObserver(conf *structures.Config, sync SyncManagerInterface, clk clockwork.Clock) *RecordAlertObserver {
	return &RecordAlertObserver{sync: sync, clock: clk, timeout: conf.Sync.SaveTimeout}
}

func (o *RecordAlertObserver) AlertStarted() {
	at := o.clock.Now()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		o.sync.CreateAndSaveRecord(ctx, at)
	}()
}

func (o *RecordAlertObserver) AlertStopped() {}

// Wait blocks until every save started so far has returned.
func (o *RecordAlertObserver) Wait() {
	o.wg.Wait()
}
