package internal

import (
	"handsoff/internal/controllers"
	"handsoff/internal/dispatch"
	"handsoff/internal/services"
	"handsoff/internal/storage"
	"handsoff/internal/testutil"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appFixture struct {
	app      *App
	clock    *clockwork.FakeClock
	queue    *dispatch.Queue
	alerts   services.AlertCoordinatorInterface
	recorder *services.RecordAlertObserver
	db       *testutil.MockDatabase
	metrics  *testutil.MockMetrics
	sync     services.SyncManagerInterface
	path     string
}

func newAppFixture(t *testing.T) *appFixture {
	conf := testConfig(t)
	logger := &testutil.MockLogger{}
	f := &appFixture{
		clock:   clockwork.NewFakeClockAt(epoch),
		queue:   dispatch.NewQueue(),
		db:      testutil.NewMockDatabase(),
		metrics: testutil.NewMockMetrics(),
		path:    conf.Persistence.FilePath,
	}
	f.sync = services.NewSyncManager(conf, f.db, f.clock, logger, f.metrics)
	f.alerts = services.NewAlertCoordinator(conf, f.clock, f.queue)
	f.recorder = services.NewRecordAlertObserver(conf, f.sync, f.clock)
	fm := storage.NewFileManager(&testutil.MockCompressor{}, f.sync, logger, f.clock)
	scheduler := storage.NewScheduler(conf, logger, f.sync, f.db, fm, f.clock, f.metrics)
	api := controllers.NewApiController(logger, f.alerts, f.sync, testutil.NewMockCache(), f.clock)

	f.app = NewApp(
		api,
		controllers.NewHealthController(f.alerts, f.sync),
		scheduler,
		f.alerts,
		f.sync,
		f.queue,
		fm,
		f.recorder,
		conf,
		logger,
		InitRoutes(api),
		f.metrics,
	)
	return f
}

func (f *appFixture) serve(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.app.WebServer.Handler.ServeHTTP(rr, req)
	return rr
}

// settle waits for queued notifications and the record saves they started.
func (f *appFixture) settle() {
	f.queue.Sync()
	f.recorder.Wait()
}

func TestApp_DetectionCreatesQueuedRecord(t *testing.T) {
	f := newAppFixture(t)

	rr := f.serve(http.MethodPost, "/detections", `{"touching":true,"confidence":0.95}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	f.settle()

	records := f.sync.Records()
	require.Len(t, records, 1)
	assert.Equal(t, epoch, records[0].Timestamp)
	assert.Equal(t, 1, f.sync.PendingCount())
	assert.Equal(t, 1, f.metrics.Alerts["started"])
	assert.Equal(t, 1, f.metrics.Requests)

	f.clock.Advance(350 * time.Millisecond)
	require.Eventually(t, func() bool { return !f.alerts.Active() }, time.Second, time.Millisecond)
	f.queue.Sync()
	assert.Equal(t, 1, f.metrics.Alerts["stopped"])

	require.NoError(t, f.app.Shutdown())
}

func TestApp_NetworkHookFlushesQueue(t *testing.T) {
	f := newAppFixture(t)
	f.serve(http.MethodPost, "/detections", `{"touching":true,"confidence":0.95}`)
	f.settle()

	rr := f.serve(http.MethodPost, "/sync/network", `{"available":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"networkAvailable":true,"authStatus":"available","pending":0,"synced":true}`, rr.Body.String())
	assert.Equal(t, []int{1}, f.db.BatchSizes())

	require.NoError(t, f.app.Shutdown())
}

func TestApp_HealthIsNotInstrumented(t *testing.T) {
	f := newAppFixture(t)

	rr := f.serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, f.metrics.Requests)

	rr = f.serve(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.NoError(t, f.app.Shutdown())
}

func TestApp_ShutdownPersistsPending(t *testing.T) {
	f := newAppFixture(t)
	f.serve(http.MethodPost, "/detections", `{"touching":true,"confidence":0.95}`)

	require.NoError(t, f.app.Shutdown())

	_, err := os.Stat(f.path)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sync.PendingCount())
}
