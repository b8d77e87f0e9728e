package controllers

import (
	"handsoff/internal/models"
	"handsoff/internal/providers"
	"handsoff/internal/services"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cast"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger providers.Logger
	alerts services.AlertCoordinatorInterface
	sync   services.SyncManagerInterface
	cache  providers.CacheProviderInterface
	clock  clockwork.Clock
}

type alertResponse struct {
	Active bool `json:"active"`
}

type syncResponse struct {
	models.NetworkAuthState
	Pending int  `json:"pending"`
	Synced  bool `json:"synced"`
}

type networkRequest struct {
	Available any `json:"available"`
}

func NewApiController(logger providers.Logger, alerts services.AlertCoordinatorInterface, sync services.SyncManagerInterface, cache providers.CacheProviderInterface, clk clockwork.Clock) *ApiController {
	return &ApiController{
		logger: logger,
		alerts: alerts,
		sync:   sync,
		cache:  cache,
		clock:  clk,
	}
}

// getDay reads ?day=YYYY-MM-DD in the clock's location, defaulting to today.
func (ac *ApiController) getDay(r *http.Request) (time.Time, string, bool) {
	now := ac.clock.Now()
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return now, now.Format(time.DateOnly), true
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, now.Location())
	if err != nil {
		return time.Time{}, "", false
	}
	return day, raw, true
}

// serveDay answers a per-day query. Today's answer changes with every new
// touch, so only other days go through the cache.
func (ac *ApiController) serveDay(w http.ResponseWriter, r *http.Request, prefix string, compute func(day time.Time) any) {
	day, key, ok := ac.getDay(r)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if key == ac.clock.Now().Format(time.DateOnly) {
		writeJSON(w, http.StatusOK, compute(day))
		return
	}
	ac.serveFromCacheOrCompute(w, prefix+key, func() (any, error) {
		return compute(day), nil
	})
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) ReceiveDetection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.Detection
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ac.logger.Debugf(providers.TypePost, "Rejected detection payload: %s", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.alerts.ReportDetection(payload)
	w.WriteHeader(http.StatusAccepted)
}

func (ac *ApiController) GetAlert(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, alertResponse{Active: ac.alerts.Active()})
}

func (ac *ApiController) GetRecords(w http.ResponseWriter, r *http.Request) {
	ac.serveDay(w, r, "records:", func(day time.Time) any {
		records := ac.sync.RecordsForDay(day)
		if records == nil {
			records = []models.TouchRecord{}
		}
		return records
	})
}

func (ac *ApiController) GetHourly(w http.ResponseWriter, r *http.Request) {
	ac.serveDay(w, r, "hourly:", func(day time.Time) any {
		return ac.sync.HourlyCounts(day)
	})
}

func (ac *ApiController) syncStatus() syncResponse {
	return syncResponse{
		NetworkAuthState: ac.sync.State(),
		Pending:          ac.sync.PendingCount(),
		Synced:           ac.sync.IsSynced(),
	}
}

func (ac *ApiController) GetSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.syncStatus())
}

// SetNetwork accepts reachability changes from an OS hook. The flag may
// arrive as a bool, a number or a string such as "true" or "0".
func (ac *ApiController) SetNetwork(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload networkRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Available == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	available, err := cast.ToBoolE(payload.Available)
	if err != nil {
		ac.logger.Debugf(providers.TypePost, "Rejected reachability payload: %s", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.logger.Infof(providers.TypePost, "Network reachability reported: %t", available)
	ac.sync.SetNetworkAvailable(r.Context(), available)
	writeJSON(w, http.StatusOK, ac.syncStatus())
}
