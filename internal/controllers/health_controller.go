package controllers

import (
	"fmt"
	"handsoff/internal/services"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	alerts    services.AlertCoordinatorInterface
	sync      services.SyncManagerInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Pending       int     `json:"pending"`
	Synced        bool    `json:"synced"`
	AlertActive   bool    `json:"alert_active"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Pending:       hc.sync.PendingCount(),
		Synced:        hc.sync.IsSynced(),
		AlertActive:   hc.alerts.Active(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(alerts services.AlertCoordinatorInterface, sync services.SyncManagerInterface) *HealthController {
	return &HealthController{
		alerts:    alerts,
		sync:      sync,
		startTime: time.Now(),
	}
}
