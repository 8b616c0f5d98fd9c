// Package handler exposes the admin HTTP surface for the monitor.
package handler

import (
	"net/http"
	"runtime"
	"time"

	"abc-inventory-monitor/internal/service"
	"abc-inventory-monitor/pkg/response"
)

// StartTime tracks when the process started for uptime calculation.
var StartTime = time.Now()

// Handler serves the health and status endpoints.
type Handler struct {
	monitor *service.Monitor
	version string
}

// New creates a handler reporting on the given monitor.
func New(monitor *service.Monitor, version string) *Handler {
	return &Handler{monitor: monitor, version: version}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// StatusChecks represents the checks in the status response.
type StatusChecks struct {
	Monitor  service.Status `json:"monitor"`
	MemoryMB float64        `json:"memory_mb"`
}

// StatusResponse represents the unified status response for uptime probes.
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	resp := StatusResponse{
		Service:       "abc-inventory-monitor",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		Checks: StatusChecks{
			Monitor:  h.monitor.Status(),
			MemoryMB: float64(int(memoryMB*100)) / 100,
		},
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
