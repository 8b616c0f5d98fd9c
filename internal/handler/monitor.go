package handler

import (
	"net/http"

	"abc-inventory-monitor/internal/service"
	"abc-inventory-monitor/pkg/response"
)

// MonitorHandler serves manual monitor controls.
type MonitorHandler struct {
	monitor *service.Monitor
}

// NewMonitorHandler creates a monitor control handler.
func NewMonitorHandler(monitor *service.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

// Cycle handles POST /api/v1/monitor/cycle. It schedules a cycle on the
// loop's next wakeup rather than running one inline, so two requests can
// never race a cycle against itself.
func (h *MonitorHandler) Cycle(w http.ResponseWriter, r *http.Request) {
	h.monitor.RequestCycle()
	response.OK(w, map[string]string{"status": "cycle requested"})
}

// Reset handles POST /api/v1/monitor/reset. The loop clears validator and
// snapshot state before its next cycle; persisted clients and items are
// untouched.
func (h *MonitorHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.monitor.RequestReset()
	response.OK(w, map[string]string{"status": "reset requested"})
}
