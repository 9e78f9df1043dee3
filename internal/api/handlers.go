package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/model"
	"github.com/martinsuchenak/presenced/internal/storage"
)

// Monitor is the engine surface the API layer needs.
type Monitor interface {
	Devices() []model.Device
	UpdateDevice(ip, name string, monitored bool, deviceType model.DeviceType) error
	Alerts() []model.Alert
	ClearAlerts()
	TriggerScan(withDistance bool) bool
	Calibration() model.Calibration
	UpdateCalibration(cal model.Calibration) error
	SetDistanceMode(enabled bool)
	DistanceMode() bool
	Monitoring() bool
	AttendanceForDate(date string) ([]model.AttendanceRow, error)
}

// Controller starts and stops the background monitoring task.
type Controller interface {
	Start()
	Stop()
	Running() bool
}

// Handler handles HTTP requests
type Handler struct {
	monitor   Monitor
	scheduler Controller
}

// NewHandler creates a new API handler
func NewHandler(m Monitor, s Controller) *Handler {
	return &Handler{monitor: m, scheduler: s}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.getStatus)

	// Devices
	mux.HandleFunc("GET /api/devices", h.listDevices)
	mux.HandleFunc("PUT /api/devices/{ip}", h.updateDevice)

	// Alerts
	mux.HandleFunc("GET /api/alerts", h.listAlerts)
	mux.HandleFunc("DELETE /api/alerts", h.clearAlerts)

	// Scanning and monitoring
	mux.HandleFunc("POST /api/scan", h.triggerScan)
	mux.HandleFunc("POST /api/monitor/start", h.startMonitoring)
	mux.HandleFunc("POST /api/monitor/stop", h.stopMonitoring)
	mux.HandleFunc("PUT /api/distance-mode", h.setDistanceMode)

	// Calibration
	mux.HandleFunc("GET /api/calibration", h.getCalibration)
	mux.HandleFunc("PUT /api/calibration", h.updateCalibration)

	// Attendance
	mux.HandleFunc("GET /api/attendance/export", h.exportAttendance)
}

// getStatus handles GET /api/status
func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	devices := h.monitor.Devices()

	online := 0
	monitored := 0
	for _, d := range devices {
		if d.Online {
			online++
		}
		if d.Monitored {
			monitored++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"monitoring":    h.scheduler.Running(),
		"distance_mode": h.monitor.DistanceMode(),
		"devices":       len(devices),
		"online":        online,
		"monitored":     monitored,
		"alerts":        len(h.monitor.Alerts()),
		"calibration":   h.monitor.Calibration(),
	})
}

// listDevices handles GET /api/devices
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Devices())
}

// updateDevice handles PUT /api/devices/{ip}
func (h *Handler) updateDevice(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	if ip == "" {
		h.writeError(w, http.StatusBadRequest, "device IP required")
		return
	}

	var req struct {
		CustomName string           `json:"custom_name"`
		Monitored  bool             `json:"monitored"`
		DeviceType model.DeviceType `json:"device_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.monitor.UpdateDevice(ip, req.CustomName, req.Monitored, req.DeviceType); err != nil {
		if errors.Is(err, storage.ErrDeviceNotFound) {
			h.writeError(w, http.StatusNotFound, "device not found")
			return
		}
		h.internalError(w, err)
		return
	}

	for _, d := range h.monitor.Devices() {
		if d.IP == ip {
			h.writeJSON(w, http.StatusOK, d)
			return
		}
	}
	h.writeError(w, http.StatusNotFound, "device not found")
}

// listAlerts handles GET /api/alerts
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Alerts())
}

// clearAlerts handles DELETE /api/alerts
func (h *Handler) clearAlerts(w http.ResponseWriter, r *http.Request) {
	h.monitor.ClearAlerts()
	w.WriteHeader(http.StatusNoContent)
}

// triggerScan handles POST /api/scan. The response says whether the request
// claimed the cycle; a rejected request is not queued.
func (h *Handler) triggerScan(w http.ResponseWriter, r *http.Request) {
	withDistance := h.monitor.DistanceMode()
	if r.URL.Query().Get("distance") == "true" {
		withDistance = true
	}

	if !h.monitor.TriggerScan(withDistance) {
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"accepted": false,
			"reason":   "scan already in progress",
		})
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

// startMonitoring handles POST /api/monitor/start
func (h *Handler) startMonitoring(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Start()
	h.writeJSON(w, http.StatusOK, map[string]any{"monitoring": true})
}

// stopMonitoring handles POST /api/monitor/stop
func (h *Handler) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	h.writeJSON(w, http.StatusOK, map[string]any{"monitoring": false})
}

// setDistanceMode handles PUT /api/distance-mode
func (h *Handler) setDistanceMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.monitor.SetDistanceMode(req.Enabled)
	h.writeJSON(w, http.StatusOK, map[string]any{"distance_mode": req.Enabled})
}

// getCalibration handles GET /api/calibration
func (h *Handler) getCalibration(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Calibration())
}

// updateCalibration handles PUT /api/calibration
func (h *Handler) updateCalibration(w http.ResponseWriter, r *http.Request) {
	var cal model.Calibration
	if err := json.NewDecoder(r.Body).Decode(&cal); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.monitor.UpdateCalibration(cal); err != nil {
		var calErr *model.CalibrationError
		if errors.As(err, &calErr) {
			h.writeError(w, http.StatusBadRequest, calErr.Error())
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cal)
}

// exportAttendance handles GET /api/attendance/export?date=YYYY-MM-DD.
// The date defaults to today; the response is a CSV download.
func (h *Handler) exportAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rows, err := h.monitor.AttendanceForDate(date)
	if err != nil {
		h.internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance_%s.csv", date))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Time", "Action", "Name", "Device Type", "IP", "MAC", "Distance", "Message"})
	for _, row := range rows {
		cw.Write([]string{row.Time, row.Type, row.Name, row.DeviceType, row.IP, row.MAC, row.Distance, row.Message})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error("Failed to write attendance export", "error", err)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
