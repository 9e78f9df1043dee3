package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paularlott/mcp"

	"github.com/martinsuchenak/presenced/internal/distance"
	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/model"
)

// Monitor is the engine surface exposed through MCP tools.
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
	AttendanceForDate(date string) ([]model.AttendanceRow, error)
}

// Controller starts and stops the background monitoring task.
type Controller interface {
	Start()
	Stop()
	Running() bool
}

// Server wraps the MCP server with the monitoring engine
type Server struct {
	mcpServer   *mcp.Server
	monitor     Monitor
	scheduler   Controller
	bearerToken string
}

// NewServer creates a new MCP server for presence monitoring
func NewServer(monitor Monitor, scheduler Controller, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("presenced", "1.0.0"),
		monitor:     monitor,
		scheduler:   scheduler,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

// registerTools registers all presence monitoring tools
func (s *Server) registerTools() {
	// device_list - List known devices
	s.mcpServer.RegisterTool(
		mcp.NewTool("device_list", "List all known devices with presence and distance state, optionally filtered",
			mcp.String("query", "Filter by name, hostname, IP or MAC substring"),
			mcp.String("online", "Filter by online state (true or false)"),
		),
		s.handleDeviceList,
	)

	// device_update - Edit a device
	s.mcpServer.RegisterTool(
		mcp.NewTool("device_update", "Update a device's name, monitored flag or type. Monitored devices produce arrival/departure alerts.",
			mcp.String("ip", "Device IP address", mcp.Required()),
			mcp.String("custom_name", "Display name for the device"),
			mcp.String("monitored", "Whether to track presence for this device (true or false)"),
			mcp.String("device_type", "Device type: employee, visitor, equipment or other"),
		),
		s.handleDeviceUpdate,
	)

	// alert_list - List recent alerts
	s.mcpServer.RegisterTool(
		mcp.NewTool("alert_list", "List recent presence alerts, newest first",
			mcp.String("limit", "Maximum number of alerts to return (default 20)"),
		),
		s.handleAlertList,
	)

	// alert_clear - Clear the alert list
	s.mcpServer.RegisterTool(
		mcp.NewTool("alert_clear", "Clear the alert list. The durable attendance record is kept."),
		s.handleAlertClear,
	)

	// scan_run - Trigger a scan cycle
	s.mcpServer.RegisterTool(
		mcp.NewTool("scan_run", "Trigger a network scan cycle. Returns immediately; the scan runs in the background.",
			mcp.String("distance", "Set to true to include distance estimation"),
		),
		s.handleScanRun,
	)

	// monitor_start / monitor_stop - Control the background scheduler
	s.mcpServer.RegisterTool(
		mcp.NewTool("monitor_start", "Start continuous background monitoring with periodic scan cycles"),
		s.handleMonitorStart,
	)
	s.mcpServer.RegisterTool(
		mcp.NewTool("monitor_stop", "Stop continuous background monitoring"),
		s.handleMonitorStop,
	)

	// distance_mode_set - Toggle distance estimation
	s.mcpServer.RegisterTool(
		mcp.NewTool("distance_mode_set", "Enable or disable distance estimation for future scan cycles",
			mcp.String("enabled", "true or false", mcp.Required()),
		),
		s.handleDistanceModeSet,
	)

	// calibration_get / calibration_set - Path-loss parameters
	s.mcpServer.RegisterTool(
		mcp.NewTool("calibration_get", "Get the current distance calibration parameters"),
		s.handleCalibrationGet,
	)
	s.mcpServer.RegisterTool(
		mcp.NewTool("calibration_set", "Update the distance calibration parameters",
			mcp.String("reference_rssi", "Signal strength at 1 meter in dBm, e.g. -40"),
			mcp.String("path_loss_exponent", "Path loss exponent, 2.0 for open space"),
			mcp.String("distance_threshold", "Alert threshold in meters"),
		),
		s.handleCalibrationSet,
	)

	// attendance_export - Attendance report for a date
	s.mcpServer.RegisterTool(
		mcp.NewTool("attendance_export", "Get the attendance log for a calendar date",
			mcp.String("date", "Date in YYYY-MM-DD format (default today)"),
		),
		s.handleAttendanceExport,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	// Check bearer token if configured
	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// Tool handlers

func (s *Server) handleDeviceList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	query := strings.ToLower(req.StringOr("query", ""))
	onlineFilter := req.StringOr("online", "")

	devices := s.monitor.Devices()
	var matched []model.Device
	for _, d := range devices {
		if onlineFilter == "true" && !d.Online {
			continue
		}
		if onlineFilter == "false" && d.Online {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(d.CustomName + " " + d.Hostname + " " + d.IP + " " + d.MAC)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		matched = append(matched, d)
	}

	log.Debug("MCP device list", "total", len(devices), "matched", len(matched), "query", query)

	if len(matched) == 0 {
		return mcp.NewToolResponseText("No devices found"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d devices:\n\n", len(matched)))
	for _, d := range matched {
		result.WriteString(s.formatDeviceSummary(&d))
		result.WriteString("\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleDeviceUpdate(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	ip, err := req.String("ip")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("ip is required: " + err.Error())
	}

	// Start from the current device so omitted parameters keep their value.
	var current *model.Device
	for _, d := range s.monitor.Devices() {
		if d.IP == ip {
			current = &d
			break
		}
	}
	if current == nil {
		return nil, mcp.NewToolErrorInvalidParams("device not found: " + ip)
	}

	name := req.StringOr("custom_name", current.CustomName)
	deviceType := model.DeviceType(req.StringOr("device_type", string(current.DeviceType)))
	if !model.ValidDeviceType(deviceType) {
		return nil, mcp.NewToolErrorInvalidParams("invalid device_type: " + string(deviceType))
	}

	monitored := current.Monitored
	if v := req.StringOr("monitored", ""); v != "" {
		monitored, err = strconv.ParseBool(v)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("monitored must be true or false")
		}
	}

	if err := s.monitor.UpdateDevice(ip, name, monitored, deviceType); err != nil {
		log.Error("MCP device update failed", "error", err, "ip", ip)
		return nil, mcp.NewToolErrorInternal("failed to update device: " + err.Error())
	}

	log.Info("MCP device updated", "ip", ip, "monitored", monitored, "type", deviceType)
	return mcp.NewToolResponseText(fmt.Sprintf("Device updated: %s (monitored: %v, type: %s)", ip, monitored, deviceType)), nil
}

func (s *Server) handleAlertList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	limit := 20
	if v := req.StringOr("limit", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, mcp.NewToolErrorInvalidParams("limit must be a positive integer")
		}
		limit = n
	}

	alerts := s.monitor.Alerts()
	if len(alerts) == 0 {
		return mcp.NewToolResponseText("No alerts"), nil
	}
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Showing %d alerts (newest first):\n\n", len(alerts)))
	for _, a := range alerts {
		line := fmt.Sprintf("[%s] %s: %s (%s)", a.Timestamp.Format("2006-01-02 15:04:05"), a.Type, a.DeviceName, a.IP)
		if a.Message != "" {
			line += " - " + a.Message
		}
		result.WriteString(line + "\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleAlertClear(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	s.monitor.ClearAlerts()
	log.Info("MCP alerts cleared")
	return mcp.NewToolResponseText("Alerts cleared. The attendance record is unchanged."), nil
}

func (s *Server) handleScanRun(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	withDistance := s.monitor.DistanceMode()
	if req.StringOr("distance", "") == "true" {
		withDistance = true
	}

	if !s.monitor.TriggerScan(withDistance) {
		return mcp.NewToolResponseText("Scan rejected: a scan cycle is already in progress"), nil
	}

	log.Info("MCP scan triggered", "distance", withDistance)
	return mcp.NewToolResponseText(fmt.Sprintf("Scan started (distance estimation: %v)", withDistance)), nil
}

func (s *Server) handleMonitorStart(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if s.scheduler.Running() {
		return mcp.NewToolResponseText("Monitoring is already running"), nil
	}
	s.scheduler.Start()
	log.Info("MCP monitoring started")
	return mcp.NewToolResponseText("Monitoring started"), nil
}

func (s *Server) handleMonitorStop(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if !s.scheduler.Running() {
		return mcp.NewToolResponseText("Monitoring is not running"), nil
	}
	s.scheduler.Stop()
	log.Info("MCP monitoring stopped")
	return mcp.NewToolResponseText("Monitoring stopped"), nil
}

func (s *Server) handleDistanceModeSet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	v, err := req.String("enabled")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("enabled is required: " + err.Error())
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("enabled must be true or false")
	}

	s.monitor.SetDistanceMode(enabled)
	return mcp.NewToolResponseText(fmt.Sprintf("Distance mode set to %v", enabled)), nil
}

func (s *Server) handleCalibrationGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cal := s.monitor.Calibration()
	return mcp.NewToolResponseText(fmt.Sprintf(
		"Reference RSSI: %g dBm\nPath loss exponent: %g\nDistance threshold: %g m",
		cal.ReferenceRSSI, cal.PathLossExponent, cal.DistanceThreshold)), nil
}

func (s *Server) handleCalibrationSet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cal := s.monitor.Calibration()

	if v := req.StringOr("reference_rssi", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("reference_rssi must be a number")
		}
		cal.ReferenceRSSI = f
	}
	if v := req.StringOr("path_loss_exponent", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("path_loss_exponent must be a number")
		}
		cal.PathLossExponent = f
	}
	if v := req.StringOr("distance_threshold", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("distance_threshold must be a number")
		}
		cal.DistanceThreshold = f
	}

	if err := s.monitor.UpdateCalibration(cal); err != nil {
		return nil, mcp.NewToolErrorInvalidParams(err.Error())
	}

	log.Info("MCP calibration updated", "reference_rssi", cal.ReferenceRSSI,
		"path_loss_exponent", cal.PathLossExponent, "distance_threshold", cal.DistanceThreshold)
	return mcp.NewToolResponseText("Calibration updated"), nil
}

func (s *Server) handleAttendanceExport(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	date := req.StringOr("date", "")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, mcp.NewToolErrorInvalidParams("date must be YYYY-MM-DD")
	}

	rows, err := s.monitor.AttendanceForDate(date)
	if err != nil {
		log.Error("MCP attendance export failed", "error", err, "date", date)
		return nil, mcp.NewToolErrorInternal("failed to read attendance: " + err.Error())
	}

	if len(rows) == 0 {
		return mcp.NewToolResponseText("No attendance records for " + date), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Attendance for %s (%d events):\n\n", date, len(rows)))
	for _, row := range rows {
		line := fmt.Sprintf("%s %s %s (%s)", row.Time, row.Type, row.Name, row.IP)
		if row.Distance != "" {
			line += " at " + row.Distance
		}
		if row.Message != "" {
			line += " - " + row.Message
		}
		result.WriteString(line + "\n")
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) formatDeviceSummary(d *model.Device) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Name: %s\n", d.DisplayName()))
	result.WriteString(fmt.Sprintf("IP: %s\n", d.IP))
	if d.MAC != "" {
		result.WriteString(fmt.Sprintf("MAC: %s\n", d.MAC))
	}
	if d.Vendor != "" {
		result.WriteString(fmt.Sprintf("Vendor: %s\n", d.Vendor))
	}
	result.WriteString(fmt.Sprintf("Type: %s\n", d.DeviceType))

	state := "offline"
	if d.Online {
		state = "online"
	}
	result.WriteString(fmt.Sprintf("Status: %s, monitored: %v\n", state, d.Monitored))

	if d.EstimatedDistance != nil {
		zone := distance.ZoneForDistance(d.EstimatedDistance)
		result.WriteString(fmt.Sprintf("Distance: %.1fm (%s)\n", *d.EstimatedDistance, zone))
	}
	if !d.LastSeen.IsZero() {
		result.WriteString(fmt.Sprintf("Last seen: %s\n", d.LastSeen.Format("2006-01-02 15:04:05")))
	}
	return result.String()
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}
