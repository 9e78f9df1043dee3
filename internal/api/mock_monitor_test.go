package api

import (
	"github.com/martinsuchenak/presenced/internal/model"
	"github.com/martinsuchenak/presenced/internal/storage"
)

// mockMonitor implements Monitor for handler tests.
type mockMonitor struct {
	devices      []model.Device
	alerts       []model.Alert
	attendance   []model.AttendanceRow
	attendanceErr error
	cal          model.Calibration
	distanceMode bool
	monitoring   bool
	scanBusy     bool

	clearedAlerts  bool
	triggeredScans int
	lastWithDist   bool
}

func newMockMonitor() *mockMonitor {
	return &mockMonitor{cal: model.DefaultCalibration()}
}

func (m *mockMonitor) Devices() []model.Device { return m.devices }

func (m *mockMonitor) UpdateDevice(ip, name string, monitored bool, deviceType model.DeviceType) error {
	for i := range m.devices {
		if m.devices[i].IP == ip {
			m.devices[i].CustomName = name
			m.devices[i].Monitored = monitored
			m.devices[i].DeviceType = deviceType
			return nil
		}
	}
	return storage.ErrDeviceNotFound
}

func (m *mockMonitor) Alerts() []model.Alert { return m.alerts }

func (m *mockMonitor) ClearAlerts() {
	m.clearedAlerts = true
	m.alerts = nil
}

func (m *mockMonitor) TriggerScan(withDistance bool) bool {
	if m.scanBusy {
		return false
	}
	m.triggeredScans++
	m.lastWithDist = withDistance
	return true
}

func (m *mockMonitor) Calibration() model.Calibration { return m.cal }

func (m *mockMonitor) UpdateCalibration(cal model.Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	m.cal = cal
	return nil
}

func (m *mockMonitor) SetDistanceMode(enabled bool) { m.distanceMode = enabled }
func (m *mockMonitor) DistanceMode() bool           { return m.distanceMode }
func (m *mockMonitor) Monitoring() bool             { return m.monitoring }

func (m *mockMonitor) AttendanceForDate(date string) ([]model.AttendanceRow, error) {
	return m.attendance, m.attendanceErr
}

// mockController implements Controller for handler tests.
type mockController struct {
	running bool
	starts  int
	stops   int
}

func (c *mockController) Start() {
	c.starts++
	c.running = true
}

func (c *mockController) Stop() {
	c.stops++
	c.running = false
}

func (c *mockController) Running() bool { return c.running }
