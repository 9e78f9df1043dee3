package storage

import (
	"testing"
	"time"

	"github.com/martinsuchenak/presenced/internal/model"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	ss, err := NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { ss.Close() })
	return ss
}

func TestSQLiteStorage_DeviceRoundTrip(t *testing.T) {
	ss := setupTestStorage(t)

	dist := 12.5
	now := time.Now().Truncate(time.Millisecond)
	devices := []model.Device{
		{
			IP:                "192.168.1.10",
			MAC:               "AA:BB:CC:DD:EE:FF",
			Hostname:          "laptop",
			Vendor:            "Intel",
			CustomName:        "Alice's laptop",
			DeviceType:        model.DeviceTypeEmployee,
			Monitored:         true,
			Online:            true,
			FirstSeen:         now.Add(-time.Hour),
			LastSeen:          now,
			RSSI:              -62,
			EstimatedDistance: &dist,
		},
		{
			IP:         "192.168.1.20",
			DeviceType: model.DeviceTypeEquipment,
			FirstSeen:  now,
		},
	}

	if err := ss.SaveDevices(devices); err != nil {
		t.Fatalf("SaveDevices: %v", err)
	}

	loaded, err := ss.LoadDevices()
	if err != nil {
		t.Fatalf("LoadDevices: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d devices, want 2", len(loaded))
	}

	got := loaded[0]
	if got.IP != "192.168.1.10" || got.MAC != "AA:BB:CC:DD:EE:FF" || got.CustomName != "Alice's laptop" {
		t.Errorf("device identity did not round-trip: %+v", got)
	}
	if !got.Monitored || !got.Online || got.RSSI != -62 {
		t.Errorf("device state did not round-trip: %+v", got)
	}
	if got.EstimatedDistance == nil || *got.EstimatedDistance != 12.5 {
		t.Errorf("estimated distance did not round-trip: %v", got.EstimatedDistance)
	}
	if !got.LastSeen.Equal(now) {
		t.Errorf("last_seen = %v, want %v", got.LastSeen, now)
	}

	if loaded[1].EstimatedDistance != nil {
		t.Error("absent distance should load as nil, not zero")
	}
}

func TestSQLiteStorage_SaveDevicesReplaces(t *testing.T) {
	ss := setupTestStorage(t)

	now := time.Now()
	if err := ss.SaveDevices([]model.Device{
		{IP: "10.0.0.1", DeviceType: model.DeviceTypeEmployee, FirstSeen: now},
		{IP: "10.0.0.2", DeviceType: model.DeviceTypeEmployee, FirstSeen: now},
	}); err != nil {
		t.Fatalf("SaveDevices: %v", err)
	}

	if err := ss.SaveDevices([]model.Device{
		{IP: "10.0.0.1", DeviceType: model.DeviceTypeEmployee, FirstSeen: now},
	}); err != nil {
		t.Fatalf("SaveDevices: %v", err)
	}

	loaded, err := ss.LoadDevices()
	if err != nil {
		t.Fatalf("LoadDevices: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("loaded %d devices after replace, want 1", len(loaded))
	}
}

func TestSQLiteStorage_AlertRoundTripKeepsOrder(t *testing.T) {
	ss := setupTestStorage(t)

	now := time.Now()
	alerts := []model.Alert{
		{ID: "a-2", Timestamp: now, Type: model.AlertDeparture, IP: "10.0.0.1", DeviceName: "laptop", DeviceType: model.DeviceTypeEmployee},
		{ID: "a-1", Timestamp: now.Add(-time.Minute), Type: model.AlertArrival, IP: "10.0.0.1", DeviceName: "laptop", DeviceType: model.DeviceTypeEmployee},
	}

	if err := ss.SaveAlerts(alerts); err != nil {
		t.Fatalf("SaveAlerts: %v", err)
	}

	loaded, err := ss.LoadAlerts()
	if err != nil {
		t.Fatalf("LoadAlerts: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d alerts, want 2", len(loaded))
	}
	if loaded[0].ID != "a-2" || loaded[1].ID != "a-1" {
		t.Errorf("alert order not preserved: %s, %s", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].Type != model.AlertDeparture {
		t.Errorf("alert type = %s, want departure", loaded[0].Type)
	}
}

func TestSQLiteStorage_AttendanceIsAppendOnly(t *testing.T) {
	ss := setupTestStorage(t)

	alert := model.Alert{
		ID: "a-1", Timestamp: time.Now(), Type: model.AlertArrival,
		IP: "10.0.0.1", DeviceName: "laptop", DeviceType: model.DeviceTypeEmployee,
	}

	for i := 0; i < 5; i++ {
		if err := ss.AppendAttendance(alert); err != nil {
			t.Fatalf("AppendAttendance: %v", err)
		}
	}

	// Clearing the alert ledger must not touch attendance.
	if err := ss.SaveAlerts(nil); err != nil {
		t.Fatalf("SaveAlerts(nil): %v", err)
	}

	count, err := ss.AttendanceCount()
	if err != nil {
		t.Fatalf("AttendanceCount: %v", err)
	}
	if count != 5 {
		t.Errorf("attendance count = %d, want 5", count)
	}
}

func TestSQLiteStorage_AttendanceForDateBoundaries(t *testing.T) {
	ss := setupTestStorage(t)
	loc := time.Local

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	stamps := []struct {
		ts   time.Time
		want bool
	}{
		{day.Add(-time.Second), false},                        // 23:59:59 previous day
		{day, true},                                           // 00:00:00
		{day.Add(12 * time.Hour), true},                       // midday
		{day.Add(24*time.Hour - time.Second), true},           // 23:59:59
		{day.Add(24 * time.Hour), false},                      // next day 00:00:00
	}

	for i, s := range stamps {
		alert := model.Alert{
			ID: string(rune('a' + i)), Timestamp: s.ts, Type: model.AlertArrival,
			IP: "10.0.0.1", DeviceName: "laptop", DeviceType: model.DeviceTypeEmployee,
		}
		if err := ss.AppendAttendance(alert); err != nil {
			t.Fatalf("AppendAttendance: %v", err)
		}
	}

	rows, err := ss.AttendanceForDate("2026-08-28", loc)
	if err != nil {
		t.Fatalf("AttendanceForDate: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Time != "00:00:00" {
		t.Errorf("first row time = %s, want 00:00:00", rows[0].Time)
	}
	if rows[2].Time != "23:59:59" {
		t.Errorf("last row time = %s, want 23:59:59", rows[2].Time)
	}
}

func TestSQLiteStorage_AttendanceJoinsCurrentDistance(t *testing.T) {
	ss := setupTestStorage(t)
	loc := time.Local

	dist := 42.5
	now := time.Now()
	if err := ss.SaveDevices([]model.Device{{
		IP: "10.0.0.1", DeviceType: model.DeviceTypeEmployee,
		FirstSeen: now, EstimatedDistance: &dist,
	}}); err != nil {
		t.Fatalf("SaveDevices: %v", err)
	}

	alert := model.Alert{
		ID: "a-1", Timestamp: now, Type: model.AlertDistance,
		IP: "10.0.0.1", DeviceName: "laptop", DeviceType: model.DeviceTypeEmployee,
	}
	if err := ss.AppendAttendance(alert); err != nil {
		t.Fatalf("AppendAttendance: %v", err)
	}

	rows, err := ss.AttendanceForDate(now.In(loc).Format("2006-01-02"), loc)
	if err != nil {
		t.Fatalf("AttendanceForDate: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Distance != "42.5m" {
		t.Errorf("distance column = %q, want 42.5m", rows[0].Distance)
	}
}
