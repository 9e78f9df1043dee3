// Package storage persists the device registry, the bounded alert ledger,
// and the append-only attendance record.
package storage

import (
	"errors"
	"time"

	"github.com/martinsuchenak/presenced/internal/model"
)

var (
	// ErrDeviceNotFound is returned when an update names an unknown IP.
	ErrDeviceNotFound = errors.New("device not found")
)

// Storage is the durable backing store for the monitor engine. The in-memory
// registry stays authoritative: a failed save is logged by the caller and
// retried at the next flush, never rolled back.
type Storage interface {
	LoadDevices() ([]model.Device, error)
	SaveDevices(devices []model.Device) error

	LoadAlerts() ([]model.Alert, error)
	SaveAlerts(alerts []model.Alert) error

	// AppendAttendance adds one row to the append-only attendance record.
	// Rows are never rewritten or compacted; this is the audit trail.
	AppendAttendance(alert model.Alert) error

	// AttendanceForDate returns attendance rows whose timestamp falls on
	// the given calendar date (YYYY-MM-DD) in loc, oldest first. The
	// Distance column reflects the device's current estimate.
	AttendanceForDate(date string, loc *time.Location) ([]model.AttendanceRow, error)

	Close() error
}
