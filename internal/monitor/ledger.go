package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/model"
	"github.com/martinsuchenak/presenced/internal/storage"
)

// maxLedgerAlerts bounds the in-memory alert list; older entries are evicted
// from the tail. The attendance record keeps every alert ever made.
const maxLedgerAlerts = 1000

// Ledger is the ordered, size-bounded event log. Every recorded alert is
// appended to the durable attendance record before it becomes visible to
// readers.
type Ledger struct {
	mu     sync.RWMutex
	alerts []model.Alert
	store  storage.Storage
}

// NewLedger creates an empty ledger backed by the given store.
func NewLedger(store storage.Storage) *Ledger {
	return &Ledger{store: store}
}

// Restore replaces the in-memory list with a persisted snapshot.
func (l *Ledger) Restore(alerts []model.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(alerts) > maxLedgerAlerts {
		alerts = alerts[:maxLedgerAlerts]
	}
	l.alerts = alerts
}

// Record builds an alert from the device's current identity fields (a
// snapshot, not a live reference), appends it to the attendance record, and
// prepends it to the bounded in-memory list.
func (l *Ledger) Record(device *model.Device, alertType model.AlertType, message string) model.Alert {
	alert := model.Alert{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Type:       alertType,
		IP:         device.IP,
		MAC:        device.MAC,
		DeviceName: device.DisplayName(),
		DeviceType: device.DeviceType,
		Message:    message,
	}

	// Attendance is the audit trail; it is written before the alert is
	// visible to readers. In-memory state stays authoritative on failure.
	if err := l.store.AppendAttendance(alert); err != nil {
		log.Error("Failed to append attendance record", "error", err, "ip", alert.IP, "type", alert.Type)
	}

	l.mu.Lock()
	l.alerts = append([]model.Alert{alert}, l.alerts...)
	if len(l.alerts) > maxLedgerAlerts {
		l.alerts = l.alerts[:maxLedgerAlerts]
	}
	l.mu.Unlock()

	return alert
}

// Alerts returns a copy of the ledger, newest first.
func (l *Ledger) Alerts() []model.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Alert, len(l.alerts))
	copy(out, l.alerts)
	return out
}

// Len returns the number of in-memory alerts.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}

// Clear empties the in-memory list. The attendance record is untouched.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.alerts = nil
	l.mu.Unlock()
}
