package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/presenced/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStorage implements Storage with a SQLite backend.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (or creates) the monitor database under dataDir.
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "presenced.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{db: db, path: dbPath}

	if err := ss.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return ss, nil
}

func (ss *SQLiteStorage) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	_, err = ss.db.Exec(string(schema))
	return err
}

// Close closes the database connection.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// LoadDevices returns every persisted device.
func (ss *SQLiteStorage) LoadDevices() ([]model.Device, error) {
	rows, err := ss.db.Query(`
		SELECT ip, mac, hostname, vendor, custom_name, device_type, monitored,
		       online, first_seen, last_seen, rssi, estimated_distance
		FROM devices ORDER BY ip`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var (
			d          model.Device
			deviceType string
			firstSeen  string
			lastSeen   string
			dist       sql.NullFloat64
		)
		if err := rows.Scan(&d.IP, &d.MAC, &d.Hostname, &d.Vendor, &d.CustomName,
			&deviceType, &d.Monitored, &d.Online, &firstSeen, &lastSeen, &d.RSSI, &dist); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}

		d.DeviceType = model.DeviceType(deviceType)
		d.FirstSeen = parseTime(firstSeen)
		d.LastSeen = parseTime(lastSeen)
		if dist.Valid {
			v := dist.Float64
			d.EstimatedDistance = &v
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// SaveDevices replaces the persisted registry with the given snapshot.
func (ss *SQLiteStorage) SaveDevices(devices []model.Device) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM devices`); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO devices (ip, mac, hostname, vendor, custom_name, device_type,
		                     monitored, online, first_seen, last_seen, rssi, estimated_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range devices {
		var dist any
		if d.EstimatedDistance != nil {
			dist = *d.EstimatedDistance
		}
		if _, err := stmt.Exec(d.IP, d.MAC, d.Hostname, d.Vendor, d.CustomName,
			string(d.DeviceType), d.Monitored, d.Online,
			formatTime(d.FirstSeen), formatTime(d.LastSeen), d.RSSI, dist); err != nil {
			return fmt.Errorf("inserting device %s: %w", d.IP, err)
		}
	}

	return tx.Commit()
}

// LoadAlerts returns the persisted alert ledger, newest first.
func (ss *SQLiteStorage) LoadAlerts() ([]model.Alert, error) {
	rows, err := ss.db.Query(`
		SELECT id, timestamp, type, ip, mac, device_name, device_type, message
		FROM alerts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a          model.Alert
			ts         string
			alertType  string
			deviceType string
		)
		if err := rows.Scan(&a.ID, &ts, &alertType, &a.IP, &a.MAC, &a.DeviceName, &deviceType, &a.Message); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		a.Timestamp = parseTime(ts)
		a.Type = model.AlertType(alertType)
		a.DeviceType = model.DeviceType(deviceType)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SaveAlerts replaces the persisted ledger snapshot (the attendance record
// is untouched; it lives in its own append-only table).
func (ss *SQLiteStorage) SaveAlerts(alerts []model.Alert) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM alerts`); err != nil {
		return fmt.Errorf("clearing alerts: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO alerts (position, id, timestamp, type, ip, mac, device_name, device_type, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range alerts {
		if _, err := stmt.Exec(i, a.ID, formatTime(a.Timestamp), string(a.Type),
			a.IP, a.MAC, a.DeviceName, string(a.DeviceType), a.Message); err != nil {
			return fmt.Errorf("inserting alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// AppendAttendance adds one row to the attendance record.
func (ss *SQLiteStorage) AppendAttendance(alert model.Alert) error {
	_, err := ss.db.Exec(`
		INSERT INTO attendance (timestamp, type, name, ip, mac, device_type, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(alert.Timestamp), string(alert.Type), alert.DeviceName,
		alert.IP, alert.MAC, string(alert.DeviceType), alert.Message)
	if err != nil {
		return fmt.Errorf("appending attendance: %w", err)
	}
	return nil
}

// AttendanceCount returns the total number of attendance rows ever recorded.
func (ss *SQLiteStorage) AttendanceCount() (int, error) {
	var count int
	if err := ss.db.QueryRow(`SELECT COUNT(*) FROM attendance`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting attendance: %w", err)
	}
	return count, nil
}

// AttendanceForDate returns attendance rows whose timestamp falls on the
// given calendar date in loc, joined with the device's current distance
// estimate, oldest first.
func (ss *SQLiteStorage) AttendanceForDate(date string, loc *time.Location) ([]model.AttendanceRow, error) {
	if loc == nil {
		loc = time.Local
	}
	dayStart, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", date, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := ss.db.Query(`
		SELECT a.timestamp, a.type, a.name, a.device_type, a.ip, a.mac, a.message,
		       d.estimated_distance
		FROM attendance a
		LEFT JOIN devices d ON d.ip = a.ip
		ORDER BY a.seq`)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var result []model.AttendanceRow
	for rows.Next() {
		var (
			ts         string
			rowType    string
			name       string
			deviceType string
			ip         string
			mac        string
			message    string
			dist       sql.NullFloat64
		)
		if err := rows.Scan(&ts, &rowType, &name, &deviceType, &ip, &mac, &message, &dist); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}

		when := parseTime(ts).In(loc)
		if when.Before(dayStart) || !when.Before(dayEnd) {
			continue
		}

		row := model.AttendanceRow{
			Time:       when.Format("15:04:05"),
			Type:       rowType,
			Name:       name,
			DeviceType: deviceType,
			IP:         ip,
			MAC:        mac,
			Message:    message,
		}
		if dist.Valid {
			row.Distance = fmt.Sprintf("%gm", dist.Float64)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
