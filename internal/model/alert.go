package model

import (
	"time"
)

// AlertType is the kind of presence event an alert records.
type AlertType string

const (
	AlertArrival   AlertType = "arrival"
	AlertDeparture AlertType = "departure"
	AlertDistance  AlertType = "distance"
)

// Alert is an immutable event record. Device fields are snapshots taken at
// emit time; later edits to the device do not change historical alerts.
type Alert struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Type       AlertType  `json:"type"`
	IP         string     `json:"ip"`
	MAC        string     `json:"mac,omitempty"`
	DeviceName string     `json:"device_name"`
	DeviceType DeviceType `json:"device_type"`
	Message    string     `json:"message,omitempty"`
}

// Calibration holds the tunable parameters of the log-distance path-loss
// model plus the distance alert threshold.
type Calibration struct {
	ReferenceRSSI     float64 `json:"reference_rssi"`     // signal strength at 1 meter, dBm
	PathLossExponent  float64 `json:"path_loss_exponent"` // 2.0 open space, higher indoors
	DistanceThreshold float64 `json:"distance_threshold"` // meters; crossing it triggers the loud alert
}

// DefaultCalibration returns the out-of-the-box path-loss parameters.
func DefaultCalibration() Calibration {
	return Calibration{
		ReferenceRSSI:     -40,
		PathLossExponent:  2.0,
		DistanceThreshold: 50,
	}
}

// Validate checks calibration values for physical plausibility.
func (c Calibration) Validate() error {
	if c.ReferenceRSSI > 0 || c.ReferenceRSSI < -120 {
		return &CalibrationError{Field: "reference_rssi", Reason: "must be between -120 and 0 dBm"}
	}
	if c.PathLossExponent <= 0 || c.PathLossExponent > 10 {
		return &CalibrationError{Field: "path_loss_exponent", Reason: "must be between 0 and 10"}
	}
	if c.DistanceThreshold <= 0 {
		return &CalibrationError{Field: "distance_threshold", Reason: "must be positive"}
	}
	return nil
}

// CalibrationError reports an out-of-range calibration field.
type CalibrationError struct {
	Field  string
	Reason string
}

func (e *CalibrationError) Error() string {
	return "invalid calibration: " + e.Field + " " + e.Reason
}

// AttendanceRow is one row of the attendance export for a calendar date.
type AttendanceRow struct {
	Time       string `json:"time"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	DeviceType string `json:"device_type"`
	IP         string `json:"ip"`
	MAC        string `json:"mac"`
	Distance   string `json:"distance"`
	Message    string `json:"message"`
}
