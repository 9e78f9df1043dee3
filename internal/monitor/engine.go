// Package monitor is the presence and distance monitoring engine: the scan
// cycle over the local subnet, the per-device presence state machine, the
// bounded alert ledger, and the scheduler that drives periodic cycles.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/martinsuchenak/presenced/internal/distance"
	"github.com/martinsuchenak/presenced/internal/identity"
	"github.com/martinsuchenak/presenced/internal/log"
	"github.com/martinsuchenak/presenced/internal/model"
	"github.com/martinsuchenak/presenced/internal/notify"
	"github.com/martinsuchenak/presenced/internal/probe"
	"github.com/martinsuchenak/presenced/internal/storage"
)

// distanceAlertDelta is the minimum change in estimated distance, in meters,
// before a zone transition is even considered. Filters estimator jitter.
const distanceAlertDelta = 10

// Options configures an Engine.
type Options struct {
	Subnet         string // CIDR to sweep; empty means autodetect the local /24
	ProbeWorkers   int    // concurrent probes per cycle (default 32)
	LatencySamples int    // echo requests per latency measurement (default 5)
	DistanceMode   bool   // start with distance estimation enabled
}

// Engine owns the device registry and turns raw scan results into arrival,
// departure and zone-transition events. It is constructed once at process
// start and shared by the scheduler and the API layer; the atomic busy flag
// is the sole guard against overlapping cycles.
type Engine struct {
	mu      sync.RWMutex
	devices map[string]*model.Device
	cal     model.Calibration

	scanning     atomic.Bool
	monitoring   atomic.Bool
	distanceMode atomic.Bool

	ledger   *Ledger
	store    storage.Storage
	prober   probe.Prober
	resolver identity.Resolver
	notifier notify.Notifier

	subnet         string
	probeWorkers   int
	latencySamples int
}

// NewEngine creates the monitoring engine. Call Load before first use to
// restore persisted state.
func NewEngine(store storage.Storage, prober probe.Prober, resolver identity.Resolver, notifier notify.Notifier, opts Options) *Engine {
	if opts.ProbeWorkers <= 0 {
		opts.ProbeWorkers = 32
	}
	if opts.LatencySamples <= 0 {
		opts.LatencySamples = 5
	}
	if notifier == nil {
		notifier = notify.Silent{}
	}

	e := &Engine{
		devices:        make(map[string]*model.Device),
		cal:            model.DefaultCalibration(),
		ledger:         NewLedger(store),
		store:          store,
		prober:         prober,
		resolver:       resolver,
		notifier:       notifier,
		subnet:         opts.Subnet,
		probeWorkers:   opts.ProbeWorkers,
		latencySamples: opts.LatencySamples,
	}
	e.distanceMode.Store(opts.DistanceMode)
	return e
}

// Load restores the device registry and alert ledger from storage.
func (e *Engine) Load() error {
	devices, err := e.store.LoadDevices()
	if err != nil {
		return err
	}
	alerts, err := e.store.LoadAlerts()
	if err != nil {
		return err
	}

	e.mu.Lock()
	for i := range devices {
		d := devices[i]
		e.devices[d.IP] = &d
	}
	e.mu.Unlock()
	e.ledger.Restore(alerts)

	log.Info("Restored monitor state", "devices", len(devices), "alerts", len(alerts))
	return nil
}

// hostResult is what the probe workers hand back for one reachable address.
type hostResult struct {
	ip       string
	mac      string
	hostname string
	vendor   string

	rssi       int
	distanceOK bool
	meters     float64
}

// Scan runs one full cycle synchronously. It returns false when a cycle is
// already in progress; the rejected request is never queued.
func (e *Engine) Scan(ctx context.Context, withDistance bool) bool {
	if !e.scanning.CompareAndSwap(false, true) {
		log.Debug("Scan request rejected, cycle already in progress")
		return false
	}
	defer e.scanning.Store(false)

	e.sweep(ctx, withDistance)
	return true
}

// TriggerScan starts a cycle on its own goroutine (fire and forget). The
// busy flag is claimed before returning so callers get an accurate
// accepted/rejected answer.
func (e *Engine) TriggerScan(withDistance bool) bool {
	if !e.scanning.CompareAndSwap(false, true) {
		log.Debug("Scan request rejected, cycle already in progress")
		return false
	}

	go func() {
		defer e.scanning.Store(false)
		e.sweep(context.Background(), withDistance)
	}()
	return true
}

// sweep performs one scan cycle. Callers must hold the scanning flag.
func (e *Engine) sweep(ctx context.Context, withDistance bool) {
	start := time.Now()

	subnet := e.subnet
	if subnet == "" {
		subnet = detectLocalSubnet()
	}
	ips, err := candidateIPs(subnet)
	if err != nil {
		log.Error("Scan cycle aborted", "subnet", subnet, "error", err)
		return
	}

	cal := e.Calibration()
	monitoring := e.monitoring.Load()

	log.Info("Starting scan cycle", "subnet", subnet, "hosts", len(ips),
		"distance", withDistance, "monitoring", monitoring)

	// Snapshot prior state and reset online flags so that hosts which do
	// not answer this cycle default to offline.
	prevOnline := make(map[string]bool)
	prevDistance := make(map[string]*float64)
	e.mu.Lock()
	for ip, d := range e.devices {
		prevOnline[ip] = d.Online
		prevDistance[ip] = d.EstimatedDistance
		d.Online = false
	}
	e.mu.Unlock()

	results := e.probeAll(ctx, ips, withDistance, cal)

	// Apply phase: single writer, strictly after all probes finished.
	now := time.Now()
	online := 0

	e.mu.Lock()
	for _, r := range results {
		d, exists := e.devices[r.ip]
		if !exists {
			d = &model.Device{
				IP:         r.ip,
				MAC:        r.mac,
				Hostname:   r.hostname,
				Vendor:     r.vendor,
				DeviceType: model.DeviceTypeEmployee,
				Monitored:  false,
				FirstSeen:  now,
			}
			e.devices[r.ip] = d
			log.Info("New device discovered", "ip", r.ip, "mac", r.mac, "hostname", r.hostname)
		}

		d.Online = true
		d.LastSeen = now
		online++

		if withDistance {
			var dist *float64
			if r.distanceOK {
				m := r.meters
				dist = &m
			}
			d.RSSI = r.rssi
			d.EstimatedDistance = dist

			if monitoring {
				e.checkDistanceTransition(d, prevDistance[r.ip], cal)
			}
		}
	}

	// Presence state machine: diff the previous cycle's snapshot against
	// this cycle's result for every monitored device. No debounce; one
	// missed probe flips a device to departed.
	if monitoring {
		for ip, d := range e.devices {
			if !d.Monitored {
				continue
			}
			wasOnline := prevOnline[ip]
			switch {
			case !wasOnline && d.Online:
				e.ledger.Record(d, model.AlertArrival, "")
				log.Info("Arrival", "ip", ip, "name", d.Label())
				e.notifier.Arrival()
			case wasOnline && !d.Online:
				e.ledger.Record(d, model.AlertDeparture, "")
				log.Info("Departure", "ip", ip, "name", d.Label())
				e.notifier.Departure()
			}
		}
	}
	e.mu.Unlock()

	e.persist()
	log.Info("Scan cycle complete", "online", online, "duration", time.Since(start).Round(time.Millisecond))
}

// probeAll sweeps the candidate addresses with bounded parallelism and
// returns one result per reachable host. Per-host failures are isolated;
// an unreachable or erroring host simply produces no result.
func (e *Engine) probeAll(ctx context.Context, ips []string, withDistance bool, cal model.Calibration) []hostResult {
	sem := make(chan struct{}, e.probeWorkers)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []hostResult
	)

	for _, ip := range ips {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if !e.prober.Probe(ctx, ip) {
				return
			}

			r := hostResult{ip: ip}

			e.mu.RLock()
			_, known := e.devices[ip]
			e.mu.RUnlock()

			if !known {
				// Resolve identity once, at discovery time. Failures
				// leave fields absent; the device is created regardless.
				r.mac = e.resolver.MAC(ctx, ip)
				r.hostname = e.resolver.Hostname(ctx, ip)
				if r.mac != "" {
					r.vendor = e.resolver.Vendor(r.mac)
				}
			}

			if withDistance {
				samples := e.prober.LatencySamples(ctx, ip, e.latencySamples)
				r.rssi = distance.RSSIFromSamples(samples)
				r.meters, r.distanceOK = distance.Estimate(cal, r.rssi)
			}

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(ip)
	}

	wg.Wait()
	return results
}

// checkDistanceTransition emits a distance alert when a monitored device
// moved far enough to land in a different zone. Caller holds e.mu.
func (e *Engine) checkDistanceTransition(d *model.Device, prev *float64, cal model.Calibration) {
	if !d.Monitored || prev == nil || d.EstimatedDistance == nil {
		return
	}

	cur := *d.EstimatedDistance
	if math.Abs(cur-*prev) <= distanceAlertDelta {
		return
	}

	prevZone := distance.ZoneFor(*prev, true)
	newZone := distance.ZoneFor(cur, true)
	if prevZone == newZone {
		return
	}

	message := fmt.Sprintf("%s moved from %s to %s (%dm → %dm)",
		d.Label(), prevZone, newZone, int(*prev), int(cur))
	e.ledger.Record(d, model.AlertDistance, message)
	log.Info("Zone transition", "ip", d.IP, "from", prevZone, "to", newZone, "meters", cur)

	if cur > cal.DistanceThreshold {
		e.notifier.DistanceThreshold()
	}
}

// persist flushes the registry and ledger. Failures are logged; in-memory
// state stays authoritative until the next successful flush.
func (e *Engine) persist() {
	if err := e.store.SaveDevices(e.Devices()); err != nil {
		log.Error("Failed to persist device registry", "error", err)
	}
	if err := e.store.SaveAlerts(e.ledger.Alerts()); err != nil {
		log.Error("Failed to persist alert ledger", "error", err)
	}
}

// Devices returns a snapshot of the registry, ordered by IP.
func (e *Engine) Devices() []model.Device {
	e.mu.RLock()
	out := make([]model.Device, 0, len(e.devices))
	for _, d := range e.devices {
		out = append(out, *d)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

// Alerts returns the alert ledger, newest first.
func (e *Engine) Alerts() []model.Alert {
	return e.ledger.Alerts()
}

// UpdateDevice applies a user edit to a known device and persists it.
func (e *Engine) UpdateDevice(ip, name string, monitored bool, deviceType model.DeviceType) error {
	if !model.ValidDeviceType(deviceType) {
		deviceType = model.DeviceTypeEmployee
	}

	e.mu.Lock()
	d, ok := e.devices[ip]
	if !ok {
		e.mu.Unlock()
		return storage.ErrDeviceNotFound
	}
	d.CustomName = name
	d.Monitored = monitored
	d.DeviceType = deviceType
	e.mu.Unlock()

	e.persist()
	log.Info("Device updated", "ip", ip, "name", name, "monitored", monitored, "type", deviceType)
	return nil
}

// Calibration returns the current path-loss parameters.
func (e *Engine) Calibration() model.Calibration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cal
}

// UpdateCalibration validates and applies new path-loss parameters.
func (e *Engine) UpdateCalibration(cal model.Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cal = cal
	e.mu.Unlock()

	e.persist()
	log.Info("Calibration updated", "reference_rssi", cal.ReferenceRSSI,
		"path_loss_exponent", cal.PathLossExponent, "distance_threshold", cal.DistanceThreshold)
	return nil
}

// SetDistanceMode enables or disables distance estimation for future cycles.
func (e *Engine) SetDistanceMode(enabled bool) {
	e.distanceMode.Store(enabled)
	log.Info("Distance mode changed", "enabled", enabled)
}

// DistanceMode reports whether distance estimation is active.
func (e *Engine) DistanceMode() bool {
	return e.distanceMode.Load()
}

// SetMonitoring flips presence alerting on or off. The scheduler calls this
// when it starts and stops.
func (e *Engine) SetMonitoring(enabled bool) {
	e.monitoring.Store(enabled)
}

// Monitoring reports whether presence alerting is active.
func (e *Engine) Monitoring() bool {
	return e.monitoring.Load()
}

// ClearAlerts empties the in-memory ledger and persists the empty snapshot.
// The attendance record is an audit trail and is left untouched.
func (e *Engine) ClearAlerts() {
	e.ledger.Clear()
	if err := e.store.SaveAlerts(nil); err != nil {
		log.Error("Failed to persist cleared ledger", "error", err)
	}
	log.Info("Alert ledger cleared")
}

// AttendanceForDate returns the attendance export rows for a calendar date.
func (e *Engine) AttendanceForDate(date string) ([]model.AttendanceRow, error) {
	return e.store.AttendanceForDate(date, time.Local)
}
