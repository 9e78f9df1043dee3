// Package distance converts probe latency into a coarse signal-strength
// estimate and, via the log-distance path-loss model, into meters and zones.
// It is a heuristic, not a positioning system.
package distance

import (
	"math"
	"time"

	"github.com/martinsuchenak/presenced/internal/model"
)

// Zone is a coarse distance band derived from the estimated distance.
type Zone string

const (
	ZoneOnSite   Zone = "on-site"   // [0, 10) meters
	ZoneNearSite Zone = "near-site" // [10, 30)
	ZoneLeaving  Zone = "leaving"   // [30, 50)
	ZoneAway     Zone = "away"      // [50, inf)
	ZoneUnknown  Zone = "unknown"   // no usable estimate
)

// DefaultRSSI is used when no usable latency sample exists. The scan never
// blocks on missing distance data; it assumes a fair signal instead.
const DefaultRSSI = -70

// RSSIFromLatency buckets an average round-trip time into a dBm-like
// signal-strength estimate. Monotonic: slower replies mean weaker signal.
func RSSIFromLatency(avg time.Duration) int {
	ms := float64(avg) / float64(time.Millisecond)
	switch {
	case ms < 2:
		return -40
	case ms < 5:
		return -50
	case ms < 10:
		return -60
	case ms < 20:
		return -70
	case ms < 50:
		return -80
	default:
		return -90
	}
}

// RSSIFromSamples averages latency samples and buckets the result.
// An empty sample set yields DefaultRSSI.
func RSSIFromSamples(samples []time.Duration) int {
	if len(samples) == 0 {
		return DefaultRSSI
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return RSSIFromLatency(total / time.Duration(len(samples)))
}

// Estimate applies the log-distance path-loss model:
//
//	d = 10 ^ ((referenceRSSI - rssi) / (10 * pathLossExponent))
//
// rounded to one decimal. An rssi of 0 has no estimate; ok is false and the
// distance is undefined, not zero.
func Estimate(cal model.Calibration, rssi int) (meters float64, ok bool) {
	if rssi == 0 {
		return 0, false
	}
	d := math.Pow(10, (cal.ReferenceRSSI-float64(rssi))/(10*cal.PathLossExponent))
	return math.Round(d*10) / 10, true
}

// ZoneFor maps a distance to its zone. Bands are left-inclusive on the lower
// bound and strictly less-than on the upper: 10.0 is already near-site.
func ZoneFor(meters float64, ok bool) Zone {
	if !ok {
		return ZoneUnknown
	}
	switch {
	case meters < 10:
		return ZoneOnSite
	case meters < 30:
		return ZoneNearSite
	case meters < 50:
		return ZoneLeaving
	default:
		return ZoneAway
	}
}

// ZoneForDistance is ZoneFor for an optional stored estimate.
func ZoneForDistance(meters *float64) Zone {
	if meters == nil {
		return ZoneUnknown
	}
	return ZoneFor(*meters, true)
}
