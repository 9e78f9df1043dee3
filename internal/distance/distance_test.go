package distance

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/martinsuchenak/presenced/internal/model"
)

func TestRSSIFromLatency(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    int
	}{
		{500 * time.Microsecond, -40},
		{1999 * time.Microsecond, -40},
		{2 * time.Millisecond, -50},
		{4 * time.Millisecond, -50},
		{5 * time.Millisecond, -60},
		{9 * time.Millisecond, -60},
		{10 * time.Millisecond, -70},
		{19 * time.Millisecond, -70},
		{20 * time.Millisecond, -80},
		{49 * time.Millisecond, -80},
		{50 * time.Millisecond, -90},
		{2 * time.Second, -90},
	}

	for _, tt := range tests {
		if got := RSSIFromLatency(tt.latency); got != tt.want {
			t.Errorf("RSSIFromLatency(%v) = %d, want %d", tt.latency, got, tt.want)
		}
	}
}

func TestRSSIFromSamples_Empty(t *testing.T) {
	if got := RSSIFromSamples(nil); got != DefaultRSSI {
		t.Errorf("RSSIFromSamples(nil) = %d, want %d", got, DefaultRSSI)
	}
}

func TestRSSIFromSamples_Averages(t *testing.T) {
	// 1ms, 3ms, 5ms average to 3ms -> -50
	samples := []time.Duration{time.Millisecond, 3 * time.Millisecond, 5 * time.Millisecond}
	if got := RSSIFromSamples(samples); got != -50 {
		t.Errorf("RSSIFromSamples = %d, want -50", got)
	}
}

func TestEstimate_ReferenceCase(t *testing.T) {
	// With reference -40 and exponent 2.0, -60 dBm is exactly 10 meters.
	cal := model.Calibration{ReferenceRSSI: -40, PathLossExponent: 2.0, DistanceThreshold: 50}

	d, ok := Estimate(cal, -60)
	if !ok {
		t.Fatal("Estimate returned not ok for a valid rssi")
	}
	if d != 10.0 {
		t.Errorf("Estimate(-60) = %v, want 10.0", d)
	}
}

func TestEstimate_ZeroRSSIUndefined(t *testing.T) {
	cal := model.DefaultCalibration()
	if _, ok := Estimate(cal, 0); ok {
		t.Error("Estimate(0) should be undefined, not zero")
	}
}

func TestEstimate_OneMeterAtReference(t *testing.T) {
	cal := model.DefaultCalibration()
	d, ok := Estimate(cal, -40)
	if !ok || d != 1.0 {
		t.Errorf("Estimate(reference rssi) = %v, %v, want 1.0, true", d, ok)
	}
}

func TestZoneFor_Boundaries(t *testing.T) {
	tests := []struct {
		meters float64
		want   Zone
	}{
		{0, ZoneOnSite},
		{9.9, ZoneOnSite},
		{10.0, ZoneNearSite},
		{29.9, ZoneNearSite},
		{30.0, ZoneLeaving},
		{49.9, ZoneLeaving},
		{50.0, ZoneAway},
		{1000, ZoneAway},
	}

	for _, tt := range tests {
		if got := ZoneFor(tt.meters, true); got != tt.want {
			t.Errorf("ZoneFor(%v) = %s, want %s", tt.meters, got, tt.want)
		}
	}

	if got := ZoneFor(0, false); got != ZoneUnknown {
		t.Errorf("ZoneFor(undefined) = %s, want %s", got, ZoneUnknown)
	}
}

func TestZoneForDistance_Nil(t *testing.T) {
	if got := ZoneForDistance(nil); got != ZoneUnknown {
		t.Errorf("ZoneForDistance(nil) = %s, want %s", got, ZoneUnknown)
	}
}

// zoneRank orders zones by distance so monotonicity can be checked.
func zoneRank(z Zone) int {
	switch z {
	case ZoneOnSite:
		return 0
	case ZoneNearSite:
		return 1
	case ZoneLeaving:
		return 2
	case ZoneAway:
		return 3
	}
	return -1
}

func TestZoneMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(0, 10000).Draw(t, "a")
		b := rapid.Float64Range(0, 10000).Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		za := ZoneFor(a, true)
		zb := ZoneFor(b, true)
		if zoneRank(za) > zoneRank(zb) {
			t.Fatalf("zone not monotonic: ZoneFor(%v)=%s ranks above ZoneFor(%v)=%s", a, za, b, zb)
		}
	})
}

func TestEstimateDecreasesWithStrongerSignal(t *testing.T) {
	cal := model.DefaultCalibration()

	rapid.Check(t, func(t *rapid.T) {
		weak := rapid.IntRange(-120, -1).Draw(t, "weak")
		strong := rapid.IntRange(weak, -1).Draw(t, "strong")

		dw, okw := Estimate(cal, weak)
		ds, oks := Estimate(cal, strong)
		if !okw || !oks {
			t.Fatal("estimates should be defined for nonzero rssi")
		}
		if ds > dw {
			t.Fatalf("stronger signal gave larger distance: rssi %d -> %vm, rssi %d -> %vm", strong, ds, weak, dw)
		}
	})
}

func TestRSSIFromLatencyMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fast := time.Duration(rapid.Int64Range(0, int64(time.Second)).Draw(t, "fast"))
		slow := time.Duration(rapid.Int64Range(int64(fast), int64(time.Second)).Draw(t, "slow"))

		if RSSIFromLatency(fast) < RSSIFromLatency(slow) {
			t.Fatalf("faster reply gave weaker signal: %v -> %d, %v -> %d",
				fast, RSSIFromLatency(fast), slow, RSSIFromLatency(slow))
		}
	})
}
