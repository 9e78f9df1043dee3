// Package probe answers "is this host reachable" and "how fast does it
// reply", the two questions the scan cycle asks about every address.
package probe

import (
	"context"
	"time"
)

// Prober checks host reachability within a bounded time. Failures of any
// kind are reported as unreachable, never as errors.
type Prober interface {
	// Probe reports whether the host answered within the probe timeout.
	Probe(ctx context.Context, ip string) bool

	// LatencySamples collects up to count round-trip times. It returns nil
	// when the host yields no usable samples.
	LatencySamples(ctx context.Context, ip string, count int) []time.Duration
}
