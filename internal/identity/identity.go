// Package identity resolves best-effort identity for scanned hosts: MAC
// address from the kernel neighbor table, hostname from reverse DNS (with
// optional SNMP sysName fallback), and hardware vendor from the MAC OUI.
package identity

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/martinsuchenak/presenced/internal/log"
)

// Resolver looks up identity attributes for an IP. Every method is
// best-effort: an empty result means "unknown", never an error.
type Resolver interface {
	MAC(ctx context.Context, ip string) string
	Hostname(ctx context.Context, ip string) string
	Vendor(mac string) string
}

const defaultARPTablePath = "/proc/net/arp"

// SystemResolver resolves identity from the local system: the ARP/neighbor
// table for MACs and reverse DNS for hostnames. An optional SNMP client
// supplies sysName when reverse DNS has nothing.
type SystemResolver struct {
	arpTablePath string
	snmp         *SNMPClient // nil when SNMP enrichment is disabled
}

// Option configures a SystemResolver.
type Option func(*SystemResolver)

// WithARPTablePath overrides the neighbor table location (tests use this).
func WithARPTablePath(path string) Option {
	return func(r *SystemResolver) { r.arpTablePath = path }
}

// WithSNMP enables SNMP sysName lookup as a hostname fallback.
func WithSNMP(client *SNMPClient) Option {
	return func(r *SystemResolver) { r.snmp = client }
}

// NewSystemResolver creates a resolver backed by the local system.
func NewSystemResolver(opts ...Option) *SystemResolver {
	r := &SystemResolver{arpTablePath: defaultARPTablePath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MAC returns the hardware address the kernel has cached for ip, uppercase
// colon-separated, or "" when the neighbor table has no complete entry.
// A recent probe of the host is expected to have populated the table.
func (r *SystemResolver) MAC(ctx context.Context, ip string) string {
	if f, err := os.Open(r.arpTablePath); err == nil {
		defer f.Close()
		if mac := macFromARPTable(f, ip); mac != "" {
			return mac
		}
	} else {
		log.Debug("Neighbor table unavailable", "path", r.arpTablePath, "error", err)
	}

	return macFromIPNeigh(ctx, ip)
}

// macFromIPNeigh asks ip(8) for the neighbor entry, for systems where
// /proc/net/arp is absent or stale.
func macFromIPNeigh(ctx context.Context, ip string) string {
	out, err := exec.CommandContext(ctx, "ip", "neigh", "show", ip).Output()
	if err != nil {
		return ""
	}

	fields := strings.Fields(string(out))
	for i, f := range fields {
		if f == "lladdr" && i+1 < len(fields) {
			mac := strings.ToUpper(fields[i+1])
			if mac != "00:00:00:00:00:00" {
				return mac
			}
		}
	}
	return ""
}

// Hostname returns the short hostname for ip via reverse DNS, falling back
// to SNMP sysName when configured. "" means unresolvable.
func (r *SystemResolver) Hostname(ctx context.Context, ip string) string {
	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err == nil && len(names) > 0 {
		name := strings.TrimSuffix(names[0], ".")
		// Short name only, like `hostname` rather than the FQDN.
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
		if name != "" {
			return name
		}
	}

	if r.snmp != nil {
		if name := r.snmp.SysName(ctx, ip); name != "" {
			return name
		}
	}
	return ""
}

// Vendor maps the first three octets of a MAC to a hardware vendor name.
func (r *SystemResolver) Vendor(mac string) string {
	return VendorForMAC(mac)
}

// macFromARPTable scans a /proc/net/arp style table for ip and returns its
// MAC. Incomplete entries (flags 0x0 or an all-zero address) are skipped.
func macFromARPTable(table io.Reader, ip string) string {
	scanner := bufio.NewScanner(table)
	first := true
	for scanner.Scan() {
		if first {
			first = false // header row
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != ip {
			continue
		}
		if fields[2] == "0x0" {
			continue
		}

		mac := strings.ToUpper(fields[3])
		if mac == "" || mac == "00:00:00:00:00:00" {
			continue
		}
		return mac
	}
	return ""
}
