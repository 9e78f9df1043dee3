package monitor

import (
	"fmt"
	"net"
	"net/netip"
)

// maxSweepHosts caps one scan cycle at a /24-equivalent sweep.
const maxSweepHosts = 254

// candidateIPs expands a CIDR into the host addresses to probe, skipping
// the network and broadcast addresses and capping at maxSweepHosts.
func candidateIPs(subnet string) ([]string, error) {
	prefix, err := netip.ParsePrefix(subnet)
	if err != nil {
		return nil, fmt.Errorf("parsing subnet %q: %w", subnet, err)
	}
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("subnet %q: only IPv4 ranges are scanned", subnet)
	}

	prefix = prefix.Masked()
	ips := make([]string, 0, maxSweepHosts)

	addr := prefix.Addr().Next() // skip network address
	for prefix.Contains(addr) && len(ips) < maxSweepHosts {
		next := addr.Next()
		if !prefix.Contains(next) {
			break // last address is broadcast
		}
		ips = append(ips, addr.String())
		addr = next
	}
	return ips, nil
}

// detectLocalSubnet guesses the local /24 from the interface used for
// outbound traffic. No packets are sent; UDP "dialing" only picks a route.
func detectLocalSubnet() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "192.168.1.0/24"
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP.To4() == nil {
		return "192.168.1.0/24"
	}

	ip := local.IP.To4()
	return fmt.Sprintf("%d.%d.%d.0/24", ip[0], ip[1], ip[2])
}
