package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/martinsuchenak/presenced/internal/log"
)

// Common TCP ports used for liveness when raw ICMP sockets are unavailable
var fallbackPorts = []int{80, 443, 22, 3389, 139, 445, 53, 8080}

// PingScanner probes hosts with ICMP echo requests, falling back to TCP
// connection attempts on common ports when not privileged.
type PingScanner struct {
	timeout    time.Duration
	privileged bool
}

// NewPingScanner creates a ping-based prober. Timeout bounds every probe;
// privileged enables raw ICMP sockets (requires root or CAP_NET_RAW).
func NewPingScanner(timeout time.Duration, privileged bool) *PingScanner {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &PingScanner{
		timeout:    timeout,
		privileged: privileged,
	}
}

// Probe reports whether the host answered an echo request (or, unprivileged,
// accepted or actively refused a TCP connection) within the timeout.
func (ps *PingScanner) Probe(ctx context.Context, ip string) bool {
	if ps.privileged {
		_, err := ps.echo(ctx, ip, 1)
		return err == nil
	}
	return ps.tcpProbe(ctx, ip)
}

// LatencySamples sends count echo requests and returns the round-trip time
// of each reply received. Without raw sockets it times TCP handshakes
// instead, which is coarser but keeps distance estimation usable.
func (ps *PingScanner) LatencySamples(ctx context.Context, ip string, count int) []time.Duration {
	if count <= 0 {
		count = 1
	}

	samples := make([]time.Duration, 0, count)
	for seq := 1; seq <= count; seq++ {
		if ctx.Err() != nil {
			break
		}

		var (
			rtt time.Duration
			err error
		)
		if ps.privileged {
			rtt, err = ps.echo(ctx, ip, seq)
		} else {
			rtt, err = ps.tcpLatency(ip)
		}
		if err != nil {
			log.Trace("Latency sample failed", "ip", ip, "seq", seq, "error", err)
			continue
		}
		samples = append(samples, rtt)
	}

	if len(samples) == 0 {
		return nil
	}
	return samples
}

// echo sends one ICMP echo request and waits for the matching reply.
func (ps *PingScanner) echo(ctx context.Context, ip string, seq int) (time.Duration, error) {
	dst := net.ParseIP(ip)
	if dst == nil {
		return 0, fmt.Errorf("invalid ip %q", ip)
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	message := icmp.Message{
		Type: ipv4.ICMPTypeEcho, Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: []byte("presenced-ping"),
		},
	}

	data, err := message.Marshal(nil)
	if err != nil {
		return 0, err
	}

	deadline := time.Now().Add(ps.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(data, &net.IPAddr{IP: dst}); err != nil {
		return 0, err
	}

	reply := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			return 0, err
		}

		rm, err := icmp.ParseMessage(1, reply[:n])
		if err != nil {
			continue
		}
		if rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		if addr, ok := peer.(*net.IPAddr); ok && !addr.IP.Equal(dst) {
			continue
		}
		return time.Since(start), nil
	}
}

// tcpProbe tries common ports; an accepted connection or an active refusal
// both prove the host is up.
func (ps *PingScanner) tcpProbe(ctx context.Context, ip string) bool {
	perPort := ps.timeout / time.Duration(len(fallbackPorts))
	if perPort < 100*time.Millisecond {
		perPort = 100 * time.Millisecond
	}

	for _, port := range fallbackPorts {
		if ctx.Err() != nil {
			return false
		}
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", ip, port), perPort)
		if err == nil {
			conn.Close()
			return true
		}
		if isConnRefused(err) {
			return true
		}
	}
	return false
}

// tcpLatency times a TCP handshake against the first responding port.
func (ps *PingScanner) tcpLatency(ip string) (time.Duration, error) {
	for _, port := range fallbackPorts {
		start := time.Now()
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", ip, port), ps.timeout)
		if err == nil {
			rtt := time.Since(start)
			conn.Close()
			return rtt, nil
		}
		if isConnRefused(err) {
			return time.Since(start), nil
		}
	}
	return 0, fmt.Errorf("no responding port on %s", ip)
}

// A refused connection still proves a live host.
func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
