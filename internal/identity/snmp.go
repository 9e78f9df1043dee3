package identity

import (
	"context"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/martinsuchenak/presenced/internal/log"
)

const oidSysName = ".1.3.6.1.2.1.1.5.0"

// SNMPClient queries sysName over SNMPv2c. Used as a hostname fallback for
// devices that answer SNMP but have no reverse DNS entry (printers, APs,
// managed switches).
type SNMPClient struct {
	community string
	port      uint16
	timeout   time.Duration
}

// NewSNMPClient creates a sysName lookup client.
func NewSNMPClient(community string, port uint16, timeout time.Duration) *SNMPClient {
	if strings.TrimSpace(community) == "" {
		community = "public"
	}
	if port == 0 {
		port = 161
	}
	if timeout <= 0 {
		timeout = 900 * time.Millisecond
	}
	return &SNMPClient{community: community, port: port, timeout: timeout}
}

// SysName returns the device's SNMP sysName, or "" on any failure.
func (c *SNMPClient) SysName(ctx context.Context, ip string) string {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      c.port,
		Community: c.community,
		Version:   gosnmp.Version2c,
		Timeout:   c.timeout,
		Retries:   0,
		Context:   ctx,
	}

	if err := client.Connect(); err != nil {
		log.Trace("SNMP connect failed", "ip", ip, "error", err)
		return ""
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{oidSysName})
	if err != nil || len(result.Variables) == 0 {
		log.Trace("SNMP sysName query failed", "ip", ip, "error", err)
		return ""
	}

	pdu := result.Variables[0]
	if pdu.Type != gosnmp.OctetString {
		return ""
	}
	raw, ok := pdu.Value.([]byte)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
