package identity

import (
	"strings"
	"testing"
)

const sampleARPTable = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         a4:2b:b0:11:22:33     *        eth0
192.168.1.50     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.77     0x1         0x2         b8:27:eb:aa:bb:cc     *        wlan0
`

func TestMACFromARPTable(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"192.168.1.1", "A4:2B:B0:11:22:33"},
		{"192.168.1.77", "B8:27:EB:AA:BB:CC"},
		{"192.168.1.50", ""}, // incomplete entry
		{"192.168.1.99", ""}, // not in table
	}

	for _, tt := range tests {
		got := macFromARPTable(strings.NewReader(sampleARPTable), tt.ip)
		if got != tt.want {
			t.Errorf("macFromARPTable(%s) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestMACFromARPTable_NoPartialIPMatch(t *testing.T) {
	// 192.168.1.7 must not match the 192.168.1.77 row.
	got := macFromARPTable(strings.NewReader(sampleARPTable), "192.168.1.7")
	if got != "" {
		t.Errorf("macFromARPTable matched a longer IP: %q", got)
	}
}

func TestVendorForMAC(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"B8:27:EB:AA:BB:CC", "Raspberry Pi"},
		{"b8:27:eb:aa:bb:cc", "Raspberry Pi"}, // case-insensitive
		{"00:50:56:00:00:01", "VMware"},
		{"FF:FF:FF:00:00:01", ""}, // unknown OUI
		{"short", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := VendorForMAC(tt.mac); got != tt.want {
			t.Errorf("VendorForMAC(%q) = %q, want %q", tt.mac, got, tt.want)
		}
	}
}

func TestSystemResolver_MACWithMissingTable(t *testing.T) {
	r := NewSystemResolver(WithARPTablePath("/nonexistent/arp"))
	if got := r.MAC(t.Context(), "192.168.1.1"); got != "" {
		t.Errorf("MAC with missing table = %q, want empty", got)
	}
}
