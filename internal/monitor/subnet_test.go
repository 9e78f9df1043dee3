package monitor

import "testing"

func TestCandidateIPs(t *testing.T) {
	ips, err := candidateIPs("192.168.5.0/24")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != 254 {
		t.Fatalf("got %d hosts, want 254", len(ips))
	}
	if ips[0] != "192.168.5.1" || ips[253] != "192.168.5.254" {
		t.Errorf("range = %s .. %s", ips[0], ips[253])
	}
}

func TestCandidateIPs_SmallPrefix(t *testing.T) {
	ips, err := candidateIPs("10.0.0.0/29")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != 6 {
		t.Fatalf("got %d hosts, want 6", len(ips))
	}
	if ips[0] != "10.0.0.1" || ips[5] != "10.0.0.6" {
		t.Errorf("range = %s .. %s", ips[0], ips[5])
	}
}

func TestCandidateIPs_CapsLargeRanges(t *testing.T) {
	ips, err := candidateIPs("10.0.0.0/16")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != maxSweepHosts {
		t.Errorf("got %d hosts, want cap of %d", len(ips), maxSweepHosts)
	}
}

func TestCandidateIPs_MasksHostBits(t *testing.T) {
	ips, err := candidateIPs("192.168.5.77/24")
	if err != nil {
		t.Fatal(err)
	}
	if ips[0] != "192.168.5.1" {
		t.Errorf("first host = %s, want network-relative start", ips[0])
	}
}

func TestCandidateIPs_Invalid(t *testing.T) {
	if _, err := candidateIPs("not-a-subnet"); err == nil {
		t.Error("garbage input should error")
	}
	if _, err := candidateIPs("fd00::/64"); err == nil {
		t.Error("IPv6 ranges should be rejected")
	}
}
