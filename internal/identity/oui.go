package identity

import (
	"strings"
)

// ouiVendors maps the first three octets of a MAC (uppercase, colon
// separated) to the registered hardware vendor. Deliberately small: these
// are the prefixes that actually show up on the networks this tool targets.
var ouiVendors = map[string]string{
	"60:CF:84": "ASUS",
	"00:24:27": "ASUS",
	"0C:C4:13": "Google",
	"1C:BF:C0": "TP-Link",
	"48:B0:2D": "NVIDIA Corporation",
	"78:80:38": "Samsung Electronics",
	"04:D9:F5": "Apple Inc.",
	"F0:D4:15": "Realtek",
	"04:7C:16": "Realtek",
	"00:E0:4C": "Realtek",
	"F2:D4:15": "Microsoft",
	"00:15:5D": "Hyper-V",
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"08:00:27": "VirtualBox",
	"0A:00:27": "VirtualBox",
	"00:1B:21": "Intel",
	"BC:5F:F4": "Intel",
	"F4:8E:38": "Intel",
	"DC:A6:32": "Raspberry Pi",
	"B8:27:EB": "Raspberry Pi",
	"E4:5F:01": "Raspberry Pi",
}

// VendorForMAC returns the vendor for a MAC address's OUI prefix, or ""
// when the prefix is not in the table or the MAC is malformed.
func VendorForMAC(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	oui := strings.ToUpper(mac[:8])
	return ouiVendors[oui]
}
