package common

import (
	"net/netip"

	"go4.org/netipx"
)

// IsNetworkOrBroadcast checks if an IP is the network or broadcast address of prefix.
// For IPv4, both the first and last address of the prefix are excluded, except on
// /31 point-to-point links and /32 host routes where every address is usable.
// For IPv6, only the subnet-router anycast (first) address is excluded, except on /127 and /128.
func IsNetworkOrBroadcast(ip netip.Addr, prefix netip.Prefix) bool {
	if !prefix.IsValid() || !ip.IsValid() {
		return false
	}
	prefix = prefix.Masked()
	ip = ip.WithZone("")
	if !prefix.Contains(ip) {
		return false
	}

	// /31, /32, /127 and /128 have no reserved addresses
	if ip.BitLen()-prefix.Bits() < 2 {
		return false
	}

	r := netipx.RangeOfPrefix(prefix)
	if ip.Is4() {
		return ip == r.From() || ip == r.To()
	}
	return ip == r.From()
}

// UsableHosts returns the number of host addresses in prefix once the network and
// broadcast addresses are removed. ok is false when the count does not fit in an int64.
func UsableHosts(prefix netip.Prefix) (count int64, ok bool) {
	if !prefix.IsValid() {
		return 0, false
	}
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 62 {
		return 0, false
	}
	count = int64(1) << hostBits
	switch {
	case hostBits < 2:
		return count, true
	case prefix.Addr().Is4():
		return count - 2, true
	default:
		return count - 1, true
	}
}
