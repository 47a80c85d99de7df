package common

import (
	"net"
	"net/netip"
)

// GetLocalNetworks24 returns every private IPv4 network attached to an up,
// non-loopback interface, widened or narrowed to /24.
func GetLocalNetworks24() ([]netip.Prefix, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var addrs []net.Addr
	for _, iface := range interfaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addrs = append(addrs, ifaceAddrs...)
	}

	return privateNetworks24(addrs), nil
}

// privateNetworks24 converts interface addresses to unique /24 prefixes, keeping
// only private IPv4 addresses.
func privateNetworks24(addrs []net.Addr) []netip.Prefix {
	var networks []netip.Prefix
	seen := make(map[netip.Prefix]struct{})

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.Is4() || !ip.IsPrivate() {
			continue
		}

		network := netip.PrefixFrom(ip, 24).Masked()
		if _, exists := seen[network]; exists {
			continue
		}
		seen[network] = struct{}{}

		networks = append(networks, network)
	}

	return networks
}
