package pingsweep

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/mapcidr"
)

// MaxHosts is the largest number of host addresses a Range may hold (a /16)
const MaxHosts = 1 << 16

var (
	// ErrInvalidRange is returned for malformed range input
	ErrInvalidRange = errors.New("invalid range")
	// ErrRangeTooLarge is returned for ranges holding more than MaxHosts addresses
	ErrRangeTooLarge = fmt.Errorf("%w: too many hosts", ErrInvalidRange)
)

// Range is a validated CIDR range and its host addresses
type Range struct {
	prefix netip.Prefix
	hosts  []netip.Addr
}

// ParseRange validates a CIDR range (address/prefixLength) and enumerates its hosts.
// Host bits in the address are ignored, so 192.168.1.77/24 is 192.168.1.0/24.
func ParseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty range", ErrInvalidRange)
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	// IPv4-mapped prefixes are scanned as the IPv4 range they map
	if prefix.Addr().Is4In6() {
		if prefix.Bits() < 96 {
			return nil, fmt.Errorf("%w: %s is wider than the IPv4-mapped space", ErrInvalidRange, prefix)
		}
		prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits()-96)
	}
	prefix = prefix.Masked()

	count, ok := common.UsableHosts(prefix)
	if !ok || count > MaxHosts {
		return nil, fmt.Errorf("%w: %s holds more than %d addresses", ErrRangeTooLarge, prefix, MaxHosts)
	}

	ips, err := mapcidr.IPAddresses(prefix.String())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to expand %s: %v", ErrInvalidRange, prefix, err)
	}

	hosts := make([]netip.Addr, 0, count)
	seen := make(map[netip.Addr]struct{}, count)
	for _, ipStr := range ips {
		if int64(len(hosts)) >= count {
			break
		}
		ip, err := netip.ParseAddr(ipStr)
		if err != nil {
			continue
		}
		ip = ip.Unmap()

		// Skip network and broadcast addresses
		if !prefix.Contains(ip) || common.IsNetworkOrBroadcast(ip, prefix) {
			continue
		}
		if _, exists := seen[ip]; exists {
			continue
		}
		seen[ip] = struct{}{}
		hosts = append(hosts, ip)
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: %s has no host addresses", ErrInvalidRange, prefix)
	}
	slices.SortFunc(hosts, netip.Addr.Compare)

	return &Range{prefix: prefix, hosts: hosts}, nil
}

// MustParseRange is like ParseRange but panics on invalid input
func MustParseRange(s string) *Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Prefix returns the masked network prefix
func (r *Range) Prefix() netip.Prefix {
	return r.prefix
}

// Hosts returns the host addresses in ascending order
func (r *Range) Hosts() []netip.Addr {
	return slices.Clone(r.hosts)
}

// Len returns the number of host addresses
func (r *Range) Len() int {
	return len(r.hosts)
}

// Contains reports whether addr is one of the host addresses
func (r *Range) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	return r.prefix.Contains(addr) && !common.IsNetworkOrBroadcast(addr, r.prefix)
}

func (r *Range) String() string {
	return r.prefix.String()
}
