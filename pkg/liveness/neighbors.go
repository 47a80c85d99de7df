package liveness

import (
	"context"
	"net/netip"
	"time"

	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/ndp"
)

// NeighborTable answers whether an address has a link-layer entry on this host
type NeighborTable interface {
	Contains(ctx context.Context, addr netip.Addr) (bool, error)
}

// SystemNeighbors routes IPv4 lookups to the ARP table and IPv6 lookups to the NDP table
type SystemNeighbors struct {
	IPv4 NeighborTable
	IPv6 NeighborTable
}

// NewSystemNeighbors reads the local tables, reusing each snapshot for ttl
func NewSystemNeighbors(ttl time.Duration) *SystemNeighbors {
	return &SystemNeighbors{
		IPv4: arp.NewCache(ttl),
		IPv6: ndp.NewCache(ttl),
	}
}

// Contains looks addr up in the table of its family
func (n *SystemNeighbors) Contains(ctx context.Context, addr netip.Addr) (bool, error) {
	addr = addr.Unmap()
	table := n.IPv6
	if addr.Is4() {
		table = n.IPv4
	}
	if table == nil {
		return false, nil
	}
	return table.Contains(ctx, addr)
}
