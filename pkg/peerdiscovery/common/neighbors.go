package common

import (
	"bytes"
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/gcache"
)

// Neighbor represents a resolved entry of a local neighbor table (ARP or NDP)
type Neighbor struct {
	IP  netip.Addr
	MAC net.HardwareAddr
}

// TableReader reads a full snapshot of a neighbor table
type TableReader func(ctx context.Context) ([]Neighbor, error)

const snapshotKey = "table"

// NeighborCache answers membership queries against a neighbor table, re-reading
// the table at most once per ttl. Failed reads are not cached.
type NeighborCache struct {
	read TableReader
	// mu serializes reads so concurrent misses share one table read
	mu        sync.Mutex
	snapshots gcache.Cache[string, map[netip.Addr]net.HardwareAddr]
}

// NewNeighborCache creates a cache over read. A ttl <= 0 disables caching and every
// query reads the table again.
func NewNeighborCache(read TableReader, ttl time.Duration) *NeighborCache {
	c := &NeighborCache{read: read}
	if ttl > 0 {
		c.snapshots = gcache.New[string, map[netip.Addr]net.HardwareAddr](1).
			LRU().
			Expiration(ttl).
			Build()
	}
	return c
}

// Lookup returns the hardware address recorded for ip, if any
func (c *NeighborCache) Lookup(ctx context.Context, ip netip.Addr) (net.HardwareAddr, bool, error) {
	table, err := c.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	mac, ok := table[ip.WithZone("").Unmap()]
	return mac, ok, nil
}

// Contains reports whether ip has a resolved entry in the table
func (c *NeighborCache) Contains(ctx context.Context, ip netip.Addr) (bool, error) {
	_, ok, err := c.Lookup(ctx, ip)
	return ok, err
}

func (c *NeighborCache) snapshot(ctx context.Context) (map[netip.Addr]net.HardwareAddr, error) {
	if c.snapshots != nil {
		if table, err := c.snapshots.Get(snapshotKey); err == nil {
			return table, nil
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if table, err := c.snapshots.Get(snapshotKey); err == nil {
			return table, nil
		}
	}

	neighbors, err := c.read(ctx)
	if err != nil {
		return nil, err
	}

	table := make(map[netip.Addr]net.HardwareAddr, len(neighbors))
	for _, neighbor := range neighbors {
		table[neighbor.IP.WithZone("").Unmap()] = neighbor.MAC
	}

	if c.snapshots != nil {
		_ = c.snapshots.Set(snapshotKey, table)
	}
	return table, nil
}

var (
	zeroMAC      = net.HardwareAddr{0, 0, 0, 0, 0, 0}
	broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// ParseMAC parses the hardware address formats printed by arp, ndp, ip and netsh.
// Windows dashes and the BSD short form (0:1a:2b:3:4:5) are accepted. Incomplete,
// all-zero and broadcast entries are rejected.
func ParseMAC(s string) (net.HardwareAddr, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "incomplete") {
		return nil, false
	}

	octets := strings.Split(strings.ReplaceAll(s, "-", ":"), ":")
	for i, octet := range octets {
		if len(octet) == 1 {
			octets[i] = "0" + octet
		}
	}

	mac, err := net.ParseMAC(strings.Join(octets, ":"))
	if err != nil {
		return nil, false
	}
	if bytes.Equal(mac, zeroMAC) || bytes.Equal(mac, broadcastMAC) {
		return nil, false
	}
	return mac, true
}
