// Package ndp reads the local IPv6 neighbor (NDP) table, the IPv6 counterpart
// of the ARP table.
package ndp

import (
	"bufio"
	"bytes"
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/common"
	"github.com/tidwall/gjson"
)

// Peer represents a resolved entry of the local NDP table
type Peer = common.Neighbor

// DefaultTTL is how long a table snapshot is reused by NewCache
var DefaultTTL = time.Second

// ReadTable returns the resolved entries of the local NDP table
func ReadTable(ctx context.Context) ([]Peer, error) {
	return readLocalNDPTable(ctx)
}

// NewCache returns a cached view of the local NDP table
func NewCache(ttl time.Duration) *common.NeighborCache {
	return common.NewNeighborCache(ReadTable, ttl)
}

// parseIPNeighJSON parses `ip -j -6 neigh show` output on Linux
//
//	[{"dst":"fe80::1","dev":"eth0","lladdr":"aa:bb:cc:dd:ee:ff","router":null,"state":["REACHABLE"]}]
func parseIPNeighJSON(output []byte) ([]Peer, error) {
	var peers []Peer

	gjson.ParseBytes(output).ForEach(func(_, entry gjson.Result) bool {
		for _, state := range entry.Get("state").Array() {
			switch state.String() {
			case "FAILED", "INCOMPLETE":
				return true
			}
		}

		peer, ok := newPeer(entry.Get("dst").String(), entry.Get("lladdr").String())
		if ok {
			peers = append(peers, peer)
		}
		return true
	})

	return peers, nil
}

// parseDarwinNDP parses `ndp -an` output on macOS
//
//	Neighbor                        Linklayer Address  Netif Expire    St Flgs Prbs
//	fe80::1%en0                     aa:bb:cc:dd:ee:ff    en0 23h59m58s S  R
func parseDarwinNDP(output []byte) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] == "Neighbor" {
			continue
		}

		peer, ok := newPeer(fields[0], fields[1])
		if !ok {
			continue
		}
		peers = append(peers, peer)
	}

	return peers, scanner.Err()
}

// parseNetshNeighbors parses `netsh interface ipv6 show neighbors` output on Windows
//
//	Interface 12: Ethernet
//
//	Internet Address                              Physical Address   Type
//	--------------------------------------------  -----------------  -----------
//	fe80::1                                       aa-bb-cc-dd-ee-ff  Reachable
func parseNetshNeighbors(output []byte) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(bytes.NewReader(output))

	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "Interface") {
			inTable = true
			continue
		}
		if !inTable || strings.Contains(line, "Address") || strings.HasPrefix(line, "---") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if len(fields) > 2 && strings.EqualFold(fields[2], "Unreachable") {
			continue
		}

		peer, ok := newPeer(fields[0], fields[1])
		if !ok {
			continue
		}
		peers = append(peers, peer)
	}

	return peers, scanner.Err()
}

func newPeer(ipStr, macStr string) (Peer, bool) {
	ip, err := netip.ParseAddr(ipStr)
	if err != nil || !ip.Is6() || ip.Is4In6() {
		return Peer{}, false
	}
	mac, ok := common.ParseMAC(macStr)
	if !ok {
		return Peer{}, false
	}
	return Peer{IP: ip.WithZone(""), MAC: mac}, true
}
