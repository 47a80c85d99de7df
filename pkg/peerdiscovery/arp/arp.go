package arp

import (
	"bufio"
	"bytes"
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/common"
)

// Peer represents a resolved entry of the local ARP table
type Peer = common.Neighbor

// DefaultTTL is how long a table snapshot is reused by NewCache
var DefaultTTL = time.Second

// ReadTable returns the resolved entries of the local ARP table
func ReadTable(ctx context.Context) ([]Peer, error) {
	return readLocalARPTable(ctx)
}

// NewCache returns a cached view of the local ARP table
func NewCache(ttl time.Duration) *common.NeighborCache {
	return common.NewNeighborCache(ReadTable, ttl)
}

// parseProcNetARP parses /proc/net/arp
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func parseProcNetARP(data []byte) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(bytes.NewReader(data))

	// Skip header line
	if !scanner.Scan() {
		return peers, scanner.Err()
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		// flags 0x0 marks an incomplete entry
		if fields[2] == "0x0" {
			continue
		}

		peer, ok := newPeer(fields[0], fields[3])
		if !ok {
			continue
		}
		peers = append(peers, peer)
	}

	return peers, scanner.Err()
}

// parseBSDARP parses `arp -an` output on macOS
//
//	? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
//	? (192.168.1.7) at (incomplete) on en0 ifscope [ethernet]
func parseBSDARP(output []byte) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		ipStart := strings.Index(line, "(")
		ipEnd := strings.Index(line, ")")
		if ipStart == -1 || ipEnd == -1 || ipStart >= ipEnd {
			continue
		}

		atIndex := strings.Index(line, " at ")
		if atIndex == -1 {
			continue
		}
		rest := strings.Fields(line[atIndex+4:])
		if len(rest) == 0 {
			continue
		}

		peer, ok := newPeer(line[ipStart+1:ipEnd], rest[0])
		if !ok {
			continue
		}
		peers = append(peers, peer)
	}

	return peers, scanner.Err()
}

// parseWindowsARP parses `arp -a` output on Windows
//
//	Interface: 192.168.1.100 --- 0xa
//	  Internet Address      Physical Address      Type
//	  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
func parseWindowsARP(output []byte) ([]Peer, error) {
	var peers []Peer
	scanner := bufio.NewScanner(bytes.NewReader(output))

	inARPTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "Interface:") {
			inARPTable = false
			continue
		}
		if strings.Contains(line, "Internet Address") && strings.Contains(line, "Physical Address") {
			inARPTable = true
			continue
		}
		if !inARPTable {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
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
	if err != nil || !ip.Is4() {
		return Peer{}, false
	}
	mac, ok := common.ParseMAC(macStr)
	if !ok {
		return Peer{}, false
	}
	return Peer{IP: ip, MAC: mac}, true
}
