package pingsweep

import (
	"cmp"
	"net/netip"
	"slices"
)

// Priority tiers based on how addresses are commonly allocated in a /24
const (
	PriorityGateway   = 100 // .1, .254
	PriorityReserved  = 90  // .2-.5, .250-.253
	PriorityEarlyDHCP = 80  // .6-.10
	PriorityDHCPPeak  = 70  // .50, .100, .150
	PriorityDHCPPool  = 50  // .51-.99, .101-.149, .151-.200
	PriorityLongTail  = 20  // .11-.49, .201-.249, everything else
)

type octetTier struct {
	from, to uint8
	priority int
}

// most specific first, the first match wins
var octetTiers = []octetTier{
	{from: 1, to: 1, priority: PriorityGateway},
	{from: 254, to: 254, priority: PriorityGateway},
	{from: 2, to: 5, priority: PriorityReserved},
	{from: 250, to: 253, priority: PriorityReserved},
	{from: 6, to: 10, priority: PriorityEarlyDHCP},
	{from: 50, to: 50, priority: PriorityDHCPPeak},
	{from: 100, to: 100, priority: PriorityDHCPPeak},
	{from: 150, to: 150, priority: PriorityDHCPPeak},
	{from: 51, to: 99, priority: PriorityDHCPPool},
	{from: 101, to: 149, priority: PriorityDHCPPool},
	{from: 151, to: 200, priority: PriorityDHCPPool},
}

// Priority scores how likely ip is to be online from its last octet. IPv6 addresses
// all score PriorityLongTail.
func Priority(ip netip.Addr) int {
	ip = ip.Unmap()
	if !ip.Is4() {
		return PriorityLongTail
	}

	lastOctet := ip.As4()[3]
	for _, tier := range octetTiers {
		if lastOctet >= tier.from && lastOctet <= tier.to {
			return tier.priority
		}
	}
	return PriorityLongTail
}

// prioritize orders hosts by descending Priority, keeping address order within a tier
func prioritize(hosts []netip.Addr) {
	slices.SortStableFunc(hosts, func(a, b netip.Addr) int {
		return cmp.Compare(Priority(b), Priority(a))
	})
}
