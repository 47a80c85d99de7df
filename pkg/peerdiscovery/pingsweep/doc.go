// Package pingsweep discovers reachable hosts in an address range.
//
// Every host address of a CIDR range is probed once with a liveness.Prober by a
// fixed pool of workers (at most 32 in flight), and the reachable ones are collected
// in completion order together with a best-effort reverse DNS name.
//
// Example usage:
//
//	result, err := pingsweep.ScanRange(ctx, "192.168.1.0/24")
//	if err != nil {
//		// malformed range, nothing was probed
//	}
//	for _, outcome := range result.Reachable {
//		fmt.Println(outcome.Addr, outcome.Name)
//	}
//
// Host enumeration follows the usual rules: IPv4 network and broadcast addresses
// and the IPv6 subnet-router anycast address are skipped, except on /31, /32,
// /127 and /128 where every address is a host. Ranges above MaxHosts are rejected.
//
// Limitations:
//   - Hosts with ICMP disabled or firewalled are only found if they are in the neighbor table
//   - A scan is never retried; callers own retry policy
package pingsweep
