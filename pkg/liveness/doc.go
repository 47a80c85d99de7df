// Package liveness determines whether a single network address is reachable.
//
// A probe runs in order:
//   - Loopback targets (localhost, 127.0.0.0/8, ::1) are reported reachable without any external call
//   - An active echo request is sent through a Pinger, by default the platform ping binary
//   - If the echo fails, the local neighbor table (ARP for IPv4, NDP for IPv6) is consulted
//
// Probes never return errors. Every failure is folded into an Outcome with Reachable
// set to false and a diagnostic Detail, because an offline device is an expected result.
// Only malformed input is reported as an error, by ParseAddress and CheckLiveness.
//
// Example usage:
//
//	outcome, err := liveness.CheckLiveness(ctx, "192.168.1.20")
//	if err != nil {
//		// invalid address
//	}
//	fmt.Println(outcome.Reachable, outcome.Method)
//
// Limitations:
//   - Hosts that drop ICMP and have no neighbor entry are reported unreachable
//   - The neighbor table is only read, never populated
package liveness
