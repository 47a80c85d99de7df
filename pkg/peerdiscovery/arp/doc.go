// Package arp reads the local IPv4 neighbor (ARP) table.
//
// The table is only ever read: nothing in this package sends traffic to populate it.
// Entries exist for hosts the machine has recently exchanged frames with, which makes
// the table a useful passive signal for hosts that drop ICMP echo requests.
//
// Sources:
//   - Linux: /proc/net/arp
//   - macOS: arp -an
//   - Windows: arp -a
package arp
