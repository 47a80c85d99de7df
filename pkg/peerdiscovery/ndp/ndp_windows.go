//go:build windows

package ndp

import (
	"context"
	"fmt"
	"os/exec"
)

// readLocalNDPTable reads the local NDP table on Windows using 'netsh interface ipv6 show neighbors' command
func readLocalNDPTable(ctx context.Context) ([]Peer, error) {
	output, err := exec.CommandContext(ctx, "netsh", "interface", "ipv6", "show", "neighbors").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute netsh interface ipv6 show neighbors: %w", err)
	}
	return parseNetshNeighbors(output)
}
