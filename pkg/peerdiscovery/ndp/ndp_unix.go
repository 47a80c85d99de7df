//go:build !windows

package ndp

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	osutils "github.com/projectdiscovery/utils/os"
)

// readLocalNDPTable reads the local NDP table (Linux and macOS)
func readLocalNDPTable(ctx context.Context) ([]Peer, error) {
	if osutils.IsLinux() {
		output, err := exec.CommandContext(ctx, "ip", "-j", "-6", "neigh", "show").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute ip -j -6 neigh show: %w", err)
		}
		return parseIPNeighJSON(output)
	} else if osutils.IsOSX() {
		output, err := exec.CommandContext(ctx, "ndp", "-an").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute ndp -an: %w", err)
		}
		return parseDarwinNDP(output)
	}
	return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
}
