//go:build !windows

package arp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	osutils "github.com/projectdiscovery/utils/os"
)

// readLocalARPTable reads the local ARP table (Linux and macOS)
func readLocalARPTable(ctx context.Context) ([]Peer, error) {
	if osutils.IsLinux() {
		data, err := os.ReadFile("/proc/net/arp")
		if err != nil {
			return nil, err
		}
		return parseProcNetARP(data)
	} else if osutils.IsOSX() {
		output, err := exec.CommandContext(ctx, "arp", "-an").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute arp -an: %w", err)
		}
		return parseBSDARP(output)
	}
	return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
}
