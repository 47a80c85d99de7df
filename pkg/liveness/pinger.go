package liveness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Pinger sends a single echo request and returns nil when a reply arrives in time
type Pinger interface {
	Ping(ctx context.Context, addr Address, timeout time.Duration) error
}

// CommandRunner runs an external command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run the command, killing it when ctx is done
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// PingError describes a failed echo request
type PingError struct {
	Err    error
	Output string
}

func (e *PingError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("ping failed: %s", e.Err)
	}
	return fmt.Sprintf("ping failed: %s: %s", e.Err, e.Output)
}

func (e *PingError) Unwrap() error {
	return e.Err
}

var errNoEchoReply = errors.New("no echo reply")

// CommandPinger pings through the system ping binary
type CommandPinger struct {
	Binary   string
	Platform Platform
	Runner   CommandRunner
}

// NewCommandPinger returns a pinger for the running OS
func NewCommandPinger() *CommandPinger {
	return &CommandPinger{
		Binary:   "ping",
		Platform: DetectPlatform(),
		Runner:   ExecRunner{},
	}
}

// Ping runs `ping <count> 1 <timeout> <value> <addr>`
func (p *CommandPinger) Ping(ctx context.Context, addr Address, timeout time.Duration) error {
	args := p.Platform.Args(addr.Addr().String(), timeout)
	output, err := p.Runner.Run(ctx, p.Binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &PingError{Err: err, Output: lastLine(output)}
	}

	// Windows ping exits 0 on "Destination host unreachable" replies from the gateway
	if p.Platform.Family == FamilyWindows && !bytes.Contains(bytes.ToUpper(output), []byte("TTL=")) {
		return &PingError{Err: errNoEchoReply, Output: lastLine(output)}
	}
	return nil
}

// lastLine returns the last non-empty line of command output
func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
