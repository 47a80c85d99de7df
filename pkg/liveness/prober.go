package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/arp"
)

const (
	// EchoTimeout is how long a single echo request waits for its reply
	EchoTimeout = time.Second
	// ProbeTimeout bounds a whole probe, fallback included
	ProbeTimeout = 2 * time.Second
)

// Prober determines the reachability of one address
type Prober interface {
	Probe(ctx context.Context, addr Address) Outcome
}

// Checker probes with an echo request and falls back to the neighbor table
type Checker struct {
	pinger       Pinger
	neighbors    NeighborTable
	echoTimeout  time.Duration
	probeTimeout time.Duration
}

// Option configures a Checker
type Option func(*Checker)

// WithPinger replaces the ping binary with p
func WithPinger(p Pinger) Option {
	return func(c *Checker) {
		if p != nil {
			c.pinger = p
		}
	}
}

// WithNeighborTable replaces the system neighbor tables. nil disables the fallback.
func WithNeighborTable(n NeighborTable) Option {
	return func(c *Checker) {
		c.neighbors = n
	}
}

// WithTimeouts overrides EchoTimeout and ProbeTimeout. Non-positive values keep the defaults.
func WithTimeouts(echo, probe time.Duration) Option {
	return func(c *Checker) {
		if echo > 0 {
			c.echoTimeout = echo
		}
		if probe > 0 {
			c.probeTimeout = probe
		}
	}
}

// New creates a Checker using the ping binary and the system neighbor tables unless
// overridden. The ping parameters of the running OS are selected here, once.
func New(opts ...Option) *Checker {
	c := &Checker{
		pinger:       NewCommandPinger(),
		neighbors:    NewSystemNeighbors(arp.DefaultTTL),
		echoTimeout:  EchoTimeout,
		probeTimeout: ProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe the address. It never returns later than the probe timeout and never fails:
// every failure ends up in an unreachable Outcome.
func (c *Checker) Probe(ctx context.Context, addr Address) (outcome Outcome) {
	outcome = Outcome{Target: addr.String(), Addr: addr.Addr()}

	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Target: addr.String(), Addr: addr.Addr(), Detail: fmt.Sprintf("probe panicked: %v", r)}
		}
	}()

	if !addr.IsValid() {
		outcome.Detail = ErrInvalidAddress.Error()
		return outcome
	}

	if addr.IsLoopback() {
		outcome.Reachable = true
		outcome.Method = MethodShortcut
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	pingErr := c.pinger.Ping(ctx, addr, c.echoTimeout)
	if pingErr == nil {
		outcome.Reachable = true
		outcome.Method = MethodActive
		return outcome
	}
	gologger.Debug().Msgf("echo to %s failed: %s", addr, pingErr)

	if c.neighbors != nil {
		found, err := c.neighbors.Contains(ctx, addr.Addr())
		switch {
		case err != nil:
			gologger.Debug().Msgf("neighbor lookup for %s failed: %s", addr, err)
		case found:
			outcome.Reachable = true
			outcome.Method = MethodFallback
			return outcome
		}
	}

	outcome.Detail = pingErr.Error()
	return outcome
}

var defaultChecker = sync.OnceValue(func() *Checker {
	return New()
})

// CheckLiveness validates address and probes it with the default Checker.
// The only error returned is a validation error.
func CheckLiveness(ctx context.Context, address string) (Outcome, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Outcome{}, err
	}
	return defaultChecker().Probe(ctx, addr), nil
}
