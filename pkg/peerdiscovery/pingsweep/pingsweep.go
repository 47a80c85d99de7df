package pingsweep

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/liveprobe/pkg/liveness"
	"github.com/rs/xid"
)

// DefaultConcurrency is both the default and the maximum number of probes in flight
const DefaultConcurrency = 32

// Result holds the reachable hosts found by one scan
type Result struct {
	ID    string `json:"id"`
	Range string `json:"range"`
	// Probed is the number of probe tasks run, one per host address
	Probed int `json:"probed"`
	// Reachable is in completion order and never repeats an address
	Reachable []liveness.Outcome `json:"reachable"`
	Started   time.Time          `json:"started"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Scanner probes every host of a range under a fixed concurrency ceiling
type Scanner struct {
	prober      liveness.Prober
	resolver    Resolver
	names       *nameResolver
	concurrency int
	nameTimeout time.Duration
	prioritized bool
	onResult    func(liveness.Outcome)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithConcurrency sets the number of workers, clamped to [1, DefaultConcurrency]
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		s.concurrency = min(max(n, 1), DefaultConcurrency)
	}
}

// WithResolver replaces the system resolver used for reverse lookups. nil disables them.
func WithResolver(r Resolver) Option {
	return func(s *Scanner) {
		s.resolver = r
	}
}

// WithNameTimeout bounds each reverse lookup
func WithNameTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.nameTimeout = d
		}
	}
}

// WithPrioritized dispatches likely-online addresses (gateways, early DHCP) first
func WithPrioritized(prioritized bool) Option {
	return func(s *Scanner) {
		s.prioritized = prioritized
	}
}

// WithOnResult registers a callback receiving each reachable outcome as it is collected.
// Calls are sequential.
func WithOnResult(fn func(liveness.Outcome)) Option {
	return func(s *Scanner) {
		s.onResult = fn
	}
}

// New creates a Scanner. A nil prober uses liveness.New().
func New(prober liveness.Prober, opts ...Option) *Scanner {
	if prober == nil {
		prober = liveness.New()
	}
	s := &Scanner{
		prober:      prober,
		resolver:    net.DefaultResolver,
		concurrency: DefaultConcurrency,
		nameTimeout: DefaultNameTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver != nil {
		s.names = newNameResolver(s.resolver, s.nameTimeout)
	}
	return s
}

// ScanRange validates cidr and scans it. Nothing is probed when cidr is malformed.
func (s *Scanner) ScanRange(ctx context.Context, cidr string) (*Result, error) {
	r, err := ParseRange(cidr)
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx, r), nil
}

// Scan probes every host address of r exactly once and returns the reachable ones.
// It always runs to completion: a cancelled ctx makes the remaining probes fail fast.
func (s *Scanner) Scan(ctx context.Context, r *Range) *Result {
	result := &Result{
		ID:        xid.New().String(),
		Range:     r.String(),
		Reachable: []liveness.Outcome{},
		Started:   time.Now(),
	}

	hosts := r.Hosts()
	if s.prioritized {
		prioritize(hosts)
	}

	workers := min(s.concurrency, len(hosts))
	gologger.Verbose().Msgf("scan %s: probing %d hosts of %s with %d workers", result.ID, len(hosts), r, workers)

	tasks := make(chan netip.Addr)
	outcomes := make(chan liveness.Outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range tasks {
				outcomes <- s.probe(ctx, addr)
			}
		}()
	}

	go func() {
		for _, addr := range hosts {
			tasks <- addr
		}
		close(tasks)
		wg.Wait()
		close(outcomes)
	}()

	seen := make(map[netip.Addr]struct{})
	for outcome := range outcomes {
		result.Probed++
		if !outcome.Reachable {
			continue
		}
		if _, exists := seen[outcome.Addr]; exists {
			continue
		}
		seen[outcome.Addr] = struct{}{}

		result.Reachable = append(result.Reachable, outcome)
		if s.onResult != nil {
			s.onResult(outcome)
		}
	}

	result.Elapsed = time.Since(result.Started)
	gologger.Verbose().Msgf("scan %s: %d of %d hosts reachable in %s", result.ID, len(result.Reachable), result.Probed, result.Elapsed)
	return result
}

// probe one address and, if reachable, attach its reverse name
func (s *Scanner) probe(ctx context.Context, addr netip.Addr) liveness.Outcome {
	target := liveness.AddressFrom(addr)
	outcome := s.prober.Probe(ctx, target)
	// results are keyed by the dispatched address, whatever the prober reported
	outcome.Addr = addr
	if outcome.Target == "" {
		outcome.Target = target.String()
	}
	if !outcome.Reachable || outcome.Name != "" || s.names == nil {
		return outcome
	}
	if name, ok := s.names.lookup(ctx, addr); ok {
		outcome = outcome.WithName(name)
	}
	return outcome
}

var defaultScanner = sync.OnceValue(func() *Scanner {
	return New(nil)
})

// ScanRange validates a CIDR range and scans it with the default Scanner.
// The only error returned is a validation error, before any probing starts.
func ScanRange(ctx context.Context, cidr string) (*Result, error) {
	return defaultScanner().ScanRange(ctx, cidr)
}
