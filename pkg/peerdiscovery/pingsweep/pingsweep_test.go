package pingsweep

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/projectdiscovery/liveprobe/pkg/liveness"
)

// fakeProber reports the addresses in up as reachable and records every probe
type fakeProber struct {
	up    map[netip.Addr]bool
	delay time.Duration

	mu       sync.Mutex
	probed   []netip.Addr
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeProber(up ...string) *fakeProber {
	p := &fakeProber{up: make(map[netip.Addr]bool)}
	for _, ip := range up {
		p.up[netip.MustParseAddr(ip)] = true
	}
	return p
}

func (p *fakeProber) Probe(ctx context.Context, addr liveness.Address) liveness.Outcome {
	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	p.mu.Lock()
	p.probed = append(p.probed, addr.Addr())
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	outcome := liveness.Outcome{Target: addr.String(), Addr: addr.Addr()}
	if p.up[addr.Addr()] {
		outcome.Reachable = true
		outcome.Method = liveness.MethodActive
	}
	return outcome
}

func (p *fakeProber) probedAddrs() []netip.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]netip.Addr(nil), p.probed...)
}

type fakeResolver struct {
	names map[string]string
	calls atomic.Int32
}

func (r *fakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	r.calls.Add(1)
	if name, ok := r.names[addr]; ok {
		return []string{name}, nil
	}
	return nil, errors.New("no such host")
}

func TestScanProbesEveryHostOnce(t *testing.T) {
	tests := []struct {
		name      string
		cidr      string
		up        []string
		wantProbe int
		wantUp    []string
	}{
		{name: "/30 both up", cidr: "10.0.0.0/30", up: []string{"10.0.0.1", "10.0.0.2"}, wantProbe: 2, wantUp: []string{"10.0.0.1", "10.0.0.2"}},
		{name: "/24 some up", cidr: "192.168.1.0/24", up: []string{"192.168.1.1", "192.168.1.50", "192.168.1.254"}, wantProbe: 254, wantUp: []string{"192.168.1.1", "192.168.1.50", "192.168.1.254"}},
		{name: "/32 down", cidr: "10.0.0.9/32", wantProbe: 1},
		{name: "/31 one up", cidr: "10.0.0.0/31", up: []string{"10.0.0.0"}, wantProbe: 2, wantUp: []string{"10.0.0.0"}},
		{name: "prober reports outside the range", cidr: "10.0.0.0/30", up: []string{"10.0.0.3", "10.9.9.9"}, wantProbe: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := newFakeProber(tt.up...)
			scanner := New(prober, WithResolver(nil))

			result, err := scanner.ScanRange(context.Background(), tt.cidr)
			if err != nil {
				t.Fatalf("ScanRange(%q) error = %v", tt.cidr, err)
			}

			probed := prober.probedAddrs()
			if len(probed) != tt.wantProbe || result.Probed != tt.wantProbe {
				t.Fatalf("probed %d (result says %d), want %d", len(probed), result.Probed, tt.wantProbe)
			}
			r := MustParseRange(tt.cidr)
			seen := make(map[netip.Addr]bool)
			for _, addr := range probed {
				if seen[addr] {
					t.Errorf("%s probed twice", addr)
				}
				if !r.Contains(addr) {
					t.Errorf("%s probed outside %s", addr, r)
				}
				seen[addr] = true
			}

			got := make(map[string]bool)
			for _, outcome := range result.Reachable {
				if !outcome.Reachable {
					t.Errorf("unreachable outcome %s in result", outcome.Addr)
				}
				if got[outcome.Addr.String()] {
					t.Errorf("%s reported twice", outcome.Addr)
				}
				got[outcome.Addr.String()] = true
			}
			if len(got) != len(tt.wantUp) {
				t.Fatalf("reachable = %v, want %v", got, tt.wantUp)
			}
			for _, ip := range tt.wantUp {
				if !got[ip] {
					t.Errorf("%s missing from result", ip)
				}
			}
			if result.ID == "" || result.Range != r.String() {
				t.Errorf("result id %q range %q", result.ID, result.Range)
			}
		})
	}
}

func TestScanRangeInvalid(t *testing.T) {
	prober := newFakeProber()
	scanner := New(prober, WithResolver(nil))

	for _, cidr := range []string{"not-a-subnet", "", "10.0.0.0/8"} {
		result, err := scanner.ScanRange(context.Background(), cidr)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ScanRange(%q) error = %v, want ErrInvalidRange", cidr, err)
		}
		if result != nil {
			t.Errorf("ScanRange(%q) returned a result", cidr)
		}
	}
	if n := len(prober.probedAddrs()); n != 0 {
		t.Errorf("%d probes ran for invalid ranges", n)
	}
}

func TestScanConcurrencyCeiling(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		want        int32
	}{
		{name: "default", concurrency: 0, want: DefaultConcurrency},
		{name: "clamped", concurrency: 100, want: DefaultConcurrency},
		{name: "lower", concurrency: 4, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := newFakeProber()
			prober.delay = 2 * time.Millisecond

			opts := []Option{WithResolver(nil)}
			if tt.concurrency > 0 {
				opts = append(opts, WithConcurrency(tt.concurrency))
			}
			result := New(prober, opts...).Scan(context.Background(), MustParseRange("10.0.0.0/22"))

			if result.Probed != 1022 {
				t.Fatalf("probed %d, want 1022", result.Probed)
			}
			if peak := prober.peak.Load(); peak > tt.want {
				t.Errorf("peak in-flight probes = %d, want at most %d", peak, tt.want)
			}
		})
	}
}

func TestScanReverseNames(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{
		"10.0.0.1": "gateway.lan.",
	}}
	prober := newFakeProber("10.0.0.1", "10.0.0.2")

	result := New(prober, WithResolver(resolver)).Scan(context.Background(), MustParseRange("10.0.0.0/29"))

	names := make(map[string]string)
	for _, outcome := range result.Reachable {
		names[outcome.Addr.String()] = outcome.Name
	}
	if len(names) != 2 {
		t.Fatalf("reachable = %v, want 2 hosts", names)
	}
	if names["10.0.0.1"] != "gateway.lan" {
		t.Errorf("name of 10.0.0.1 = %q, want gateway.lan", names["10.0.0.1"])
	}
	if names["10.0.0.2"] != "" {
		t.Errorf("name of 10.0.0.2 = %q, want empty", names["10.0.0.2"])
	}
	// unreachable hosts are never resolved
	if calls := resolver.calls.Load(); calls != 2 {
		t.Errorf("resolver called %d times, want 2", calls)
	}
}

func TestNameResolverCachesSuccessOnly(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"10.0.0.1": "host"}}
	names := newNameResolver(resolver, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if name, ok := names.lookup(ctx, netip.MustParseAddr("10.0.0.1")); !ok || name != "host" {
			t.Fatalf("lookup = %q, %v", name, ok)
		}
		if _, ok := names.lookup(ctx, netip.MustParseAddr("10.0.0.2")); ok {
			t.Fatal("lookup of an unknown address succeeded")
		}
	}
	// one call for the cached name, three for the failing one
	if calls := resolver.calls.Load(); calls != 4 {
		t.Errorf("resolver called %d times, want 4", calls)
	}
}

func TestScanPrioritizedOrder(t *testing.T) {
	prober := newFakeProber()
	New(prober, WithResolver(nil), WithConcurrency(1), WithPrioritized(true)).
		Scan(context.Background(), MustParseRange("192.168.7.0/24"))

	probed := prober.probedAddrs()
	if len(probed) != 254 {
		t.Fatalf("probed %d, want 254", len(probed))
	}
	want := []string{"192.168.7.1", "192.168.7.254", "192.168.7.2"}
	for i, ip := range want {
		if probed[i].String() != ip {
			t.Errorf("probe %d = %s, want %s", i, probed[i], ip)
		}
	}
}

func TestScanOnResult(t *testing.T) {
	prober := newFakeProber("10.0.0.1", "10.0.0.5", "10.0.0.6")

	var streamed []string
	result := New(prober, WithResolver(nil), WithOnResult(func(o liveness.Outcome) {
		streamed = append(streamed, o.Addr.String())
	})).Scan(context.Background(), MustParseRange("10.0.0.0/29"))

	if len(streamed) != len(result.Reachable) {
		t.Fatalf("streamed %d outcomes, result holds %d", len(streamed), len(result.Reachable))
	}
	for i, outcome := range result.Reachable {
		if streamed[i] != outcome.Addr.String() {
			t.Errorf("streamed[%d] = %s, want %s", i, streamed[i], outcome.Addr)
		}
	}
}

func TestScanCancelledContextCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := newFakeProber("10.0.0.1")
	result := New(prober, WithResolver(nil)).Scan(ctx, MustParseRange("10.0.0.0/28"))

	if result.Probed != 14 {
		t.Errorf("probed %d, want 14", result.Probed)
	}
}

// fixedProber reports every address reachable with the same, possibly wrong, outcome
type fixedProber struct {
	outcome liveness.Outcome
}

func (p fixedProber) Probe(context.Context, liveness.Address) liveness.Outcome {
	return p.outcome
}

func TestScanKeysResultsByDispatchedAddress(t *testing.T) {
	tests := []struct {
		name    string
		outcome liveness.Outcome
	}{
		{name: "address left unset", outcome: liveness.Outcome{Reachable: true}},
		{name: "address outside the range", outcome: liveness.Outcome{Target: "192.0.2.1", Addr: netip.MustParseAddr("192.0.2.1"), Reachable: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MustParseRange("10.0.0.0/29")
			result := New(fixedProber{outcome: tt.outcome}, WithResolver(nil)).Scan(context.Background(), r)

			if result.Probed != 6 || len(result.Reachable) != 6 {
				t.Fatalf("probed=%d reachable=%d, want 6 and 6", result.Probed, len(result.Reachable))
			}
			seen := make(map[netip.Addr]bool)
			for _, outcome := range result.Reachable {
				if !r.Contains(outcome.Addr) {
					t.Errorf("%s reported outside %s", outcome.Addr, r)
				}
				if seen[outcome.Addr] {
					t.Errorf("%s reported twice", outcome.Addr)
				}
				seen[outcome.Addr] = true
				if outcome.Target == "" {
					t.Errorf("%s has no target", outcome.Addr)
				}
			}
		})
	}
}
