package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/liveprobe/pkg/liveness"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/pingsweep"
	mapsutil "github.com/projectdiscovery/utils/maps"
	osutils "github.com/projectdiscovery/utils/os"
	syncutil "github.com/projectdiscovery/utils/sync"
	"github.com/shirou/gopsutil/v3/host"
)

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	prober  liveness.Prober
	scanner *pingsweep.Scanner
	output  *OutputWriter
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	output, err := NewOutputWriter(options.JSON, options.NoColor, options.Output)
	if err != nil {
		return nil, err
	}
	prober := newProber(options)
	return &Runner{
		options: options,
		prober:  prober,
		scanner: newScanner(options, prober, output),
		output:  output,
	}, nil
}

func newProber(options *Options) liveness.Prober {
	opts := []liveness.Option{
		liveness.WithNeighborTable(liveness.NewSystemNeighbors(options.NeighborCacheTTL)),
	}
	if options.RawICMP {
		// Windows has no datagram ICMP sockets
		privileged := os.Geteuid() == 0 || osutils.IsWindows()
		opts = append(opts, liveness.WithPinger(&liveness.ICMPPinger{Privileged: privileged}))
	}
	return liveness.New(opts...)
}

func newScanner(options *Options, prober liveness.Prober, output *OutputWriter) *pingsweep.Scanner {
	opts := []pingsweep.Option{
		pingsweep.WithConcurrency(options.Concurrency),
		pingsweep.WithPrioritized(options.Prioritize),
		pingsweep.WithOnResult(func(outcome liveness.Outcome) {
			if err := output.Write(outcome); err != nil {
				gologger.Warning().Msgf("Could not write result for %s: %s", outcome.Addr, err)
			}
		}),
	}
	if options.NoResolve {
		opts = append(opts, pingsweep.WithResolver(nil))
	}
	return pingsweep.New(prober, opts...)
}

// Run the instance
func (r *Runner) Run(ctx context.Context) error {
	logHostInfo()

	if len(r.options.Targets) > 0 {
		if err := r.checkTargets(ctx); err != nil {
			return err
		}
	}

	ranges := r.options.Ranges
	if r.options.AutoDiscover {
		ranges = append(ranges, autoDiscoveredRanges()...)
		if len(ranges) == 0 && len(r.options.Targets) == 0 {
			gologger.Warning().Msgf("No private networks found on local interfaces, scanning %s", DefaultRange)
			ranges = append(ranges, DefaultRange)
		}
	}

	for _, cidr := range ranges {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := r.scanner.ScanRange(ctx, cidr)
		if err != nil {
			return fmt.Errorf("range %q: %w", cidr, err)
		}
		gologger.Info().Msgf("Found %d live hosts in %s (%d probed, %s)", len(result.Reachable), result.Range, result.Probed, result.Elapsed)
	}
	return nil
}

// checkTargets probes every target in parallel and writes the reachable ones in input order
func (r *Runner) checkTargets(ctx context.Context) error {
	awg, err := syncutil.New(syncutil.WithSize(r.options.Concurrency))
	if err != nil {
		return fmt.Errorf("could not create waitgroup: %w", err)
	}

	outcomes := mapsutil.NewSyncLockMap[string, liveness.Outcome]()
	for _, target := range r.options.Targets {
		addr, err := liveness.ParseAddress(target)
		if err != nil {
			return fmt.Errorf("target %q: %w", target, err)
		}

		awg.Add()
		go func(target string, addr liveness.Address) {
			defer awg.Done()
			_ = outcomes.Set(target, r.prober.Probe(ctx, addr))
		}(target, addr)
	}
	awg.Wait()

	live := 0
	for _, target := range r.options.Targets {
		outcome, ok := outcomes.Get(target)
		if !ok {
			continue
		}
		if !outcome.Reachable {
			gologger.Verbose().Msgf("%s is unreachable: %s", target, outcome.Detail)
			continue
		}
		live++
		if err := r.output.Write(outcome); err != nil {
			return fmt.Errorf("could not write result for %s: %w", target, err)
		}
	}
	gologger.Info().Msgf("Found %d of %d targets live", live, len(r.options.Targets))
	return nil
}

func autoDiscoveredRanges() []string {
	networks, err := common.GetLocalNetworks24()
	if err != nil {
		gologger.Error().Msgf("Error getting local networks: %v", err)
		return nil
	}
	ranges := make([]string, 0, len(networks))
	for _, network := range networks {
		ranges = append(ranges, network.String())
	}
	gologger.Verbose().Msgf("Autodiscovered ranges: %v", ranges)
	return ranges
}

func logHostInfo() {
	info, err := host.Info()
	if err != nil {
		gologger.Debug().Msgf("Could not read host info: %s", err)
		return
	}
	gologger.Verbose().Msgf("Running on %s %s (%s, kernel %s)", info.Platform, info.PlatformVersion, info.OS, info.KernelVersion)
}

// Close the runner instance
func (r *Runner) Close() {
	if err := r.output.Close(); err != nil {
		gologger.Warning().Msgf("Could not close output: %s", err)
	}
}
