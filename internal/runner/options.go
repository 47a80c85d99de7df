package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/liveprobe/pkg/liveness"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/liveprobe/pkg/peerdiscovery/pingsweep"
	"github.com/projectdiscovery/liveprobe/pkg/version"
	envutil "github.com/projectdiscovery/utils/env"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// DefaultRange is scanned when neither targets nor ranges are given
const DefaultRange = "192.168.1.0/24"

var (
	ConcurrencyEnv = envutil.GetEnvOrDefault("LIVEPROBE_CONCURRENCY", strconv.Itoa(pingsweep.DefaultConcurrency))
	VerboseEnv     = envutil.GetEnvOrDefault("LIVEPROBE_VERBOSE", "")
	OutputEnv      = envutil.GetEnvOrDefault("LIVEPROBE_OUTPUT", "")
)

// Options contains the configuration options of a liveprobe run
type Options struct {
	Targets      goflags.StringSlice
	Ranges       goflags.StringSlice
	AutoDiscover bool

	Concurrency      int
	NoResolve        bool
	Prioritize       bool
	RawICMP          bool
	NeighborCacheTTL time.Duration

	JSON   bool
	Output string

	Verbose bool
	Debug   bool
	Silent  bool
	NoColor bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`liveprobe finds the live devices of a local network with echo requests and neighbor tables`)

	defaultConcurrency := pingsweep.DefaultConcurrency
	if val, err := strconv.Atoi(ConcurrencyEnv); err == nil && val > 0 {
		defaultConcurrency = val
	}

	flagSet.CreateGroup("input", "Input",
		flagSet.StringSliceVarP(&options.Targets, "target", "t", nil, "addresses to check (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringSliceVarP(&options.Ranges, "range", "r", nil, "cidr ranges to scan, at most 65536 hosts each (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.BoolVarP(&options.AutoDiscover, "autodiscover", "ad", false, "scan the private networks of the local interfaces"),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", defaultConcurrency, "number of probes in flight (max 32)"),
		flagSet.BoolVarP(&options.NoResolve, "no-resolve", "nr", false, "skip reverse lookups of reachable hosts"),
		flagSet.BoolVarP(&options.Prioritize, "prioritize", "p", false, "probe likely-online addresses first"),
		flagSet.BoolVar(&options.RawICMP, "raw-icmp", false, "send echo requests from an icmp socket instead of the ping binary"),
		flagSet.DurationVar(&options.NeighborCacheTTL, "neighbor-cache-ttl", arp.DefaultTTL, "how long a neighbor table snapshot is reused (0 to disable)"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.BoolVarP(&options.JSON, "json", "j", false, "write results as json lines"),
		flagSet.StringVarP(&options.Output, "output", "o", OutputEnv, "file to write results to"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show debug output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	if verbose := strings.ToLower(VerboseEnv); (verbose == "true" || verbose == "1") && !options.Verbose {
		options.Verbose = true
	}

	options.configureOutput()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("Program exiting: %s\n", err)
	}

	return options
}

// validate normalizes the inputs and rejects malformed ones before anything is probed
func (options *Options) validate() error {
	options.Targets = sliceutil.Dedupe(trimAll(options.Targets))
	options.Ranges = sliceutil.Dedupe(trimAll(options.Ranges))

	for _, target := range options.Targets {
		if _, err := liveness.ParseAddress(target); err != nil {
			return fmt.Errorf("target %q: %w", target, err)
		}
	}
	for _, cidr := range options.Ranges {
		if _, err := pingsweep.ParseRange(cidr); err != nil {
			return fmt.Errorf("range %q: %w", cidr, err)
		}
	}

	options.Concurrency = min(max(options.Concurrency, 1), pingsweep.DefaultConcurrency)
	if options.NeighborCacheTTL < 0 {
		options.NeighborCacheTTL = 0
	}

	if len(options.Targets) == 0 && len(options.Ranges) == 0 && !options.AutoDiscover {
		options.Ranges = goflags.StringSlice{DefaultRange}
	}
	return nil
}

func trimAll(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			trimmed = append(trimmed, value)
		}
	}
	return trimmed
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.Debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}
