package liveness

import (
	"strconv"
	"time"

	osutils "github.com/projectdiscovery/utils/os"
)

// Family is an operating system family with its own ping flag conventions
type Family int

const (
	FamilyPOSIX Family = iota
	FamilyDarwin
	FamilyWindows
)

func (f Family) String() string {
	switch f {
	case FamilyDarwin:
		return "darwin"
	case FamilyWindows:
		return "windows"
	default:
		return "posix"
	}
}

// Platform holds the ping parameters of one OS family
type Platform struct {
	Family      Family
	CountFlag   string
	TimeoutFlag string
	// TimeoutUnit is the unit the timeout flag value is expressed in
	TimeoutUnit time.Duration
}

var platforms = map[Family]Platform{
	FamilyWindows: {Family: FamilyWindows, CountFlag: "-n", TimeoutFlag: "-w", TimeoutUnit: time.Millisecond},
	FamilyDarwin:  {Family: FamilyDarwin, CountFlag: "-c", TimeoutFlag: "-t", TimeoutUnit: time.Second},
	FamilyPOSIX:   {Family: FamilyPOSIX, CountFlag: "-c", TimeoutFlag: "-W", TimeoutUnit: time.Second},
}

// PlatformFor returns the parameter table of a family
func PlatformFor(family Family) Platform {
	if p, ok := platforms[family]; ok {
		return p
	}
	return platforms[FamilyPOSIX]
}

// DetectPlatform returns the parameter table of the running OS
func DetectPlatform() Platform {
	switch {
	case osutils.IsWindows():
		return PlatformFor(FamilyWindows)
	case osutils.IsOSX():
		return PlatformFor(FamilyDarwin)
	default:
		return PlatformFor(FamilyPOSIX)
	}
}

// Args builds the arguments for a single echo request to target. The timeout is
// rounded up to the platform unit and is never lower than one unit.
func (p Platform) Args(target string, timeout time.Duration) []string {
	unit := p.TimeoutUnit
	if unit <= 0 {
		unit = time.Second
	}
	value := int64((timeout + unit - 1) / unit)
	if value < 1 {
		value = 1
	}
	return []string{p.CountFlag, "1", p.TimeoutFlag, strconv.FormatInt(value, 10), target}
}
