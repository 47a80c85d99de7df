package liveness

import "net/netip"

// Method is the probe stage that confirmed reachability
type Method string

const (
	// MethodNone is set when nothing confirmed the target
	MethodNone Method = ""
	// MethodActive is an echo reply
	MethodActive Method = "active"
	// MethodFallback is a neighbor table entry found after a failed echo
	MethodFallback Method = "fallback"
	// MethodShortcut is a loopback target, reported without probing
	MethodShortcut Method = "shortcut"
)

// Outcome is the result of probing one address
type Outcome struct {
	Target    string     `json:"target"`
	Addr      netip.Addr `json:"ip"`
	Reachable bool       `json:"reachable"`
	Method    Method     `json:"method,omitempty"`
	Name      string     `json:"name,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

// WithName returns a copy of the outcome carrying a resolved name
func (o Outcome) WithName(name string) Outcome {
	o.Name = name
	return o
}
