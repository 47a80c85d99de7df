package liveness

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidAddress is returned for empty or malformed address input
var ErrInvalidAddress = errors.New("invalid address")

const localhost = "localhost"

// Address is a validated network address to probe
type Address struct {
	addr    netip.Addr
	literal string
}

// ParseAddress validates s as an IPv4 or IPv6 literal or the localhost name.
// IPv6 literals may carry a zone and may be enclosed in brackets.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if strings.EqualFold(s, localhost) {
		return Address{addr: netip.AddrFrom4([4]byte{127, 0, 0, 1}), literal: localhost}, nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return AddressFrom(addr), nil
}

// MustParseAddress is like ParseAddress but panics on invalid input
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFrom wraps an already parsed address
func AddressFrom(addr netip.Addr) Address {
	return Address{addr: addr, literal: addr.String()}
}

// Addr returns the numeric address. localhost maps to 127.0.0.1.
func (a Address) Addr() netip.Addr {
	return a.addr
}

// IsValid reports whether the address was built by ParseAddress or AddressFrom
func (a Address) IsValid() bool {
	return a.addr.IsValid()
}

// IsLoopback reports whether the address is localhost, in 127.0.0.0/8, ::1 or an
// IPv4-mapped loopback address.
func (a Address) IsLoopback() bool {
	return a.addr.Unmap().IsLoopback()
}

// String returns the address as given, normalized
func (a Address) String() string {
	return a.literal
}
