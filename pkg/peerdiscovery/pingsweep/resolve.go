package pingsweep

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/gcache"
)

const (
	// DefaultNameTimeout bounds a single reverse lookup
	DefaultNameTimeout = time.Second
	nameCacheSize      = 4096
	nameCacheTTL       = 5 * time.Minute
)

// Resolver performs reverse lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// nameResolver wraps a Resolver with a timeout and a cache of successful lookups
type nameResolver struct {
	resolver Resolver
	timeout  time.Duration
	names    gcache.Cache[netip.Addr, string]
}

func newNameResolver(resolver Resolver, timeout time.Duration) *nameResolver {
	return &nameResolver{
		resolver: resolver,
		timeout:  timeout,
		names: gcache.New[netip.Addr, string](nameCacheSize).
			LRU().
			Expiration(nameCacheTTL).
			Build(),
	}
}

// lookup returns the first name of addr. ok is false on any failure.
func (r *nameResolver) lookup(ctx context.Context, addr netip.Addr) (name string, ok bool) {
	if name, err := r.names.Get(addr); err == nil {
		return name, true
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(ctx, addr.String())
	if err != nil || len(names) == 0 {
		return "", false
	}

	name = strings.TrimSuffix(names[0], ".")
	if name == "" {
		return "", false
	}
	_ = r.names.Set(addr, name)
	return name, true
}
