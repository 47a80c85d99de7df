package common

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseMAC(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "aa:bb:cc:dd:ee:ff", want: "aa:bb:cc:dd:ee:ff", ok: true},
		{input: "aa-bb-cc-dd-ee-ff", want: "aa:bb:cc:dd:ee:ff", ok: true},
		{input: "0:1a:2b:3:4:5", want: "00:1a:2b:03:04:05", ok: true},
		{input: "00:00:00:00:00:00", ok: false},
		{input: "ff-ff-ff-ff-ff-ff", ok: false},
		{input: "(incomplete)", ok: false},
		{input: "<incomplete>", ok: false},
		{input: "", ok: false},
		{input: "not-a-mac", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mac, ok := ParseMAC(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseMAC(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && mac.String() != tt.want {
				t.Errorf("ParseMAC(%q) = %s, want %s", tt.input, mac, tt.want)
			}
		})
	}
}

func TestNeighborCache(t *testing.T) {
	reads := 0
	failing := false
	read := func(ctx context.Context) ([]Neighbor, error) {
		reads++
		if failing {
			return nil, errors.New("arp: not found")
		}
		mac, _ := ParseMAC("aa:bb:cc:dd:ee:ff")
		return []Neighbor{{IP: netip.MustParseAddr("192.168.1.10"), MAC: mac}}, nil
	}

	t.Run("cached snapshot", func(t *testing.T) {
		reads = 0
		cache := NewNeighborCache(read, time.Minute)
		for i := 0; i < 3; i++ {
			ok, err := cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10"))
			if err != nil || !ok {
				t.Fatalf("Contains() = %v, %v, want true, nil", ok, err)
			}
		}
		ok, _ := cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.11"))
		if ok {
			t.Error("Contains() reported an address missing from the table")
		}
		if reads != 1 {
			t.Errorf("table read %d times, want 1", reads)
		}
	})

	t.Run("uncached", func(t *testing.T) {
		reads = 0
		cache := NewNeighborCache(read, 0)
		_, _ = cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10"))
		_, _ = cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10"))
		if reads != 2 {
			t.Errorf("table read %d times, want 2", reads)
		}
	})

	t.Run("mapped address", func(t *testing.T) {
		cache := NewNeighborCache(read, 0)
		ok, err := cache.Contains(context.Background(), netip.MustParseAddr("::ffff:192.168.1.10"))
		if err != nil || !ok {
			t.Errorf("Contains() = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("failed reads are not cached", func(t *testing.T) {
		reads = 0
		failing = true
		defer func() { failing = false }()
		cache := NewNeighborCache(read, time.Minute)
		if _, err := cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10")); err == nil {
			t.Fatal("Contains() error = nil, want read failure")
		}
		failing = false
		ok, err := cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10"))
		if err != nil || !ok {
			t.Errorf("Contains() after recovery = %v, %v, want true, nil", ok, err)
		}
		if reads != 2 {
			t.Errorf("table read %d times, want 2", reads)
		}
	})
}

func TestNeighborCacheSharesConcurrentReads(t *testing.T) {
	var reads atomic.Int32
	read := func(ctx context.Context) ([]Neighbor, error) {
		reads.Add(1)
		time.Sleep(20 * time.Millisecond)
		mac, _ := ParseMAC("aa:bb:cc:dd:ee:ff")
		return []Neighbor{{IP: netip.MustParseAddr("192.168.1.10"), MAC: mac}}, nil
	}
	cache := NewNeighborCache(read, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cache.Contains(context.Background(), netip.MustParseAddr("192.168.1.10"))
			if err != nil || !ok {
				t.Errorf("Contains() = %v, %v, want true, nil", ok, err)
			}
		}()
	}
	wg.Wait()

	if n := reads.Load(); n != 1 {
		t.Errorf("table read %d times, want 1", n)
	}
}
