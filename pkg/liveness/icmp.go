package liveness

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// sequence is shared by every ICMPPinger so concurrent probes never reuse a sequence number
var sequence atomic.Uint32

// ICMPPinger sends echo requests from the process itself instead of the ping binary.
//
// Privileged pingers use raw sockets and need root or CAP_NET_RAW. Unprivileged
// pingers use datagram ICMP sockets, which Linux only allows for groups listed in
// net.ipv4.ping_group_range and macOS allows for everyone.
type ICMPPinger struct {
	Privileged bool
}

// Ping sends one echo request and waits for the matching reply
func (p *ICMPPinger) Ping(ctx context.Context, addr Address, timeout time.Duration) error {
	ip := addr.Addr().Unmap()

	var (
		network, listen string
		echoType        icmp.Type
		replyType       icmp.Type
		protocol        int
	)
	if ip.Is4() {
		network, listen = "udp4", "0.0.0.0"
		if p.Privileged {
			network = "ip4:icmp"
		}
		echoType, replyType, protocol = ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply, protocolICMP
	} else {
		network, listen = "udp6", "::"
		if p.Privileged {
			network = "ip6:ipv6-icmp"
		}
		echoType, replyType, protocol = ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply, protocolIPv6ICMP
	}

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return fmt.Errorf("failed to open icmp socket: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	id := os.Getpid() & 0xffff
	seq := int(sequence.Add(1) & 0xffff)
	msg := &icmp.Message{
		Type: echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  seq,
			Data: []byte("liveprobe"),
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	var dst net.Addr = &net.IPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
	if !p.Privileged {
		dst = &net.UDPAddr{IP: ip.AsSlice(), Zone: ip.Zone()}
	}
	if _, err := conn.WriteTo(msgBytes, dst); err != nil {
		return fmt.Errorf("failed to send echo request: %w", err)
	}

	want := echoRequest{ip: ip, id: id, seq: seq, protocol: protocol, replyType: replyType, privileged: p.Privileged}
	reply := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			return &PingError{Err: errNoEchoReply, Output: err.Error()}
		}
		if want.matches(reply[:n], peer) {
			return nil
		}
	}
}

// echoRequest identifies the reply to one sent echo
type echoRequest struct {
	ip         netip.Addr
	id, seq    int
	protocol   int
	replyType  icmp.Type
	privileged bool
}

// matches reports whether packet, received from peer, is the reply to r
func (r echoRequest) matches(packet []byte, peer net.Addr) bool {
	rm, err := icmp.ParseMessage(r.protocol, packet)
	if err != nil || rm.Type != r.replyType {
		return false
	}
	echo, ok := rm.Body.(*icmp.Echo)
	if !ok || echo.Seq != r.seq {
		return false
	}
	// datagram sockets get their ID rewritten by the kernel
	if r.privileged && echo.ID != r.id {
		return false
	}
	return samePeer(peer, r.ip)
}

func samePeer(peer net.Addr, ip netip.Addr) bool {
	var raw net.IP
	switch v := peer.(type) {
	case *net.IPAddr:
		raw = v.IP
	case *net.UDPAddr:
		raw = v.IP
	default:
		return false
	}
	got, ok := netip.AddrFromSlice(raw)
	return ok && got.Unmap() == ip.WithZone("")
}
