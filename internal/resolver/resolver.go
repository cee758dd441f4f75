// Package resolver wraps net.Resolver for the two name-resolution task
// types the engine supports: a single bounded-buffer hostname lookup
// (DNSLookup, mirroring swoole's gethostbyname+inet_ntop path) and a
// structured multi-result lookup (GetAddrInfo, the concrete replacement for
// spec.md's "delegates to an external routine").
//
// net.Resolver is always safe for concurrent use, so unlike the C source
// this package never needs a reentrant-vs-serialized branch; the engine
// still exercises its own mutex around resolver calls when
// SerializeResolverCalls is true, to keep §5's "no reentrant variant
// available" serialization path alive as a tested code path rather than
// dead C preprocessor branch.
package resolver

import (
	"context"
	"net"
	"net/netip"
)

// SerializeResolverCalls mirrors the C source's "#ifndef
// HAVE_GETHOSTBYNAME2_R" build-time branch: when true, the engine serializes
// resolver calls under its own mutex even though net.Resolver does not
// require it. It exists so that code path has a concrete exerciser.
const SerializeResolverCalls = true

// ErrAddressFormat is returned when a resolved address does not fit in the
// caller-provided buffer.
type ErrAddressFormat struct {
	Addr string
}

func (e *ErrAddressFormat) Error() string {
	return "resolver: address " + e.Addr + " does not fit in buffer"
}

// Family selects which address family DNSLookup should resolve to.
type Family int

const (
	FamilyAny Family = iota
	FamilyIPv4
	FamilyIPv6
)

// Interface is the seam between the engine and name resolution, satisfied by
// Default (which wraps net.Resolver) and, in tests, by a fake that returns
// fixed results without touching the network.
type Interface interface {
	LookupHost(ctx context.Context, host string, family Family, buf []byte) (int, error)
	GetAddrInfo(ctx context.Context, host, service string, hints Hints) ([]Result, error)
}

// netResolver implements Interface over net.Resolver.
type netResolver struct{}

// Default is the Interface implementation the engine uses unless a test
// injects a fake via aio.WithResolver.
var Default Interface = netResolver{}

func (netResolver) LookupHost(ctx context.Context, host string, family Family, buf []byte) (int, error) {
	return LookupHost(ctx, host, family, buf)
}

func (netResolver) GetAddrInfo(ctx context.Context, host, service string, hints Hints) ([]Result, error) {
	return GetAddrInfo(ctx, host, service, hints)
}

// LookupHost resolves host to a single address of the requested family and
// writes its textual form into buf. It returns the number of bytes written.
// The address is never truncated: if its textual form is wider than buf,
// nothing is written and it returns ErrAddressFormat — the generic replacement for the
// original BAD_IPV6_ADDRESS code, which was reused for both address
// families.
func LookupHost(ctx context.Context, host string, family Family, buf []byte) (int, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, networkFor(family), host)
	if err != nil {
		return 0, err
	}
	if len(ips) == 0 {
		return 0, &net.DNSError{Err: "no addresses found", Name: host}
	}

	text := ips[0].String()
	if len(text) > len(buf) {
		return 0, &ErrAddressFormat{Addr: text}
	}
	return copy(buf, text), nil
}

func networkFor(family Family) string {
	if family == FamilyIPv6 {
		return "ip6"
	}
	return "ip4"
}

// Hints narrows a GetAddrInfo resolution, mirroring the addrinfo hints
// struct consulted by the original getaddrinfo(3) call.
type Hints struct {
	Family Family
}

// Result is one resolved address, with the additional information
// getaddrinfo(3) callers typically want beyond a bare IP.
type Result struct {
	Addr netip.Addr
	Port uint16
}

// GetAddrInfo resolves host (and, if non-empty, service as a port/service
// name) honoring hints.Family, returning every matching address. This is the
// concrete implementation behind spec.md's GETADDRINFO variant, which the
// original source leaves as an opaque delegation to swoole_getaddrinfo.
func GetAddrInfo(ctx context.Context, host, service string, hints Hints) ([]Result, error) {
	ipAddrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	var port uint16
	if service != "" {
		p, err := net.DefaultResolver.LookupPort(ctx, "tcp", service)
		if err != nil {
			return nil, err
		}
		port = uint16(p)
	}

	results := make([]Result, 0, len(ipAddrs))
	for _, ia := range ipAddrs {
		addr, ok := netip.AddrFromSlice(ia.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		switch hints.Family {
		case FamilyIPv6:
			if !addr.Is6() {
				continue
			}
		case FamilyIPv4:
			if !addr.Is4() {
				continue
			}
		}
		results = append(results, Result{Addr: addr, Port: port})
	}
	return results, nil
}
