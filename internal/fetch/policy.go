// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// blockedHostnames are rejected by name before any lookup.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata":                 true,
	"metadata.google.internal": true,
}

var blockedSuffixes = []string{".local", ".internal", ".localhost"}

// reservedPrefixes covers special-purpose ranges that netip does not
// classify on its own.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("fec0::/10"),
}

// Policy decides whether a URL may be fetched. Only https URLs whose host
// resolves exclusively to public addresses are allowed.
type Policy struct {
	// Resolver is used for hostnames that are not IP literals. Nil means
	// net.DefaultResolver.
	Resolver Resolver

	// Blocked reports whether an address must not be contacted. Nil means
	// IsBlockedAddr.
	Blocked func(netip.Addr) bool
}

// DefaultPolicy returns a policy backed by the system resolver.
func DefaultPolicy() *Policy {
	return &Policy{Resolver: net.DefaultResolver}
}

// Check validates rawURL and returns it parsed. The error is one of
// ErrInvalidURL, ErrOnlyHTTPS, or ErrPrivateHost. A failed lookup counts as
// a private host.
func (p *Policy) Check(ctx context.Context, rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "https" {
		return nil, ErrOnlyHTTPS
	}
	host := u.Hostname()
	if host == "" {
		return nil, ErrInvalidURL
	}
	if p.blockedHost(ctx, host) {
		return nil, ErrPrivateHost
	}
	return u, nil
}

func (p *Policy) blockedHost(ctx context.Context, host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if blockedHostnames[host] {
		return true
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return p.blocked(addr)
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return true
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok || p.blocked(addr) {
			return true
		}
	}
	return false
}

func (p *Policy) blocked(addr netip.Addr) bool {
	if p.Blocked != nil {
		return p.Blocked(addr)
	}
	return IsBlockedAddr(addr)
}

// IsBlockedAddr reports whether addr is private, loopback, link-local,
// multicast, unspecified, or otherwise reserved. IPv4-mapped IPv6
// addresses are judged by their IPv4 form.
func IsBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() {
		return true
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() {
		return true
	}
	if addr.Is4() && addr == netip.AddrFrom4([4]byte{255, 255, 255, 255}) {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
