package main

import (
	"log"
	"net"
	"net/http"
	"strings"
)

// accessPolicy decides which clients may reach the health endpoints.
type accessPolicy struct {
	allowed []*net.IPNet
	// trusted lists proxies whose X-Forwarded-For header is believed.
	trusted []*net.IPNet
}

// newAccessPolicy parses the comma-separated health_allowed_cidrs and
// health_trusted_proxies values. An empty allow-list lets everyone in.
func newAccessPolicy(allowedCIDRs, trustedProxies string) accessPolicy {
	p := accessPolicy{
		allowed: parseCIDRs("health_allowed_cidrs", allowedCIDRs),
		trusted: parseCIDRs("health_trusted_proxies", trustedProxies),
	}
	if len(p.allowed) > 0 {
		log.Printf("[health] allow-list enabled: %s (trusted proxies: %d)", allowedCIDRs, len(p.trusted))
	}
	return p
}

func (p accessPolicy) middleware(next http.Handler) http.Handler {
	if len(p.allowed) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := p.clientIP(r)
		if ip != nil && containsIP(p.allowed, ip) {
			next.ServeHTTP(w, r)
			return
		}
		log.Printf("[health] denied %s %s from %s (peer %s)", r.Method, r.URL.Path, ip, r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// clientIP attributes a request to the TCP peer. Only when the peer is a
// trusted proxy is X-Forwarded-For consulted: hops are read right to left
// and the first one that is not itself a trusted proxy is the client. nil
// means the request cannot be attributed.
func (p accessPolicy) clientIP(r *http.Request) net.IP {
	peer := peerIP(r)
	if peer == nil || !containsIP(p.trusted, peer) {
		return peer
	}

	xff := strings.Join(r.Header.Values("X-Forwarded-For"), ",")
	if strings.TrimSpace(xff) == "" {
		return peer
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return nil
		}
		if !containsIP(p.trusted, ip) {
			return ip
		}
	}
	return peer
}

func peerIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseCIDRs accepts CIDRs and bare addresses. Invalid entries are logged
// under key and skipped.
func parseCIDRs(key, raw string) []*net.IPNet {
	var nets []*net.IPNet
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if ip := net.ParseIP(s); ip != nil {
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, cidr, err := net.ParseCIDR(s)
		if err != nil {
			log.Printf("[health] %s: ignoring invalid entry %q: %v", key, s, err)
			continue
		}
		nets = append(nets, cidr)
	}
	return nets
}
