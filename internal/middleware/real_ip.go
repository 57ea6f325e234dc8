package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust lists the peers allowed to report the client address through
// X-Forwarded-For or X-Real-IP. A zero ProxyTrust trusts nobody.
type ProxyTrust struct {
	nets []*net.IPNet
}

// ParseTrustedProxies reads a comma separated list of IPs and CIDRs
func ParseTrustedProxies(value string) (*ProxyTrust, error) {
	trust := &ProxyTrust{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", item)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			trust.nets = append(trust.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
		}
		trust.nets = append(trust.nets, ipNet)
	}
	return trust, nil
}

func (p *ProxyTrust) trusted(ip net.IP) bool {
	if p == nil || ip == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the client address of r. Forwarding headers are only
// read when the socket peer is trusted, and X-Forwarded-For is walked from
// the right so a client cannot prepend its own entry.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !p.trusted(net.ParseIP(peer)) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			ip := net.ParseIP(hop)
			if ip == nil {
				break
			}
			client = hop
			if !p.trusted(ip) {
				break
			}
		}
		return client
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// RealIP replaces r.RemoteAddr with the client address resolved by trust
func RealIP(trust *ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.RemoteAddr = trust.ClientIP(r)
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
