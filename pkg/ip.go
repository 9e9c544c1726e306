package pkg

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"regexp"
	"strings"
)

var (
	localDockerIpRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1(:\d{1,6})?$`)
)

func IPIsLocal(ipAddr string) bool {
	// used in local development ?
	if strings.HasPrefix(ipAddr, "127.0.0.1") || strings.HasPrefix(ipAddr, "[::1]") || ipAddr == "::1" {
		return true
	}

	// user within docker container ?
	return localDockerIpRegex.MatchString(ipAddr)
}

// TrustedProxies are the networks whose X-Real-Ip and X-Forwarded-For headers are believed.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts CIDRs ("10.0.0.0/8") and single addresses ("127.0.0.1").
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

func (tp TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range tp {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ReadUserIP returns the client address of the request, without the port.
// X-Real-Ip and X-Forwarded-For are only read when the connection comes from
// one of the trusted proxies.
func ReadUserIP(r *http.Request, trusted TrustedProxies) (string, error) {
	ipAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}

	if trusted.Contains(ipAddr) {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
			ipAddr = realIP
		} else if forwarded := forwardedClient(r.Header.Get("X-Forwarded-For"), trusted); forwarded != "" {
			ipAddr = forwarded
		}
	}

	if IPIsLocal(ipAddr) {
		return "localhost", nil
	}

	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}

	if net.ParseIP(ipAddr) == nil {
		return "", fmt.Errorf("ip addr %s is invalid", ipAddr)
	}

	return ipAddr, nil
}

// forwardedClient walks the chain from the nearest hop and returns the first
// address that is not one of our proxies.
func forwardedClient(header string, trusted TrustedProxies) string {
	if header == "" {
		return ""
	}
	hops := strings.Split(header, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !trusted.Contains(hop) {
			return hop
		}
	}
	// every hop is a proxy, the first one is as close to the client as we get
	return strings.TrimSpace(hops[0])
}
