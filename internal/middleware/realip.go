package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/logger"
)

// ParseTrustedProxies reads CIDRs or bare addresses. Invalid entries are
// logged and skipped.
func ParseTrustedProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 8 * net.IPv4len
				if ip.To4() == nil {
					bits = 8 * net.IPv6len
				}
				nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
				continue
			}
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Log.Warn("ignoring invalid trusted proxy", "entry", entry, "error", err)
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func trusted(proxies []*net.IPNet, ip net.IP) bool {
	for _, n := range proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when
// the connection comes from one of proxies. The forwarded chain is read right
// to left and the first address that is not a proxy wins. With no proxies the
// headers are ignored and RemoteAddr is the TCP peer.
func RealIP(proxies []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(proxies) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, err := GetIP(r)
			if err == nil && trusted(proxies, net.ParseIP(peer)) {
				if client := forwardedClient(r, proxies); client != "" {
					r.RemoteAddr = client
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, proxies []*net.IPNet) string {
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return ""
		}
		if !trusted(proxies, ip) {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}
