package websocket

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin guards the admin live feed against cross-site WebSocket
// hijacking. Browsers always send Origin on upgrades, so a missing header
// means a non-browser client, which still has to pass session auth.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		if originAllowed(origin, appOrigin, isDevelopment) {
			return true
		}

		slog.Warn("Live feed origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func originAllowed(origin, appOrigin string, isDevelopment bool) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	if appOrigin != "" && strings.EqualFold(u.Scheme+"://"+u.Host, appOrigin) {
		return true
	}
	return isDevelopment && isLoopbackHost(u.Hostname())
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
