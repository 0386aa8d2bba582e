package server

import (
	"net"
	"net/http"
	"strings"
)

// ExtractIP returns the client address: the first X-Forwarded-For hop when
// trustForwarded is set, otherwise the host part of RemoteAddr.
func ExtractIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i >= 0 {
				xff = xff[:i]
			}
			if ip := strings.TrimSpace(xff); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
