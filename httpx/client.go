package httpx

import (
	"net"
	"net/http"
)

// ClientIP is the remote address without its port. Behind a proxy the
// router's RealIP middleware has already rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
