package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IPWhitelist returns a middleware that only allows requests from the given
// addresses. Entries may be plain IPs or CIDR ranges, so an ops network can
// be allowed in one entry. An empty whitelist allows everything.
func IPWhitelist(entries []string) gin.HandlerFunc {
	exact := make(map[string]bool, len(entries))
	var nets []*net.IPNet
	for _, e := range entries {
		if _, n, err := net.ParseCIDR(e); err == nil {
			nets = append(nets, n)
			continue
		}
		exact[e] = true
	}

	allowed := func(ip string) bool {
		if exact[ip] {
			return true
		}
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return false
		}
		for _, n := range nets {
			if n.Contains(parsed) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if len(exact) == 0 && len(nets) == 0 {
			c.Next()
			return
		}
		if !allowed(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
