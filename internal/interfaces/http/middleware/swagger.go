package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
)

// SwaggerConfig guards the API documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // run the admin token check before serving
	AllowedIPs  []string // addresses or CIDR ranges; empty allows all
}

// SwaggerProtection answers 404 while the docs are disabled, 403 for
// clients outside AllowedIPs, and runs adminAuth when RequireAuth is set.
// Malformed AllowedIPs entries are ignored.
func SwaggerProtection(cfg SwaggerConfig, adminAuth gin.HandlerFunc) gin.HandlerFunc {
	allowed := parseAllowedPrefixes(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeNotFound, "Documentação da API indisponível", GetRequestID(c)))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !addrAllowed(clientAddr(c), allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Acesso à documentação restrito", GetRequestID(c)))
			return
		}

		if cfg.RequireAuth && adminAuth != nil {
			adminAuth(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

func parseAllowedPrefixes(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if p, err := netip.ParsePrefix(entry); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

// clientAddr prefers gin's ClientIP, which honours the trusted proxies
func clientAddr(c *gin.Context) netip.Addr {
	if addr, err := netip.ParseAddr(c.ClientIP()); err == nil {
		return addr.Unmap()
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func addrAllowed(addr netip.Addr, allowed []netip.Prefix) bool {
	if !addr.IsValid() {
		return false
	}
	for _, p := range allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
