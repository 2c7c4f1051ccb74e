package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// badPaths are probes for software this API never serves. Words used by real
// routes (admin, login, password) must not appear here.
var badPaths = []string{
	".env", "DIAGNOSTICS", "console",
	".php", "mysql", "cgi-bin", "index.jsp",
	"powershell", "actuator",
	"geoserver", "goform", "luci", "set_LimitClient_cfg", "wp-login.php",
	"wp-admin", "xmlrpc.php", "passwd", "shadow",
	"bin/bash", "bin/sh", "cmd.exe", "phpmyadmin",
	"tomcat", "manager/html", "web-console", "login.do",
}

const apiPrefix = "/api/"

// isBadPath matches probes anywhere outside /api/. Under /api/ the path
// carries content slugs, so only file probes (patterns with a dot, which
// slugs never contain) count there.
func isBadPath(requestPath string) bool {
	if !strings.HasPrefix(requestPath, apiPrefix) {
		for _, path := range badPaths {
			if strings.Contains(requestPath, path) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(requestPath[len(apiPrefix):], "/") {
		for _, path := range badPaths {
			if strings.Contains(path, ".") && strings.Contains(segment, path) {
				return true
			}
		}
	}
	return false
}

func BlockBadActorsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isBadPath(c.Request.URL.Path) {
			c.JSON(403, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
