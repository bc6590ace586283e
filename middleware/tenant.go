package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/Kanishk2004/plug-rag-sub002/utils"
)

const TenantIDHeader = "X-Tenant-ID"

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// TenantMiddleware extracts the tenant ID from the request header and
// rejects requests without one. Every document, chunk, and crawl query
// downstream is scoped by this value.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantIDHeader)
		if tenantID == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "missing_tenant",
				"X-Tenant-ID header is required", nil)
			c.Abort()
			return
		}
		if !tenantIDPattern.MatchString(tenantID) {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_tenant",
				"Tenant ID may only contain letters, digits, underscores and hyphens", nil)
			c.Abort()
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID set by TenantMiddleware.
func GetTenantID(c *gin.Context) string {
	if id, exists := c.Get("tenant_id"); exists {
		if str, ok := id.(string); ok {
			return str
		}
	}
	return ""
}
