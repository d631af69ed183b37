package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"registrar/internal/authz"
)

// RegistrationAccess пускает к /api/registrations по роли из JWT.
// Чтение: viewer, staff, admin. Любая запись: только staff и admin.
func RegistrationAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("role_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no role in context"})
			return
		}
		roleID, _ := v.(int)

		allowed := authz.CanManageRegistrations(roleID)
		if isSafeMethod(c.Request.Method) {
			allowed = authz.CanViewRegistrations(roleID)
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
