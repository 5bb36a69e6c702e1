package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxTeacherIDKey = "teacher_id"
	CtxRoleKey      = "role"
)

// Bearer enforces HS256 bearer tokens and stores the teacher id and role in the context.
func Bearer(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "error": "missing bearer token"})
			return
		}
		id, err := r.Resolve(authz)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "error": "invalid token"})
			return
		}
		c.Set(CtxTeacherIDKey, id.TeacherID)
		c.Set(CtxRoleKey, id.Role)
		c.Next()
	}
}

// RequireRole allows only the listed roles. Use after Bearer.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r != "" {
			allowed[r] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "error": "forbidden"})
			return
		}
		c.Next()
	}
}

// TeacherID returns the caller set by Bearer, or 0.
func TeacherID(c *gin.Context) int64 {
	return c.GetInt64(CtxTeacherIDKey)
}
