package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrattend/internal/auth"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// RegisterRoutes mounts the authenticated attendance API under /v1.
func RegisterRoutes(r gin.IRouter, h *Handler, resolver *auth.Resolver) {
	v1 := r.Group("/v1", auth.Bearer(resolver))

	att := v1.Group("/attendance")
	att.POST("/scan", h.scan)
	att.GET("/today", h.today)
	att.POST("/tokens", h.issueToken)
	att.GET("/mine", h.mine)

	admin := v1.Group("/admin/attendance", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/report", h.report)
	admin.POST("/sweep", h.sweep)
}

// RegisterOps mounts /healthz and /metrics. A nil checker is reported unhealthy.
func RegisterOps(r gin.IRouter, checks map[string]Checker) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{}
		status := http.StatusOK
		for name, chk := range checks {
			ok := chk != nil && chk.Healthy(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		if status == http.StatusOK {
			body["status"] = "ok"
		} else {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})
}
