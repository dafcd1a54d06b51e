package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the engine's API under /api. authMW guards every
// route; the caller decides whether the token check is enabled.
func RegisterRoutes(r *gin.Engine, app App, authMW gin.HandlerFunc) {
	g := r.Group("/api", authMW)

	g.POST("/fasts", StartFast(app))
	g.GET("/fasts", ListFasts(app))
	g.GET("/fasts/active", GetActiveFast(app))
	g.POST("/fasts/active/complete", CompleteFast(app))
	g.DELETE("/fasts/active", CancelFast(app))

	g.GET("/profile", GetProfile(app))

	g.GET("/analytics/snapshot", GetSnapshot(app))
	g.GET("/analytics/streaks/verify", VerifyStreaks(app))

	g.GET("/plans", ListPlans(app))
	g.GET("/plans/:id", GetPlan(app))

	g.GET("/onboarding", GetOnboarding(app))
	g.PUT("/onboarding", PutOnboarding(app))
}
