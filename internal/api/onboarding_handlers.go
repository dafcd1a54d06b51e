package api

import (
	"github.com/gin-gonic/gin"
)

type OnboardingRequest struct {
	Completed bool `json:"completed"`
}

func GetOnboarding(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		done, err := app.Store().Onboarded(c.Request.Context())
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to read onboarding flag")
			return
		}
		HandleSuccess(c, gin.H{"completed": done}, nil)
	}
}

func PutOnboarding(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body OnboardingRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBadRequest(c, app.Logger(), err, "Invalid JSON")
			return
		}
		if err := app.Store().SetOnboarded(c.Request.Context(), body.Completed); err != nil {
			HandleError(c, app.Logger(), err, "Failed to save onboarding flag")
			return
		}
		HandleSuccess(c, gin.H{"completed": body.Completed}, nil)
	}
}
