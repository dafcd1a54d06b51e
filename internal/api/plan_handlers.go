package api

import (
	"github.com/gin-gonic/gin"
)

func ListPlans(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := c.Query("tag")
		difficulty := c.Query("difficulty")
		query := c.Query("q")

		plans := app.Catalog().Filter(tag, difficulty, query)
		HandleSuccess(c, plans, map[string]any{"count": len(plans)})
	}
}

func GetPlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := app.Catalog().Find(c.Param("id"))
		if err != nil {
			HandleError(c, app.Logger(), err, "Unknown plan")
			return
		}
		HandleSuccess(c, p, nil)
	}
}
