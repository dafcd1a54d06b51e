package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourname/fastingtracker/internal"
)

func GetSnapshot(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, err := internal.ParsePeriod(c.DefaultQuery("period", string(internal.PeriodWeek)))
		if err != nil {
			HandleBadRequest(c, app.Logger(), err, "Invalid 'period'")
			return
		}

		ref := time.Now()
		if raw := c.Query("reference_date"); raw != "" {
			ref, err = parseTimeParam(raw, app.Location())
			if err != nil {
				HandleBadRequest(c, app.Logger(), err, "Invalid 'reference_date'")
				return
			}
		}

		snap, err := app.Analytics().Snapshot(c.Request.Context(), period, ref)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to compute snapshot")
			return
		}
		HandleSuccess(c, snap, nil)
	}
}

// VerifyStreaks recomputes the streak counters from raw history and reports
// them next to the incrementally maintained profile values. Both views come
// from a single store transaction.
func VerifyStreaks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, longest, prof, err := app.Analytics().VerifyStreaks(c.Request.Context())
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to verify streaks")
			return
		}
		HandleSuccess(c, gin.H{
			"recomputed_current": current,
			"recomputed_longest": longest,
			"profile_current":    prof.CurrentStreak,
			"profile_longest":    prof.LongestStreak,
		}, map[string]any{
			"consistent": current == prof.CurrentStreak && longest == prof.LongestStreak,
		})
	}
}
