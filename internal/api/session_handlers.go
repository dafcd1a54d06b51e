package api

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// --- Request structs ---

type StartFastRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

type CompleteFastRequest struct {
	// CompletedAt defaults to now when omitted.
	CompletedAt *time.Time `json:"completed_at"`
}

// --- Handlers ---

func StartFast(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body StartFastRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBadRequest(c, app.Logger(), err, "Invalid JSON")
			return
		}
		if err := validate.Struct(&body); err != nil {
			HandleBadRequest(c, app.Logger(), err, "Validation failed")
			return
		}

		sess, err := app.Lifecycle().StartFast(c.Request.Context(), body.PlanID, time.Now())
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to start fast")
			return
		}
		HandleCreated(c, sess, nil)
	}
}

func GetActiveFast(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, plannedEnd, err := app.Lifecycle().ActiveFast(c.Request.Context())
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to read active fast")
			return
		}
		if sess == nil {
			HandleSuccess(c, nil, map[string]any{"active": false})
			return
		}
		meta := map[string]any{"active": true}
		if plannedEnd != nil {
			meta["planned_end"] = plannedEnd
		}
		HandleSuccess(c, sess, meta)
	}
}

func CompleteFast(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		// An empty body means "complete now"; io.EOF is the decoder's way of
		// saying no body was sent (chunked requests report no length, so a
		// ContentLength check would drop their payload).
		var body CompleteFastRequest
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			HandleBadRequest(c, app.Logger(), err, "Invalid JSON")
			return
		}
		at := time.Now()
		if body.CompletedAt != nil {
			at = *body.CompletedAt
		}

		sess, prof, err := app.Lifecycle().CompleteFast(c.Request.Context(), at)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to complete fast")
			return
		}
		HandleSuccess(c, gin.H{"session": sess, "profile": prof}, nil)
	}
}

func CancelFast(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Lifecycle().CancelFast(c.Request.Context(), time.Now()); err != nil {
			HandleError(c, app.Logger(), err, "Failed to cancel fast")
			return
		}
		HandleSuccess(c, nil, map[string]any{"cancelled": true})
	}
}

func ListFasts(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var since *time.Time
		if raw := c.Query("since"); raw != "" {
			parsed, err := parseTimeParam(raw, app.Location())
			if err != nil {
				HandleBadRequest(c, app.Logger(), err, "Invalid 'since'")
				return
			}
			since = &parsed
		}

		sessions, err := app.Store().ListCompleted(c.Request.Context(), since)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to list fasts")
			return
		}
		HandleSuccess(c, sessions, map[string]any{"count": len(sessions)})
	}
}

func GetProfile(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		prof, err := app.Store().Profile(c.Request.Context())
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to load profile")
			return
		}
		HandleSuccess(c, prof, nil)
	}
}

// parseTimeParam accepts RFC3339 or a bare date interpreted in the
// configured zone.
func parseTimeParam(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
