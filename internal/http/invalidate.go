package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/novasocial/nova-consistency/internal/invalidation"
	"github.com/novasocial/nova-consistency/internal/model"
)

type invalidateReq struct {
	Action     string   `json:"action"` // "delete" | "pattern" | "batch"
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	Pattern    string   `json:"pattern"`
	EntityIDs  []string `json:"entity_ids"`
}

// invalidateHandler lets operators push an invalidation by hand, e.g. after a
// manual data fix. Publishing is fire-and-forget, so 202 means "broadcast
// attempted", not "every holder evicted".
func invalidateHandler(invalPub *invalidation.Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req invalidateReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.EntityType = strings.TrimSpace(req.EntityType)
		if req.EntityType == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "entity_type is required"})
		}

		action := model.InvalidationAction(strings.TrimSpace(req.Action))
		if req.Action == "" {
			action = model.InvalidateDelete
		}

		ctx := c.Request().Context()
		switch action {
		case model.InvalidateDelete:
			if req.EntityID == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "entity_id is required"})
			}
			invalPub.Invalidate(ctx, req.EntityType, req.EntityID)
		case model.InvalidatePattern:
			if req.Pattern == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "pattern is required"})
			}
			invalPub.InvalidatePattern(ctx, req.EntityType, req.Pattern)
		case model.InvalidateBatch:
			if len(req.EntityIDs) == 0 {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "entity_ids is required"})
			}
			invalPub.InvalidateBatch(ctx, req.EntityType, req.EntityIDs)
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid action"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"action":      action.String(),
			"entity_type": req.EntityType,
		})
	}
}
