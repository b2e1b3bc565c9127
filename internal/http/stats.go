package http

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/novasocial/nova-consistency/internal/repository"
)

func outboxStatsHandler(outboxRepo repository.OutboxRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, oldest, err := outboxRepo.PendingStats(c.Request().Context())
		if err != nil {
			log.Errorf("outbox stats failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"pending":                pending,
			"oldest_pending_seconds": int64(oldest / time.Second),
		})
	}
}

type replayReq struct {
	Since time.Time `json:"since"`
}

// replayHandler re-marks events created at or after "since" as unpublished.
// The relay will republish them; consumers dedupe via their idempotency guard.
func replayHandler(outboxRepo repository.OutboxRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req replayReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.Since.IsZero() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "since is required"})
		}

		n, err := outboxRepo.ReplaySince(c.Request().Context(), req.Since)
		if err != nil {
			log.Errorf("outbox replay failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"replayed": n,
			"since":    req.Since,
		})
	}
}
