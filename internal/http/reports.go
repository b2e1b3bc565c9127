package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/novasocial/nova-consistency/internal/repository"
)

func listEventsHandler(archiveRepo repository.ArchiveRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		aggregateType := strings.TrimSpace(c.QueryParam("aggregate_type"))
		if aggregateType == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "aggregate_type is required"})
		}
		aggregateID := strings.TrimSpace(c.QueryParam("aggregate_id"))

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		events, err := archiveRepo.ListByAggregate(
			c.Request().Context(),
			aggregateType,
			aggregateID,
			limit,
			offset,
		)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(events),
			"results": events,
		})
	}
}
