package http

import (
	"encoding/json"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/novasocial/nova-consistency/internal/service/snapshot"
)

type recordEventReq struct {
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

func recordEventHandler(snapSvc *snapshot.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req recordEventReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.AggregateType = strings.TrimSpace(req.AggregateType)
		req.AggregateID = strings.TrimSpace(req.AggregateID)
		req.EventType = strings.TrimSpace(req.EventType)

		if req.AggregateType == "" || req.AggregateID == "" || req.EventType == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if len(req.Payload) == 0 || !json.Valid(req.Payload) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "payload must be valid JSON"})
		}

		eventID, err := snapSvc.Record(
			c.Request().Context(),
			req.AggregateType,
			req.AggregateID,
			req.EventType,
			req.Payload,
		)
		if err != nil {
			log.Errorf("record event failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"event_id":       eventID,
			"aggregate_type": req.AggregateType,
			"aggregate_id":   req.AggregateID,
			"event_type":     req.EventType,
		})
	}
}

func getAggregateHandler(snapSvc *snapshot.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		aggregateType := strings.TrimSpace(c.Param("type"))
		aggregateID := strings.TrimSpace(c.Param("id"))
		if aggregateType == "" || aggregateID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		snap, err := snapSvc.Get(c.Request().Context(), aggregateType, aggregateID)
		if err != nil {
			log.Errorf("get aggregate failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if snap == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"aggregate_type": snap.AggregateType,
			"aggregate_id":   snap.AggregateID,
			"version":        snap.Version,
			"data":           json.RawMessage(snap.Data),
			"updated_at":     snap.UpdatedAt,
		})
	}
}
