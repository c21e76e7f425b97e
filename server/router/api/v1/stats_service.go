package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studypace/studypace/server/internal/observability"
	"github.com/studypace/studypace/server/stats"
)

// statsResponse combines instance study activity with request counters.
type statsResponse struct {
	Study    stats.Stats             `json:"study"`
	Requests *observability.Snapshot `json:"requests"`
}

// GetStats returns the latest study-stats snapshot and request metrics.
func (s *APIV1Service) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, &statsResponse{
		Study:    s.Collector.GetStats(),
		Requests: s.metrics.GetSnapshot(),
	})
}
