package routes

import (
	"net/http"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

func GetGraphStatsHandler(c echo.Context) error {
	type getGraphStatsResponse struct {
		Message string             `json:"message"`
		Stats   *common.GraphStats `json:"stats,omitempty"`
	}

	engine := c.(*middleware.AppContext).App.Engine
	stats, err := engine.Stats(c.Request().Context())
	if err != nil {
		logger.Error("[Store] Failed to read graph stats", "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphStatsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getGraphStatsResponse{
		Message: "Graph stats",
		Stats:   &stats,
	})
}

// GetCallLogHandler lists every merged call.
func GetCallLogHandler(c echo.Context) error {
	type getCallLogResponse struct {
		Message string                `json:"message"`
		Calls   []common.CallLogEntry `json:"calls"`
	}

	engine := c.(*middleware.AppContext).App.Engine
	calls, err := engine.CallLog(c.Request().Context())
	if err != nil {
		logger.Error("[Store] Failed to read call log", "err", err)
		return c.JSON(http.StatusInternalServerError, getCallLogResponse{
			Message: "Internal server error",
		})
	}
	if calls == nil {
		calls = []common.CallLogEntry{}
	}

	return c.JSON(http.StatusOK, getCallLogResponse{
		Message: "Call log",
		Calls:   calls,
	})
}
