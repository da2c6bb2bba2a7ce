package routes

import (
	"net/http"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ResetGraphHandler wipes the whole graph.
func ResetGraphHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	user := c.(*middleware.AppContext).User

	if err := app.Engine.Reset(c.Request().Context()); err != nil {
		logger.Error("[Merge] Failed to reset graph", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	if user != nil {
		logger.Warn("[Merge] Graph reset by user", "user_id", user.UserID)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Graph reset"})
}
