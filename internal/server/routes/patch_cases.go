package routes

import (
	"errors"
	"net/http"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// ArchiveCaseHandler marks a case as archived.
func ArchiveCaseHandler(c echo.Context) error {
	type archiveCaseData struct {
		CaseID string `param:"id" validate:"required"`
	}

	type archiveCaseResponse struct {
		Message string `json:"message"`
		CaseID  string `json:"case_id,omitempty"`
	}

	data := new(archiveCaseData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, archiveCaseResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, archiveCaseResponse{
			Message: "Invalid request params",
		})
	}

	engine := c.(*middleware.AppContext).App.Engine
	err := engine.ArchiveCase(c.Request().Context(), data.CaseID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, archiveCaseResponse{
			Message: "Case not found",
		})
	}
	if err != nil {
		logger.Error("[Merge] Failed to archive case", "case_id", data.CaseID, "err", err)
		return c.JSON(http.StatusInternalServerError, archiveCaseResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, archiveCaseResponse{
		Message: "Case archived",
		CaseID:  data.CaseID,
	})
}
