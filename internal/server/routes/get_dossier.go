package routes

import (
	"errors"
	"net/http"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/dossier"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetDossierHandler returns the profile of one entity.
func GetDossierHandler(c echo.Context) error {
	type getDossierData struct {
		Type string `param:"type" validate:"required"`
		ID   string `param:"id" validate:"required"`
	}

	type getDossierResponse struct {
		Message string          `json:"message"`
		Dossier *common.Dossier `json:"dossier,omitempty"`
	}

	data := new(getDossierData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getDossierResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getDossierResponse{
			Message: "Invalid request params",
		})
	}

	service := c.(*middleware.AppContext).App.Dossier
	d, err := service.Get(c.Request().Context(), data.Type, data.ID)
	switch {
	case errors.Is(err, dossier.ErrUnknownEntityType):
		return c.JSON(http.StatusBadRequest, getDossierResponse{
			Message: "Unknown entity type",
		})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, getDossierResponse{
			Message: "Entity not found",
		})
	case err != nil:
		logger.Error("[Store] Failed to build dossier", "type", data.Type, "id", data.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getDossierResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDossierResponse{
		Message: "Dossier found",
		Dossier: &d,
	})
}
