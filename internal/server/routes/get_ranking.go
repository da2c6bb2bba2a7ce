package routes

import (
	"net/http"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetRankingHandler returns the top suspects, optionally scoped to the
// cluster around case_id.
func GetRankingHandler(c echo.Context) error {
	type getRankingData struct {
		CaseID string `query:"case_id"`
	}

	type getRankingResponse struct {
		Message string               `json:"message"`
		Ranking []common.SuspectRank `json:"ranking"`
	}

	data := new(getRankingData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getRankingResponse{
			Message: "Invalid request params",
		})
	}

	ranker := c.(*middleware.AppContext).App.Ranker
	ranks, err := ranker.Rank(c.Request().Context(), data.CaseID)
	if err != nil {
		logger.Error("[Ranking] Failed to rank suspects", "case_id", data.CaseID, "err", err)
		return c.JSON(http.StatusInternalServerError, getRankingResponse{
			Message: "Internal server error",
		})
	}
	if ranks == nil {
		ranks = []common.SuspectRank{}
	}

	return c.JSON(http.StatusOK, getRankingResponse{
		Message: "Ranking computed",
		Ranking: ranks,
	})
}
