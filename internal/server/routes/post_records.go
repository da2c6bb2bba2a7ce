package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type mergeRecordResponse struct {
	Message string              `json:"message"`
	Result  *common.MergeResult `json:"result,omitempty"`
}

// mergeRecord binds one record from the request body and merges it. The
// optional link_case_id query parameter anchors the record to a case.
func mergeRecord[T any](c echo.Context, merge func(context.Context, T, graph.MergeOptions) (common.MergeResult, error)) error {
	rec := new(T)
	if err := c.Bind(rec); err != nil {
		return c.JSON(http.StatusBadRequest, mergeRecordResponse{
			Message: "Invalid request body",
		})
	}

	opts := graph.MergeOptions{LinkCaseID: strings.TrimSpace(c.QueryParam("link_case_id"))}
	result, err := merge(c.Request().Context(), *rec, opts)
	if err != nil {
		logger.Error("[Merge] Failed to merge record", "err", err)
		return c.JSON(http.StatusInternalServerError, mergeRecordResponse{
			Message: "Internal server error",
		})
	}

	if result.Status == common.StatusSkipped {
		return c.JSON(http.StatusUnprocessableEntity, mergeRecordResponse{
			Message: "Record skipped",
			Result:  &result,
		})
	}
	return c.JSON(http.StatusOK, mergeRecordResponse{
		Message: "Record " + string(result.Status),
		Result:  &result,
	})
}

// PostCaseReportHandler merges an extracted case report.
func PostCaseReportHandler(c echo.Context) error {
	return mergeRecord(c, c.(*middleware.AppContext).App.Engine.MergeCaseReport)
}

// PostCallRecordHandler merges a single call-detail row.
func PostCallRecordHandler(c echo.Context) error {
	return mergeRecord(c, c.(*middleware.AppContext).App.Engine.MergeCallRecord)
}

// PostTransactionHandler merges a single bank statement row.
func PostTransactionHandler(c echo.Context) error {
	return mergeRecord(c, c.(*middleware.AppContext).App.Engine.MergeTransaction)
}

// PostPlateDetectionHandler merges an image text recognition result.
func PostPlateDetectionHandler(c echo.Context) error {
	return mergeRecord(c, c.(*middleware.AppContext).App.Engine.MergePlateDetection)
}
