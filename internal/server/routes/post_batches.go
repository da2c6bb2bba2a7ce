package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/intellicase/backend/internal/queue"
	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/internal/storage"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxBatchBytes = 64 << 20

type postBatchResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Records       int    `json:"records,omitempty"`
}

// batchFileName picks the decoder for an upload from its content type.
func batchFileName(contentType string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return "upload.yaml"
	}
	return "upload.json"
}

// PostBatchHandler stores a JSON or YAML record batch and queues it for the
// worker. The batch is validated before it is accepted.
func PostBatchHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.Batches == nil || app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, postBatchResponse{
			Message: "Batch ingestion is not configured",
		})
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBatchBytes+1))
	if err != nil || len(data) > maxBatchBytes {
		return c.JSON(http.StatusBadRequest, postBatchResponse{
			Message: "Invalid request body",
		})
	}

	name := batchFileName(c.Request().Header.Get(echo.HeaderContentType))
	batch, err := common.DecodeRecordBatch(data, name)
	if err != nil || batch.Len() == 0 {
		return c.JSON(http.StatusBadRequest, postBatchResponse{
			Message: "Invalid record batch",
		})
	}

	ctx := c.Request().Context()
	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, postBatchResponse{
			Message: "Internal server error",
		})
	}
	key := storage.BatchKey(correlationID, name)
	if err := app.Batches.Put(ctx, key, bytes.NewReader(data)); err != nil {
		logger.Error("[Queue] Failed to store batch", "batch_key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, postBatchResponse{
			Message: "Internal server error",
		})
	}

	msg, err := json.Marshal(queue.IngestBatchMsg{
		Message:       "Ingest record batch",
		CorrelationID: correlationID,
		BatchKey:      key,
		LinkCaseID:    strings.TrimSpace(c.QueryParam("link_case_id")),
		SubmittedAt:   time.Now().UTC(),
	})
	if err == nil {
		err = queue.PublishFIFO(app.Queue, queue.IngestQueue, msg)
	}
	if err != nil {
		logger.Error("[Queue] Failed to enqueue batch", "batch_key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, postBatchResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, postBatchResponse{
		Message:       "Batch queued",
		CorrelationID: correlationID,
		Records:       batch.Len(),
	})
}
