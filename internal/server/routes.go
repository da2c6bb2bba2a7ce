package server

import (
	"github.com/intellicase/backend/internal/server/middleware"
	"github.com/intellicase/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Record ingestion routes
	ingest := middleware.RequirePermission(middleware.PermRecordsIngest)
	apiRoutes.POST("/records/case-reports", routes.PostCaseReportHandler, ingest)
	apiRoutes.POST("/records/calls", routes.PostCallRecordHandler, ingest)
	apiRoutes.POST("/records/transactions", routes.PostTransactionHandler, ingest)
	apiRoutes.POST("/records/plates", routes.PostPlateDetectionHandler, ingest)
	apiRoutes.POST("/batches", routes.PostBatchHandler, ingest)

	// Query routes
	apiRoutes.GET("/ranking", routes.GetRankingHandler)
	apiRoutes.GET("/dossier/:type/:id", routes.GetDossierHandler)
	apiRoutes.GET("/graph/stats", routes.GetGraphStatsHandler)
	apiRoutes.GET("/calls", routes.GetCallLogHandler)

	// Administrative routes
	apiRoutes.PATCH("/cases/:id/archive", routes.ArchiveCaseHandler, middleware.RequirePermission(middleware.PermCaseArchive))
	apiRoutes.DELETE("/graph", routes.ResetGraphHandler, middleware.RequirePermission(middleware.PermGraphReset))
}
