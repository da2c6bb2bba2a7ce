package middleware

import (
	"github.com/intellicase/backend/internal/storage"
	"github.com/intellicase/backend/pkg/dossier"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/ranking"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// App holds the shared services handed to every request. Queue and Batches
// may be nil, in which case batch uploads are unavailable.
type App struct {
	Engine         *graph.MergeEngine
	Ranker         *ranking.Ranker
	Dossier        *dossier.Service
	Queue          *amqp091.Channel
	Batches        *storage.BatchStore
	Key            *keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
