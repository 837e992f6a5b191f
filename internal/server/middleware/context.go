package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/pkg/ai"
	"github.com/turkwise/graphmem/pkg/graph"
	"github.com/turkwise/graphmem/pkg/store"
	"github.com/turkwise/graphmem/pkg/tenant"
)

// App bundles the shared service dependencies. It is built once at startup
// and attached to every request through AppContextMiddleware.
type App struct {
	DBConn   *pgxpool.Pool
	Store    store.GraphStorage
	AiClient ai.GraphAIClient
	Graph    *graph.GraphClient
	Resolver *tenant.Resolver

	// StoreAddr is the backing store's address with credentials stripped,
	// for the health endpoint.
	StoreAddr string

	APIKey string
	Key    *keyfunc.Keyfunc
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
