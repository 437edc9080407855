package internal

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	apphttp "proplens/internal/http"
	"proplens/internal/http/middleware"
)

// apiCORSConfig is the CORS configuration shared by the API routes.
// Dashboards embed the API from arbitrary origins, so it stays permissive.
var apiCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountRoutes wires all endpoints onto the fiber app.
func MountRoutes(app *fiber.App, db *gorm.DB, handler *apphttp.EventDataHandler, appState *Application) {
	app.Get("/_health", apphttp.Health(appState.healthCheck))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", cors.New(apiCORSConfig))
	api.Use(middleware.Authenticate(db, appState.Logger))

	site := api.Group("/websites/:websiteId", middleware.RequireWebsiteAccess(db, appState.Logger))
	site.Get("/event-data/properties", handler.ListProperties)
	site.Get("/event-data/values", handler.ListValues)
	site.Get("/event-data/details", handler.PivotDetails)
}
