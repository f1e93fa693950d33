package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Grievances     *handlers.GrievanceHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware fiber.Handler
	LoginLimiter   fiber.Handler
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/Auth")
	if cfg.LoginLimiter != nil {
		authGroup.Post("/Login", cfg.LoginLimiter, cfg.Auth.Login)
	} else {
		authGroup.Post("/Login", cfg.Auth.Login)
	}
	authGroup.Post("/SwitchUnit", cfg.AuthMiddleware, auth.RequireEmployee(), cfg.Auth.SwitchUnit)

	grievance := app.Group("/Grievance")
	grievance.Get("/VerifyResolution", cfg.Grievances.VerifyResolution)

	protected := grievance.Group("", cfg.AuthMiddleware, auth.RequireEmployee())
	protected.Post("/AddUpdateGrievance", cfg.Grievances.AddUpdateGrievance)
	protected.Get("/GetGrievance", cfg.Grievances.GetGrievance)
	protected.Get("/GrievanceHistory", cfg.Grievances.GrievanceHistory)
	protected.Get("/Trajectory", cfg.Grievances.Trajectory)
	protected.Get("/AllowedActions", cfg.Grievances.AllowedActions)
	protected.Get("/MyGrievances", cfg.Grievances.MyGrievances)
	protected.Get("/AssignedGrievances", cfg.Grievances.AssignedGrievances)

	admin := app.Group("/Admin", cfg.AuthMiddleware, auth.RequireEmployee())
	admin.Get("/GetGroupDetail", cfg.Admin.GetGroupDetail)
	admin.Get("/GetOrgChart", cfg.Admin.GetOrgChart)
	admin.Get("/GetUnits", cfg.Admin.GetUnits)
	admin.Get("/GetEmployees", cfg.Admin.GetEmployees)

	adminOnly := admin.Group("", auth.RequireAdmin())
	adminOnly.Post("/AddUpdateGroup", cfg.Admin.AddUpdateGroup)
	adminOnly.Post("/MapUser", cfg.Admin.MapUser)
	adminOnly.Post("/UnmapUser", cfg.Admin.UnmapUser)
	adminOnly.Post("/AddEmployee", cfg.Admin.AddEmployee)
}
