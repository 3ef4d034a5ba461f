package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/http/handlers"
	"github.com/spec-kit/hr-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	AdminUsers  *handlers.AdminUsersHandler
	Employee    *handlers.EmployeeHandler
	Departments *handlers.DepartmentsHandler
	// Metrics serves the Prometheus exposition when set.
	Metrics fiber.Handler
	// MediaRoot and MediaPrefix serve uploaded avatars when MediaRoot is set.
	MediaRoot   string
	MediaPrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}
	if cfg.MediaRoot != "" {
		app.Static(cfg.MediaPrefix, cfg.MediaRoot, fiber.Static{Browse: false})
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Get("/csrf/", cfg.Auth.CSRF)
	authGroup.Post("/register/", cfg.Auth.Register)
	authGroup.Post("/login/", cfg.Auth.Login)
	authGroup.Get("/whoami/", cfg.Auth.WhoAmI)
	authGroup.Post("/logout/", auth.RequireAuthenticated(), cfg.Auth.Logout)
	authGroup.Post("/password/change/", auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	admin := api.Group("/admin/users", auth.RequireAdmin())
	admin.Get("/", cfg.AdminUsers.List)
	admin.Post("/bulk-delete/", cfg.AdminUsers.BulkDelete)
	admin.Get("/:id/", cfg.AdminUsers.Get)
	admin.Patch("/:id/", cfg.AdminUsers.Update)
	admin.Delete("/:id/", cfg.AdminUsers.Delete)
	admin.Delete("/:id/delete/", cfg.AdminUsers.Delete)

	employee := api.Group("/employee", auth.RequireEmployeeOrAbove())
	employee.Get("/profile/", cfg.Employee.Profile)
	employee.Patch("/profile/", cfg.Employee.UpdateProfile)

	api.Get("/dashboard/employee/", auth.RequireAuthenticated(), cfg.Employee.Dashboard)

	departments := api.Group("/departments", auth.RequireAuthenticated())
	departments.Get("/", cfg.Departments.List)
	departments.Post("/", auth.RequireAdmin(), cfg.Departments.Create)
	departments.Patch("/:id/", auth.RequireAdmin(), cfg.Departments.Update)
	departments.Delete("/:id/", auth.RequireAdmin(), cfg.Departments.Delete)
}
