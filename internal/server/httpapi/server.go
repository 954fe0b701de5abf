// Package httpapi exposes the DocVault services over an HTTP JSON API.
// Protected routes expect "Authorization: Bearer <token>"; failures are
// reported as {"detail": "..."} bodies like the dashboards expect.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	documents *services.DocumentService
	app       *fiber.App
}

func NewServer(address string, l logging.Logger, us *services.UserService, ds *services.DocumentService) *Server {
	s := &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		users:     us,
		documents: ds,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// The dashboard is a browser app served from another origin.
	app.Use(cors.New())

	s.registerRoutes(app)
	s.app = app

	return s
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/", s.handleRoot)

	app.Post("/init-admin", s.handleInitAdmin)
	app.Post("/login", s.handleLogin)

	app.Post("/register", s.requireAdmin(s.handleRegister))
	app.Post("/reset-password", s.requireAdmin(s.handleResetPassword))

	app.Get("/me", s.requireUser(s.handleMe))
	app.Get("/users/list", s.requireAdmin(s.handleUsersList))
	app.Get("/users/count", s.requireAdmin(s.handleUsersCount))
	app.Get("/recent-activities", s.requireAdmin(s.handleRecentActivities))

	app.Post("/documents", s.requireUser(s.handleDocumentUpload))
	app.Get("/documents/count", s.requireAdmin(s.handleDocumentsCount))
	app.Get("/documents", s.requireUser(s.handleDocumentsList))
	app.Get("/documents/:id", s.requireUser(s.handleDocumentGet))
}

// App returns the underlying fiber application. Used by tests to drive
// requests without a listener.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		_ = s.app.ShutdownWithTimeout(shutdownTimeout)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return s.app.Listen(s.address)
}
