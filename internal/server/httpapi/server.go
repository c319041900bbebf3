// Package httpapi exposes the document service over HTTP. It translates
// requests into service calls and service errors into status codes; no
// business rules live here.
package httpapi

import (
	"context"
	"database/sql"

	"docvault/internal/logging"
	"docvault/internal/server/config"
	"docvault/internal/server/models"
	"docvault/internal/server/services"

	"github.com/gofiber/fiber/v2"
)

// Users is the account surface consumed by the handlers.
type Users interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, token string) (*services.TokenPair, error)
	Logout(ctx context.Context, token string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Documents is the lifecycle surface consumed by the handlers.
type Documents interface {
	Create(ctx context.Context, ownerID string, in services.CreateDocumentInput) (*models.Document, *models.Version, error)
	Get(ctx context.Context, documentID, actorID string) (*models.Document, []string, error)
	UpdateMetadata(ctx context.Context, documentID, actorID string, in services.UpdateDocumentInput) (*models.Document, error)
	UploadNewVersion(ctx context.Context, documentID, actorID string, in services.UploadVersionInput) (*models.Version, error)
	SoftDelete(ctx context.Context, documentID, actorID string) error
	GetDownloadTarget(ctx context.Context, documentID, actorID string) (*services.DownloadTarget, error)
	GetVersionDownloadTarget(ctx context.Context, documentID, versionID, actorID string) (*services.DownloadTarget, error)
	ListVersions(ctx context.Context, documentID, actorID string) ([]*models.Version, error)
	List(ctx context.Context, actorID string, in services.ListDocumentsInput) (*services.DocumentPage, error)
}

// Permissions is the sharing surface consumed by the handlers.
type Permissions interface {
	Grant(ctx context.Context, documentID, grantorID, targetUserID string, role models.Role) (*models.Permission, error)
	UpdateRole(ctx context.Context, documentID, actorID, targetUserID string, newRole models.Role) error
	Revoke(ctx context.Context, documentID, actorID, targetUserID string) error
	List(ctx context.Context, documentID, actorID string) ([]*services.PermissionEntry, error)
}

// Activity is the audit surface consumed by the handlers.
type Activity interface {
	ListForDocument(ctx context.Context, documentID, actorID string) ([]*models.ActivityLogEntry, error)
}

// Server holds the wired services and builds the Fiber application.
type Server struct {
	users       Users
	documents   Documents
	permissions Permissions
	activity    Activity
	db          *sql.DB
	config      *config.Config
	logger      logging.Logger
}

func NewServer(users Users, documents Documents, permissions Permissions, activity Activity,
	db *sql.DB, cfg *config.Config, logger logging.Logger) *Server {
	return &Server{
		users:       users,
		documents:   documents,
		permissions: permissions,
		activity:    activity,
		db:          db,
		config:      cfg,
		logger:      logger.With("component", "http"),
	}
}

// App assembles the Fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		// Multipart framing adds overhead on top of the payload cap.
		BodyLimit:    int(s.config.MaxUploadSize) + 1<<20,
		ErrorHandler: s.errorHandler,
	})

	app.Get("/health", s.handleHealth)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", s.handleRegister)
	authGroup.Post("/login", s.handleLogin)
	authGroup.Post("/refresh", s.handleRefresh)
	authGroup.Post("/logout", s.handleLogout)
	authGroup.Get("/me", s.requireAuth, s.handleMe)

	docs := api.Group("/documents", s.requireAuth)
	docs.Post("/", s.handleCreateDocument)
	docs.Get("/", s.handleListDocuments)
	docs.Get("/:id", s.handleGetDocument)
	docs.Patch("/:id", s.handleUpdateDocument)
	docs.Delete("/:id", s.handleDeleteDocument)
	docs.Get("/:id/download", s.handleDownload)
	docs.Post("/:id/versions", s.handleUploadVersion)
	docs.Get("/:id/versions", s.handleListVersions)
	docs.Get("/:id/versions/:versionID/download", s.handleDownloadVersion)
	docs.Get("/:id/activity", s.handleListActivity)
	docs.Post("/:id/permissions", s.handleGrantPermission)
	docs.Get("/:id/permissions", s.handleListPermissions)
	docs.Put("/:id/permissions/:userID", s.handleUpdatePermission)
	docs.Delete("/:id/permissions/:userID", s.handleRevokePermission)

	return app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.db.PingContext(c.UserContext()); err != nil {
		s.logger.Error(c.UserContext(), "health check db ping failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
