// Package server assembles the gin engine from already constructed
// services.
package server

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	"github.com/yukikurage/file-hosting-api/internal/handlers"
	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/logging"
	"github.com/yukikurage/file-hosting-api/internal/metrics"
	"github.com/yukikurage/file-hosting-api/internal/middleware"
	"github.com/yukikurage/file-hosting-api/internal/services"
	"github.com/yukikurage/file-hosting-api/internal/storage"
)

// Deps are the collaborators the routes need. Metrics may be nil.
type Deps struct {
	Logger         *slog.Logger
	Provider       identity.Provider
	AuthService    *services.AuthService
	FileService    *services.FileService
	AdminService   *services.AdminService
	Store          storage.Store
	SessionStore   sessions.Store
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
}

// NewRouter builds the HTTP surface.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = constants.DefaultMaxUpload
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		logging.GinLogger(logger),
		deps.Metrics.Middleware(),
		sessions.Sessions(constants.SessionCookieName, deps.SessionStore),
	)

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	fileHandler := handlers.NewFileHandler(deps.FileService, deps.AuthService)
	adminHandler := handlers.NewAdminHandler(deps.AdminService)

	r.GET("/health", handlers.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	requireAuth := middleware.RequireAuth(deps.Provider)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
	}

	files := r.Group("/api/files")
	files.Use(requireAuth)
	{
		files.GET("", fileHandler.ListFiles)
		files.GET("/", fileHandler.ListFiles)
		files.POST("/upload", middleware.SingleFile(deps.Store, maxUpload), fileHandler.UploadFile)
		files.GET("/download/:id", fileHandler.DownloadFile)
		files.DELETE("/delete/:id", fileHandler.DeleteFile)
	}

	admin := r.Group("/admin")
	admin.Use(requireAuth, middleware.RequireAdmin(deps.AuthService))
	{
		admin.GET("", adminHandler.ListUsers)
		admin.GET("/", adminHandler.ListUsers)
		admin.POST("/create_user", adminHandler.CreateUser)
		admin.DELETE("/delete_user/:id", adminHandler.DeleteUser)
	}

	return r
}
