package httpEngine

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vision-server/internal/ai"
	"vision-server/internal/auth"
	"vision-server/internal/controllers"
	"vision-server/internal/logics"
	"vision-server/internal/middlewares"
	"vision-server/internal/repositories"
	"vision-server/internal/storage"
)

// Dependencies are the externally constructed resources the routes need.
type Dependencies struct {
	Repos    *repositories.Repositories
	Files    storage.Store
	Detector *ai.Client
	Tokens   *auth.Manager
}

// registerRoutes wires services, controllers and the route table.
func (s *Server) registerRoutes() {
	log := s.log

	userService := logics.NewUserService(s.deps.Repos.Users, s.deps.Repos.Detections, s.deps.Files, log)
	detectionService := logics.NewDetectionService(s.deps.Repos.Detections, s.deps.Repos.Users, s.deps.Files, s.deps.Detector, log)

	authController := controllers.NewAuthController(userService, s.deps.Tokens)
	userController := controllers.NewUserController(userService)
	detectionController := controllers.NewDetectionController(detectionService)
	adminController := controllers.NewAdminController(userService, detectionService)

	// Health check, no auth.
	s.e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": s.cfg.Service.Name,
			"version": s.cfg.Service.Version,
		})
	})

	authenticated := middlewares.Auth(s.deps.Tokens, s.deps.Repos.Users)

	authGroup := s.e.Group("/api/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", authController.Me, authenticated)

	userGroup := s.e.Group("/api/user", authenticated)
	userGroup.GET("/profile", userController.Profile)
	userGroup.PUT("/profile", userController.UpdateProfile)
	userGroup.PUT("/change-password", userController.ChangePassword)
	userGroup.DELETE("/account", userController.DeleteAccount)
	userGroup.GET("/dashboard", detectionController.Dashboard)

	detectionGroup := s.e.Group("/api/detection", authenticated)
	detectionGroup.POST("/upload", detectionController.Upload)
	detectionGroup.POST("/realtime", detectionController.Realtime)
	detectionGroup.GET("/history", detectionController.History)
	detectionGroup.GET("/stats/summary", detectionController.StatsSummary)
	detectionGroup.GET("/:id", detectionController.Get)
	detectionGroup.DELETE("/:id", detectionController.Delete)

	adminGroup := s.e.Group("/api/admin", authenticated, middlewares.AdminOnly)
	adminGroup.GET("/users", adminController.ListUsers)
	adminGroup.GET("/users/:id", adminController.GetUser)
	adminGroup.PUT("/users/:id", adminController.UpdateUser)
	adminGroup.DELETE("/users/:id", adminController.DeleteUser)
	adminGroup.GET("/detections", adminController.ListDetections)
	adminGroup.GET("/detections/:id", adminController.GetDetection)
	adminGroup.DELETE("/detections/:id", adminController.DeleteDetection)
	adminGroup.GET("/stats", adminController.Stats)

	log.Info("routes registered", zap.Int("count", len(s.e.Routes())))
}
