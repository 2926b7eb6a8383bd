package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/config"
	"github.com/nestboard/nestboard/controllers"
	"github.com/nestboard/nestboard/directory"
	"github.com/nestboard/nestboard/files"
	"github.com/nestboard/nestboard/middleware"
	"github.com/nestboard/nestboard/services"
	"github.com/nestboard/nestboard/utils"
)

// Deps carries the constructed collaborators the router wires into
// controllers.
type Deps struct {
	DB        *gorm.DB
	Posts     *services.PostService
	Replies   *services.ReplyService
	Directory *directory.Directory
	Files     *files.Store
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// file-based access log via zap instead of the default console logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(deps.DB)
	postController := controllers.NewPostController(deps.Posts, deps.Directory, deps.Files)
	replyController := controllers.NewReplyController(deps.Replies, deps.Directory, deps.Files)
	statsController := controllers.NewStatsController(deps.DB)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(), authController.Register)
		auth.POST("/login", middleware.RateLimit(), authController.Login)
		auth.POST("/logout", middleware.AuthRequired(), authController.Logout)
		auth.GET("/me", middleware.AuthRequired(), authController.Me)
		auth.GET("/oauth/github", authController.OAuthRedirect)
		auth.GET("/oauth/github/callback", authController.OAuthCallback)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", middleware.OptionalAuth(), postController.ListPosts)
		posts.GET("/mine", middleware.AuthRequired(), postController.OwnPosts)
		posts.GET("/:id", middleware.OptionalAuth(), postController.GetPost)
		posts.POST("", middleware.AuthRequired(), middleware.RateLimit(), postController.CreatePost)
		posts.PUT("/:id", middleware.AuthRequired(), postController.UpdatePost)
		posts.PATCH("/:id/status", middleware.AuthRequired(), postController.UpdateStatus)
		posts.PATCH("/:id/replies-enabled", middleware.AuthRequired(), postController.SetRepliesEnabled)
		posts.DELETE("/:id", middleware.AuthRequired(), postController.DeletePost)

		posts.GET("/:id/replies", middleware.OptionalAuth(), replyController.ListTopLevel)
		posts.GET("/:id/replies/tree", middleware.OptionalAuth(), replyController.Tree)
		posts.GET("/:id/replies/:replyId/children", middleware.OptionalAuth(), replyController.ListChildren)
		posts.POST("/:id/replies", middleware.AuthRequired(), middleware.RateLimit(), replyController.CreateReply)
		posts.DELETE("/:id/replies/by-path", middleware.AuthRequired(), replyController.DeleteByPath)
		posts.DELETE("/:id/replies/:replyId", middleware.AuthRequired(), replyController.DeleteReply)
		posts.POST("/:id/replies/reconcile", middleware.AuthRequired(), middleware.AdminRequired(), replyController.Reconcile)
	}

	api.POST("/uploads", middleware.AuthRequired(), middleware.RateLimit(), postController.Upload)
	api.GET("/stats", statsController.Overview)

	return r
}
