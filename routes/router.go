package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cppla/photoblog/config"
	"github.com/cppla/photoblog/controllers"
	"github.com/cppla/photoblog/media"
	"github.com/cppla/photoblog/middleware"
	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
	"github.com/cppla/photoblog/web"
)

// SetupRouter wires routes, middlewares, and controllers. rdb may be nil.
func SetupRouter(cfg config.AppConfig, db *gorm.DB, rdb *redis.Client) (*gin.Engine, error) {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.ImageMaxUploadMB+1) << 20

	// HTTP access log goes to its own rolling file when configured
	gl := utils.Logger
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	store := media.NewStore(cfg.MediaRoot, cfg.MediaURL, cfg.ImageMaxUploadMB)
	tmpl, err := web.Templates(store.URL)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	blacklist := utils.NewTokenBlacklist(rdb)
	auth := middleware.NewAuthenticator(cfg.JWTSecret, blacklist)
	r.Use(auth.OptionalAuth())

	if cfg.ServeMedia {
		r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postService := services.NewPostService(db, store, services.SystemClock, cfg.DefaultAuthorID)
	userService := services.NewUserService(db)

	blogController := controllers.NewBlogController(postService)
	postAPIController := controllers.NewPostAPIController(postService)
	authController := controllers.NewAuthController(userService, blacklist, cfg.JWTSecret, !cfg.IsDebug())
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r.GET("/", blogController.PostList)
	r.GET("/post/:pk/", blogController.PostDetail)

	editor := r.Group("/post")
	editor.Use(middleware.LoginRequired())
	editor.GET("/new/", blogController.PostNew)
	editor.POST("/new/", blogController.PostNew)
	editor.GET("/:pk/edit/", blogController.PostEdit)
	editor.POST("/:pk/edit/", blogController.PostEdit)

	accounts := r.Group("/accounts")
	accounts.GET("/login/", authController.LoginPage)
	accounts.POST("/login/", loginLimiter.Middleware(), authController.LoginPage)
	accounts.POST("/logout/", authController.LogoutPage)

	api := r.Group("/api_root")

	posts := api.Group("/Post")
	posts.GET("/", postAPIController.List)
	posts.POST("/", postAPIController.Create)
	posts.GET("/:id/", postAPIController.Retrieve)
	posts.PUT("/:id/", postAPIController.Update)
	posts.PATCH("/:id/", postAPIController.PartialUpdate)
	posts.DELETE("/:id/", postAPIController.Destroy)

	authGroup := api.Group("/auth")
	authGroup.POST("/token/", loginLimiter.Middleware(), authController.Token)
	authGroup.POST("/logout/", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me/", middleware.AuthRequired(), authController.Me)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api_root/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "Not found.")
			return
		}
		controllers.NotFoundPage(ctx)
	})

	return r, nil
}
