package routes

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/config"
	"goblog/controllers"
	"goblog/middleware"
	"goblog/utils"
)

// SetupRouter wires routes, middlewares, templates, and controllers.
// tmplDir points at the HTML template directory (normally "templates").
func SetupRouter(db *gorm.DB, tmplDir string) *gin.Engine {
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

	// File-based zap access log instead of Gin's default console logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Identity is resolved on every request; handlers see it via CurrentUser.
	r.Use(middleware.ResolveIdentity(db))
	r.Use(middleware.PageViewRecorder(db))

	r.LoadHTMLGlob(filepath.Join(tmplDir, "*.html"))
	r.Static("/static", "./static")

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	pageController := controllers.NewPageController(db)

	r.GET("/", postController.Index)
	r.GET("/post/:id", postController.Show)
	r.POST("/post/:id", postController.AddComment)
	r.GET("/about", pageController.About)
	r.GET("/contact", pageController.Contact)
	r.GET("/stats", pageController.Stats)

	r.GET("/register", authController.ShowRegister)
	r.GET("/login", authController.ShowLogin)
	r.GET("/logout", authController.Logout)

	// Credential-handling POSTs are rate limited per IP.
	creds := r.Group("/")
	creds.Use(middleware.RateLimit())
	creds.POST("/register", authController.Register)
	creds.POST("/login", authController.Login)

	// Post authoring is restricted to the administrator (the first account).
	admin := r.Group("/")
	admin.Use(middleware.AdminOnly())
	admin.GET("/new-post", postController.New)
	admin.POST("/new-post", postController.Create)
	admin.GET("/edit-post/:id", postController.Edit)
	admin.POST("/edit-post/:id", postController.Update)
	admin.GET("/delete/:id", postController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.HTML(404, "404.html", gin.H{})
	})

	return r
}
