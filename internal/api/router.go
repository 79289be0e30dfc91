// Package api 组装 gin 路由与中间件
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/postfeed/config"
	_ "github.com/d60-Lab/postfeed/docs"
	"github.com/d60-Lab/postfeed/internal/api/handler"
	"github.com/d60-Lab/postfeed/internal/api/middleware"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/jwtauth"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h *handler.Handler, tokens *jwtauth.Manager, users repository.UserRepository) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	// Logger 在最外层，panic 请求也有访问日志
	r.Use(middleware.Logger(), middleware.Recovery(), middleware.ReportErrors())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(cors.Default())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/swagger"})))
	r.Use(middleware.Authenticate(tokens, users))

	r.NoRoute(h.NotFound)

	r.GET("/health", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 匿名可读
	r.GET("/", h.Index)
	r.GET("/group/:slug", h.GroupPosts)
	r.GET("/profile/:username", h.Profile)
	r.GET("/posts/:id", h.PostDetail)

	auth := r.Group("/", middleware.RequireLogin(cfg.Auth.LoginURL))
	{
		auth.GET("/create", h.CreateForm)
		auth.POST("/create", h.CreatePost)
		auth.GET("/posts/:id/edit", h.EditForm)
		auth.POST("/posts/:id/edit", h.EditPost)
		auth.POST("/posts/:id/delete", h.DeletePost)
		auth.POST("/posts/:id/comment", h.AddComment)
		auth.GET("/profile/:username/follow", h.ProfileFollow)
		auth.GET("/profile/:username/unfollow", h.ProfileUnfollow)
		auth.GET("/follow", h.FollowIndex)
	}

	return r
}
