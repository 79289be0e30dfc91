// Package app 按配置装配数据库、缓存、服务与路由
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/config"
	"github.com/d60-Lab/postfeed/internal/api"
	"github.com/d60-Lab/postfeed/internal/api/handler"
	"github.com/d60-Lab/postfeed/internal/cache"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/database"
	"github.com/d60-Lab/postfeed/pkg/jwtauth"
	"github.com/d60-Lab/postfeed/pkg/logger"
	"github.com/d60-Lab/postfeed/pkg/storage"
)

// Options 启动选项
type Options struct {
	// EmbeddedRedis 用进程内 miniredis 代替外部 redis（本地开发）
	EmbeddedRedis bool
	// Files 为空时使用 storage.media_root 下的磁盘存储
	Files storage.FileStorage
}

// App 装配好的应用
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   redis.UniversalClient
	Index   *cache.IndexCache
	Tokens  *jwtauth.Manager
	Janitor *service.MediaJanitor
	Router  *gin.Engine

	stopJanitor func(context.Context) error
	embedded    *miniredis.Miniredis
	ownsDB      bool
}

// New 打开数据库与 redis 并装配
func New(cfg *config.Config, opts Options) (*App, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	var (
		rdb      redis.UniversalClient
		embedded *miniredis.Miniredis
	)
	if opts.EmbeddedRedis {
		embedded, err = miniredis.Run()
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		rdb = redis.NewClient(&redis.Options{Addr: embedded.Addr()})
		logger.Info("using embedded redis", zap.String("addr", embedded.Addr()))
	} else {
		rdb = NewRedis(cfg.Redis)
	}

	files := opts.Files
	if files == nil {
		files = storage.NewLocal(cfg.Storage.MediaRoot)
	}

	a := Build(cfg, db, rdb, files)
	a.embedded = embedded
	a.ownsDB = true
	return a, nil
}

// NewRedis 按配置创建客户端
func NewRedis(c config.RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
}

// Build 用现成的连接装配各层（测试直接调用）
func Build(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient, files storage.FileStorage) *App {
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	follows := repository.NewFollowRepository(db)

	janitor := service.NewMediaJanitor(files, 0)
	index := cache.NewIndexCache(rdb, cfg.Cache.IndexPrefix, cfg.Cache.IndexTTL)
	tokens := jwtauth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	stopJanitor := janitor.Start(2)
	go janitor.ReportMetrics()

	h := handler.NewHandler(
		service.NewFeedService(users, groups, posts, follows),
		service.NewSubscriptionService(users, follows),
		service.NewPostService(groups, posts, comments, files, janitor),
		index,
		cfg.Auth.LoginURL,
	)

	return &App{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Index:       index,
		Tokens:      tokens,
		Janitor:     janitor,
		Router:      api.NewRouter(cfg, h, tokens, users),
		stopJanitor: stopJanitor,
	}
}

// Run 监听直到 ctx 取消，然后优雅退出
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// Close 释放连接；数据库只在 New 打开时关闭
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.stopJanitor != nil {
		errs = append(errs, a.stopJanitor(ctx))
	}
	errs = append(errs, a.Redis.Close())
	if a.embedded != nil {
		a.embedded.Close()
	}
	if a.ownsDB {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
