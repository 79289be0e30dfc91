package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/internal/cache"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/response"
)

// Handler HTTP 处理器集合
type Handler struct {
	feeds    service.FeedService
	subs     service.SubscriptionService
	posts    service.PostService
	index    *cache.IndexCache
	loginURL string
}

func NewHandler(feeds service.FeedService, subs service.SubscriptionService, posts service.PostService, index *cache.IndexCache, loginURL string) *Handler {
	return &Handler{feeds: feeds, subs: subs, posts: posts, index: index, loginURL: loginURL}
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// NotFound 未匹配路由
func (h *Handler) NotFound(c *gin.Context) {
	response.NotFound(c)
}
