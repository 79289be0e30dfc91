package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/internal/api/middleware"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/response"
)

// Index 全站 feed，整页缓存 20 秒，写操作不失效
// @Summary 全站帖子
// @Tags Feed
// @Produce json
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=FeedView}
// @Router / [get]
func (h *Handler) Index(c *gin.Context) {
	page := service.ParsePage(c.Query("page"))
	body, err := h.index.Fetch(c.Request.Context(), page, func(ctx context.Context) ([]byte, error) {
		feed, err := h.feeds.Assemble(ctx, service.FeedQuery{Kind: service.FeedGlobal, Page: page})
		if err != nil {
			return nil, err
		}
		return response.Render(newFeedView(feed))
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Raw(c, body)
}

// GroupPosts 分组 feed
// @Summary 分组帖子
// @Tags Feed
// @Produce json
// @Param slug path string true "分组 slug"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=FeedView}
// @Failure 404 {object} response.Response
// @Router /group/{slug} [get]
func (h *Handler) GroupPosts(c *gin.Context) {
	feed, err := h.feeds.Assemble(c.Request.Context(), service.FeedQuery{
		Kind:      service.FeedGroup,
		GroupSlug: c.Param("slug"),
		Page:      service.ParsePage(c.Query("page")),
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, newFeedView(feed))
}

// Profile 作者主页
// @Summary 作者主页
// @Tags Feed
// @Produce json
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=FeedView}
// @Failure 404 {object} response.Response
// @Router /profile/{username} [get]
func (h *Handler) Profile(c *gin.Context) {
	feed, err := h.feeds.Profile(c.Request.Context(), c.Param("username"), middleware.CurrentUser(c), service.ParsePage(c.Query("page")))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, newFeedView(feed))
}

// FollowIndex 关注作者的帖子
// @Summary 关注 feed
// @Tags Feed
// @Produce json
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=FeedView}
// @Failure 302 "未登录重定向到登录页"
// @Router /follow [get]
func (h *Handler) FollowIndex(c *gin.Context) {
	feed, err := h.feeds.Assemble(c.Request.Context(), service.FeedQuery{
		Kind:   service.FeedFollowing,
		Viewer: middleware.CurrentUser(c),
		Page:   service.ParsePage(c.Query("page")),
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, newFeedView(feed))
}
