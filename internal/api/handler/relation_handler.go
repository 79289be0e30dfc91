package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/internal/api/middleware"
)

// ProfileFollow 关注作者，重复关注和关注自己都是空操作
// @Summary 关注作者
// @Tags 关系链
// @Param username path string true "用户名"
// @Success 302 "重定向到作者主页"
// @Failure 404 {object} response.Response
// @Router /profile/{username}/follow [get]
func (h *Handler) ProfileFollow(c *gin.Context) {
	username := c.Param("username")
	if err := h.subs.Follow(c.Request.Context(), middleware.CurrentUser(c), username); err != nil {
		h.fail(c, err, "")
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}

// ProfileUnfollow 取消关注，未关注时为空操作
// @Summary 取消关注
// @Tags 关系链
// @Param username path string true "用户名"
// @Success 302 "重定向到作者主页"
// @Failure 404 {object} response.Response
// @Router /profile/{username}/unfollow [get]
func (h *Handler) ProfileUnfollow(c *gin.Context) {
	username := c.Param("username")
	if err := h.subs.Unfollow(c.Request.Context(), middleware.CurrentUser(c), username); err != nil {
		h.fail(c, err, "")
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username)
}
