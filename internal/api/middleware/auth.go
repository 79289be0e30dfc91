package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/jwtauth"
	"github.com/d60-Lab/postfeed/pkg/logger"
)

const (
	currentUserKey = "currentUser"
	// TokenCookie 浏览器端保存 token 的 cookie
	TokenCookie = "token"
)

// Authenticate 解析 Bearer token 或 token cookie；无效 token 视为匿名
func Authenticate(tokens *jwtauth.Manager, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(TokenCookie)
		}
		if raw == "" {
			c.Next()
			return
		}

		id, err := tokens.Parse(raw)
		if err != nil {
			logger.Debug("ignore invalid token", zap.Error(err))
			c.Next()
			return
		}
		u, err := users.GetByID(c.Request.Context(), id)
		if err != nil {
			logger.Debug("token user not found", zap.Uint("user", id), zap.Error(err))
			c.Next()
			return
		}
		c.Set(currentUserKey, u)
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// CurrentUser 匿名返回 nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// RequireLogin 匿名请求重定向到登录页
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			RedirectToLogin(c, loginURL)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectToLogin 302 到登录页，next 为当前请求 URI
func RedirectToLogin(c *gin.Context, loginURL string) {
	target := loginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	if strings.Contains(loginURL, "?") {
		target = loginURL + "&next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	c.Redirect(http.StatusFound, target)
}
