// Package response 统一 JSON 响应
package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/pkg/logger"
)

// Response 响应体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const contentTypeJSON = "application/json; charset=utf-8"

// Success 200
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// Render 把页面渲染成字节，供缓存原样回放
func Render(data interface{}) ([]byte, error) {
	return json.Marshal(Response{Code: 0, Message: "ok", Data: data})
}

// Raw 原样写出已渲染的页面
func Raw(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, contentTypeJSON, body)
}

// Invalid 表单校验失败：200 + 原表单与错误
func Invalid(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusUnprocessableEntity, Message: "invalid form", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: msg})
}

// NotFound 404 页面带上请求路径
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Code:    http.StatusNotFound,
		Message: "not found",
		Data:    gin.H{"path": c.Request.URL.Path},
	})
}

// Forbidden 403 页面（CSRF 之类的边界失败）
func Forbidden(c *gin.Context, reason string) {
	c.JSON(http.StatusForbidden, Response{Code: http.StatusForbidden, Message: "forbidden", Data: gin.H{"reason": reason}})
}

// InternalError 500，不向外暴露内部错误
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		logger.Error("internal error", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: "internal server error"})
}
