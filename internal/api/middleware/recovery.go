package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/pkg/reporting"
	"github.com/d60-Lab/postfeed/pkg/response"
)

// Recovery panic 转成 500 并上报
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if v := recover(); v != nil {
				reporting.CapturePanic(c.Request, v)
				response.InternalError(c, fmt.Errorf("panic: %v", v))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ReportErrors 把 5xx 响应上挂的错误上报到 Sentry
func ReportErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusInternalServerError {
			return
		}
		for _, e := range c.Errors {
			reporting.CaptureError(c.Request, e.Err)
		}
	}
}
