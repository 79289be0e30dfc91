package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/internal/api/middleware"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/pkg/response"
)

// fail 领域错误到响应的映射；readURL 为 Forbidden 时的回跳地址。
// ValidationError 由各表单处理器自己渲染
func (h *Handler) fail(c *gin.Context, err error, readURL string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, model.ErrForbidden) && readURL != "":
		c.Redirect(http.StatusFound, readURL)
	case errors.Is(err, model.ErrForbidden):
		response.Forbidden(c, "not the author")
	case errors.Is(err, model.ErrUnauthenticated):
		middleware.RedirectToLogin(c, h.loginURL)
	default:
		response.InternalError(c, err)
	}
}

func validationFields(err error) (map[string]string, bool) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
