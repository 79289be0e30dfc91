package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postfeed/internal/api/middleware"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/pkg/response"
)

func postURL(id uint) string { return fmt.Sprintf("/posts/%d", id) }

// postID 非法 id 视为不存在
func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c)
		return 0, false
	}
	return uint(id), true
}

func commentForm(id uint) FormView {
	return FormView{Action: postURL(id) + "/comment", Values: map[string]string{"text": ""}}
}

// PostDetail 帖子详情、评论与评论表单
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=PostDetailView}
// @Failure 404 {object} response.Response
// @Router /posts/{id} [get]
func (h *Handler) PostDetail(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	d, err := h.posts.Detail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, newPostDetailView(d, commentForm(id)))
}

// CreateForm 新建帖子表单
// @Summary 新建帖子表单
// @Tags 帖子
// @Produce json
// @Success 200 {object} response.Response{data=FormView}
// @Failure 302 "未登录重定向到登录页"
// @Router /create [get]
func (h *Handler) CreateForm(c *gin.Context) {
	form, err := h.postForm(c, "/create", map[string]string{"text": "", "group": ""}, nil, false)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, form)
}

// CreatePost 新建帖子，成功后回到作者主页
// @Summary 新建帖子
// @Tags 帖子
// @Accept multipart/form-data
// @Produce json
// @Param text formData string true "正文"
// @Param group formData int false "分组ID"
// @Param image formData file false "图片"
// @Success 302 "重定向到作者主页"
// @Failure 200 {object} response.Response{data=FormView} "表单错误"
// @Router /create [post]
func (h *Handler) CreatePost(c *gin.Context) {
	user := middleware.CurrentUser(c)
	in, values, closeImage, err := bindPostInput(c)
	if err == nil {
		defer closeImage()
		_, err = h.posts.Create(c.Request.Context(), user, in)
	}
	if err != nil {
		h.formFailed(c, err, "/create", values, "", false)
		return
	}
	c.Redirect(http.StatusFound, profileURL(user.Username))
}

// EditForm 编辑表单，带当前值；非作者回到详情页
// @Summary 编辑帖子表单
// @Tags 帖子
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=FormView}
// @Failure 302 "非作者重定向到详情页"
// @Failure 404 {object} response.Response
// @Router /posts/{id}/edit [get]
func (h *Handler) EditForm(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	p, err := h.posts.ForEdit(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err, postURL(id))
		return
	}
	values := map[string]string{"text": p.Text, "group": "", "image": p.Image}
	if p.GroupID != nil {
		values["group"] = strconv.FormatUint(uint64(*p.GroupID), 10)
	}
	form, err := h.postForm(c, postURL(id)+"/edit", values, nil, true)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Success(c, form)
}

// EditPost 编辑帖子；不上传图片时保留原图
// @Summary 编辑帖子
// @Tags 帖子
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "帖子ID"
// @Param text formData string true "正文"
// @Param group formData int false "分组ID"
// @Param image formData file false "图片"
// @Success 302 "重定向到详情页"
// @Failure 200 {object} response.Response{data=FormView} "表单错误"
// @Failure 404 {object} response.Response
// @Router /posts/{id}/edit [post]
func (h *Handler) EditPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	// 先做作者校验，非作者不应看到表单错误
	if _, err := h.posts.ForEdit(c.Request.Context(), id, user); err != nil {
		h.fail(c, err, postURL(id))
		return
	}
	in, values, closeImage, err := bindPostInput(c)
	if err == nil {
		defer closeImage()
		_, err = h.posts.Edit(c.Request.Context(), id, user, in)
	}
	if err != nil {
		h.formFailed(c, err, postURL(id)+"/edit", values, postURL(id), true)
		return
	}
	c.Redirect(http.StatusFound, postURL(id))
}

// DeletePost 删除帖子及其评论
// @Summary 删除帖子
// @Tags 帖子
// @Param id path int true "帖子ID"
// @Success 302 "重定向到作者主页"
// @Failure 302 "非作者重定向到详情页"
// @Failure 404 {object} response.Response
// @Router /posts/{id}/delete [post]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.posts.Delete(c.Request.Context(), id, user); err != nil {
		h.fail(c, err, postURL(id))
		return
	}
	c.Redirect(http.StatusFound, profileURL(user.Username))
}

// AddComment 发表评论；正文为空时返回详情页和表单错误
// @Summary 发表评论
// @Tags 帖子
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path int true "帖子ID"
// @Param text formData string true "评论内容"
// @Success 302 "重定向到详情页"
// @Failure 200 {object} response.Response{data=PostDetailView} "表单错误"
// @Failure 404 {object} response.Response
// @Router /posts/{id}/comment [post]
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	text := c.PostForm("text")
	_, err := h.posts.AddComment(c.Request.Context(), id, middleware.CurrentUser(c), service.CommentInput{Text: text})
	if err == nil {
		c.Redirect(http.StatusFound, postURL(id))
		return
	}

	fields, ok := validationFields(err)
	if !ok {
		h.fail(c, err, "")
		return
	}
	d, err := h.posts.Detail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	form := commentForm(id)
	form.Values["text"] = text
	form.Errors = fields
	response.Invalid(c, newPostDetailView(d, form))
}

// postForm 新建 / 编辑表单描述，附带可选分组
func (h *Handler) postForm(c *gin.Context, action string, values, errs map[string]string, isEdit bool) (FormView, error) {
	groups, err := h.posts.Groups(c.Request.Context())
	if err != nil {
		return FormView{}, err
	}
	return FormView{Action: action, Values: values, Errors: errs, IsEdit: isEdit, Groups: newGroupViews(groups)}, nil
}

// formFailed 表单错误重新渲染，其它错误走统一映射
func (h *Handler) formFailed(c *gin.Context, err error, action string, values map[string]string, readURL string, isEdit bool) {
	fields, ok := validationFields(err)
	if !ok {
		h.fail(c, err, readURL)
		return
	}
	form, err := h.postForm(c, action, values, fields, isEdit)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	response.Invalid(c, form)
}

// bindPostInput 读取 text / group / image；group 不是合法 id 时交给 service 一并校验
func bindPostInput(c *gin.Context) (service.PostInput, map[string]string, func(), error) {
	values := map[string]string{"text": c.PostForm("text"), "group": c.PostForm("group")}
	in := service.PostInput{Text: values["text"]}
	noop := func() {}

	if raw := values["group"]; raw != "" {
		gid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || gid == 0 {
			in.BadGroup = true
		} else {
			g := uint(gid)
			in.GroupID = &g
		}
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// 未上传或不是 multipart
		return in, values, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, values, noop, model.NewValidationError("image", "The submitted file could not be read.")
	}
	in.Image = &service.Upload{Filename: fh.Filename, Body: f}
	return in, values, func() { _ = f.Close() }, nil
}
