package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/logger"
	"github.com/d60-Lab/postfeed/pkg/storage"
)

// MaxImageBytes 上传图片大小上限
const MaxImageBytes = 5 << 20

// Upload 上传的文件
type Upload struct {
	Filename string
	Body     io.Reader
}

// PostInput 新建 / 编辑帖子的表单
type PostInput struct {
	Text     string  `form:"text" validate:"required"`
	GroupID  *uint   `form:"group"`
	Image    *Upload `form:"-"`
	// BadGroup 提交的 group 无法解析为 id，与其它字段错误一起返回
	BadGroup bool    `form:"-"`
}

// CommentInput 评论表单
type CommentInput struct {
	Text string `form:"text" validate:"required"`
}

// PostDetail 帖子详情页
type PostDetail struct {
	Post            *model.Post
	AuthorPostCount int64
	Comments        []*model.Comment
}

type PostService interface {
	Create(ctx context.Context, author *model.User, in PostInput) (*model.Post, error)
	// ForEdit 返回作者本人可编辑的帖子
	ForEdit(ctx context.Context, postID uint, requester *model.User) (*model.Post, error)
	Edit(ctx context.Context, postID uint, requester *model.User, in PostInput) (*model.Post, error)
	// Delete 先删帖子再删评论
	Delete(ctx context.Context, postID uint, requester *model.User) error
	AddComment(ctx context.Context, postID uint, author *model.User, in CommentInput) (*model.Comment, error)
	Detail(ctx context.Context, postID uint) (*PostDetail, error)
	Groups(ctx context.Context) ([]*model.Group, error)
}

type postService struct {
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	files    storage.FileStorage
	janitor  *MediaJanitor
	validate *validator.Validate
}

func NewPostService(groups repository.GroupRepository, posts repository.PostRepository, comments repository.CommentRepository, files storage.FileStorage, janitor *MediaJanitor) PostService {
	return &postService{
		groups:   groups,
		posts:    posts,
		comments: comments,
		files:    files,
		janitor:  janitor,
		validate: newValidator(),
	}
}

// newValidator 错误里的字段名取 form tag
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *postService) Create(ctx context.Context, author *model.User, in PostInput) (*model.Post, error) {
	if author == nil {
		return nil, model.ErrUnauthenticated
	}
	fields, err := s.clean(ctx, &in)
	if err != nil {
		return nil, err
	}

	p := &model.Post{Text: fields.Text, AuthorID: author.ID, GroupID: fields.GroupID}
	if fields.Image != nil {
		p.Image = *fields.Image
	}
	if err := s.posts.Create(ctx, p); err != nil {
		s.discard(p.Image)
		return nil, err
	}
	logger.Info("post created", zap.Uint("post", p.ID), zap.Uint("author", author.ID))
	return p, nil
}

func (s *postService) ForEdit(ctx context.Context, postID uint, requester *model.User) (*model.Post, error) {
	if requester == nil {
		return nil, model.ErrUnauthenticated
	}
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != requester.ID {
		return nil, model.ErrForbidden
	}
	return p, nil
}

func (s *postService) Edit(ctx context.Context, postID uint, requester *model.User, in PostInput) (*model.Post, error) {
	current, err := s.ForEdit(ctx, postID, requester)
	if err != nil {
		return nil, err
	}
	fields, err := s.clean(ctx, &in)
	if err != nil {
		return nil, err
	}
	// 条件更新：并发下作者校验仍由 author_id 条件保证
	if err := s.posts.Update(ctx, postID, requester.ID, fields); err != nil {
		if fields.Image != nil {
			s.discard(*fields.Image)
		}
		return nil, err
	}
	if fields.Image != nil && current.Image != "" && current.Image != *fields.Image {
		s.discard(current.Image)
	}
	logger.Info("post edited", zap.Uint("post", postID), zap.Uint("author", requester.ID))
	return s.posts.GetByID(ctx, postID)
}

func (s *postService) Delete(ctx context.Context, postID uint, requester *model.User) error {
	p, err := s.ForEdit(ctx, postID, requester)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID, requester.ID); err != nil {
		return err
	}
	n, err := s.comments.DeleteByPost(ctx, postID)
	if err != nil {
		// 帖子已删除，残留评论不会再被读到
		logger.Error("delete comments failed", zap.Uint("post", postID), zap.Error(err))
	}
	s.discard(p.Image)
	logger.Info("post deleted", zap.Uint("post", postID), zap.Int64("comments", n))
	return nil
}

func (s *postService) AddComment(ctx context.Context, postID uint, author *model.User, in CommentInput) (*model.Comment, error) {
	if author == nil {
		return nil, model.ErrUnauthenticated
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validate.Struct(&in); err != nil {
		return nil, toValidationError(err)
	}
	c := &model.Comment{PostID: postID, AuthorID: author.ID, Text: in.Text}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	c.Author = *author
	return c, nil
}

func (s *postService) Detail(ctx context.Context, postID uint) (*PostDetail, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	count, err := s.posts.Count(ctx, repository.PostFilter{AuthorID: &p.AuthorID})
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: p, AuthorPostCount: count, Comments: comments}, nil
}

func (s *postService) Groups(ctx context.Context) ([]*model.Group, error) {
	return s.groups.List(ctx)
}

// clean 校验表单并保存新图片；所有字段错误合并到一个 ValidationError
func (s *postService) clean(ctx context.Context, in *PostInput) (repository.PostFields, error) {
	in.Text = strings.TrimSpace(in.Text)
	verr := &model.ValidationError{Fields: map[string]string{}}
	if err := s.validate.Struct(in); err != nil {
		var ve *model.ValidationError
		if !errors.As(toValidationError(err), &ve) {
			return repository.PostFields{}, err
		}
		for k, v := range ve.Fields {
			verr.Fields[k] = v
		}
	}

	if in.BadGroup {
		verr.Fields["group"] = "Select a valid choice."
	} else if in.GroupID != nil {
		if _, err := s.groups.GetByID(ctx, *in.GroupID); err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return repository.PostFields{}, err
			}
			verr.Fields["group"] = "Select a valid choice."
		}
	}

	var data []byte
	if in.Image != nil {
		var msg string
		data, msg = readImage(in.Image.Body)
		if msg != "" {
			verr.Fields["image"] = msg
		}
	}

	if len(verr.Fields) > 0 {
		return repository.PostFields{}, verr
	}

	fields := repository.PostFields{Text: in.Text, GroupID: in.GroupID}
	if in.Image != nil {
		rel, err := s.files.Save(ctx, "posts", in.Image.Filename, bytes.NewReader(data))
		if err != nil {
			return repository.PostFields{}, fmt.Errorf("save image: %w", err)
		}
		fields.Image = &rel
	}
	return fields, nil
}

// readImage 返回内容，或者一条字段错误
func readImage(r io.Reader) ([]byte, string) {
	if r == nil {
		return nil, "No file was submitted."
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, "The submitted file could not be read."
	}
	switch {
	case len(data) == 0:
		return nil, "The submitted file is empty."
	case len(data) > MaxImageBytes:
		return nil, "The submitted file is too large."
	case !strings.HasPrefix(http.DetectContentType(data), "image/"):
		return nil, "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
	return data, ""
}

func (s *postService) discard(path string) {
	if s.janitor != nil {
		s.janitor.Enqueue(path)
	}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &model.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out.Fields[fe.Field()] = "This field is required."
		default:
			out.Fields[fe.Field()] = fmt.Sprintf("Invalid value (%s).", fe.Tag())
		}
	}
	return out
}
