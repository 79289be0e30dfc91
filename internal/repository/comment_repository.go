package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/internal/model"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	// ListByPost 按 created_at DESC, id DESC；帖子已删除时不返回孤儿评论
	ListByPost(ctx context.Context, postID uint) ([]*model.Comment, error)
	DeleteByPost(ctx context.Context, postID uint) (int64, error)
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return translate(r.db.WithContext(ctx).Omit("Author").Create(c).Error)
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*model.Comment, error) {
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("comments.post_id = ?", postID).
		Where("EXISTS (SELECT 1 FROM posts WHERE posts.id = comments.post_id)").
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Find(&res).Error
	return res, err
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.Comment{})
	return res.RowsAffected, res.Error
}
