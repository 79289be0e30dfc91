package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/internal/model"
)

// PostFilter 描述一个 feed 的可见帖子集合，零值表示全部帖子
type PostFilter struct {
	GroupID    *uint
	AuthorID   *uint
	FollowerID *uint // 只保留该用户关注的作者的帖子
}

// PostFields 可编辑字段；Image 为 nil 表示保留原图
type PostFields struct {
	Text    string
	GroupID *uint
	Image   *string
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	// Update 仅当 author_id 匹配时更新（单条条件语句）
	Update(ctx context.Context, id, authorID uint, f PostFields) error
	// Delete 仅当 author_id 匹配时删除
	Delete(ctx context.Context, id, authorID uint) error
	Count(ctx context.Context, f PostFilter) (int64, error)
	// List 按 created_at DESC, id DESC 排序
	List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return translate(r.db.WithContext(ctx).Omit("Author", "Group", "Comments").Create(p).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, id, authorID uint, f PostFields) error {
	var group interface{}
	if f.GroupID != nil {
		group = *f.GroupID
	}
	updates := map[string]interface{}{"text": f.Text, "group_id": group}
	if f.Image != nil {
		updates["image"] = *f.Image
	}

	res := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrForbidden(ctx, id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id, authorID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&model.Post{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrForbidden(ctx, id)
	}
	return nil
}

// missingOrForbidden 条件写未命中时区分"不存在"与"不是作者"
func (r *postRepository) missingOrForbidden(ctx context.Context, id uint) error {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		return fmt.Errorf("post %d: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("post %d: %w", id, model.ErrForbidden)
}

func (r *postRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	var cnt int64
	err := r.scoped(ctx, f).Model(&model.Post{}).Count(&cnt).Error
	return cnt, err
}

func (r *postRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.scoped(ctx, f).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) scoped(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if f.GroupID != nil {
		q = q.Where("posts.group_id = ?", *f.GroupID)
	}
	if f.AuthorID != nil {
		q = q.Where("posts.author_id = ?", *f.AuthorID)
	}
	if f.FollowerID != nil {
		following := r.db.WithContext(ctx).Model(&model.Follow{}).
			Select("author_id").
			Where("follower_id = ?", *f.FollowerID)
		q = q.Where("posts.author_id IN (?)", following)
	}
	return q
}
