package model

import (
	"fmt"
	"time"
)

// Follow 关注关系（Follower 关注 Author）
type Follow struct {
	ID         uint `gorm:"primaryKey"`
	FollowerID uint `gorm:"not null;index:idx_follow_follower;index:idx_follow_pair,unique;check:chk_follows_not_self,follower_id <> author_id"`
	AuthorID   uint `gorm:"not null;index:idx_follow_author;index:idx_follow_pair,unique"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, author_id)
	Follower  User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Author    User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (Follow) TableName() string { return "follows" }

// NewFollow 构造时拒绝自己关注自己
func NewFollow(followerID, authorID uint) (*Follow, error) {
	if followerID == 0 || authorID == 0 {
		return nil, fmt.Errorf("%w: empty user id", ErrConstraintViolation)
	}
	if followerID == authorID {
		return nil, fmt.Errorf("%w: user %d cannot follow themself", ErrConstraintViolation, followerID)
	}
	return &Follow{FollowerID: followerID, AuthorID: authorID}, nil
}
