package repository

import (
	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/internal/model"
)

// AutoMigrate 建表、索引与约束
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.Post{},
		&model.Comment{},
		&model.Follow{},
	)
}
