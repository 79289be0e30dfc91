package model

import "time"

// User 由认证服务维护，这里只读
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(150);uniqueIndex;not null"`
	Email     string `gorm:"type:varchar(254)"`
	CreatedAt time.Time
}

func (User) TableName() string { return "users" }
