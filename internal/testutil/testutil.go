// Package testutil 测试用的 sqlite 内存库与种子数据
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/database"
)

// NewDB 每次返回独立的内存库，已迁移
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := database.SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(tb, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(tb, repository.AutoMigrate(db), "migrate")
	return db
}

// CreateUser 建用户
func CreateUser(tb testing.TB, db *gorm.DB, username string) *model.User {
	tb.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	require.NoError(tb, repository.NewUserRepository(db).Create(context.Background(), u))
	return u
}

// CreateGroup 建分组
func CreateGroup(tb testing.TB, db *gorm.DB, slug string) *model.Group {
	tb.Helper()
	g := &model.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(tb, repository.NewGroupRepository(db).Create(context.Background(), g))
	return g
}

// CreatePost 直接写库；at 为零值时由数据库填充时间
func CreatePost(tb testing.TB, db *gorm.DB, author *model.User, group *model.Group, text string, at time.Time) *model.Post {
	tb.Helper()
	p := &model.Post{Text: text, AuthorID: author.ID, CreatedAt: at}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(tb, repository.NewPostRepository(db).Create(context.Background(), p))
	return p
}

// CreatePosts 按时间递增建 n 条帖子，最后一条最新
func CreatePosts(tb testing.TB, db *gorm.DB, author *model.User, group *model.Group, n int) []*model.Post {
	tb.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := make([]*model.Post, n)
	for i := 0; i < n; i++ {
		res[i] = CreatePost(tb, db, author, group, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
	}
	return res
}
