//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/postfeed/config"
	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/testutil"
	"github.com/d60-Lab/postfeed/pkg/database"
)

// 需要 docker：go test -tags integration ./internal/repository/...
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("postfeed"),
		tcpostgres.WithUsername("postfeed"),
		tcpostgres.WithPassword("postfeed"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.InitDB(&config.Config{Database: config.DatabaseConfig{
		Driver:          "postgres",
		DSN:             dsn,
		MaxIdleConns:    2,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

func TestPostgres_FollowConstraints(t *testing.T) {
	db := newPostgresDB(t)
	repo := repository.NewFollowRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, repo.Create(ctx, alice.ID, bob.ID), model.ErrConstraintViolation)

	err := db.Exec("INSERT INTO follows (follower_id, author_id, created_at) VALUES (?, ?, now())", alice.ID, alice.ID).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chk_follows_not_self")
}

func TestPostgres_FollowingFeedAndDelete(t *testing.T) {
	db := newPostgresDB(t)
	posts := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)
	comments := repository.NewCommentRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	cats := testutil.CreateGroup(t, db, "cats")
	created := testutil.CreatePosts(t, db, bob, cats, 12)
	require.NoError(t, follows.Create(ctx, alice.ID, bob.ID))

	filter := repository.PostFilter{FollowerID: &alice.ID}
	total, err := posts.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)

	page2, err := posts.List(ctx, filter, 10, 10)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, created[1].ID, page2[0].ID)

	target := created[11]
	require.NoError(t, comments.Create(ctx, &model.Comment{PostID: target.ID, AuthorID: alice.ID, Text: "nice"}))
	assert.ErrorIs(t, posts.Delete(ctx, target.ID, alice.ID), model.ErrForbidden)
	require.NoError(t, posts.Delete(ctx, target.ID, bob.ID))

	left, err := comments.ListByPost(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
