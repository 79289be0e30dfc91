package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/testutil"
)

func TestCommentRepository_ListByPost(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	p := testutil.CreatePost(t, db, alice, nil, "post", time.Time{})
	other := testutil.CreatePost(t, db, alice, nil, "other", time.Time{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := &model.Comment{PostID: p.ID, AuthorID: bob.ID, Text: "first", CreatedAt: base}
	c2 := &model.Comment{PostID: p.ID, AuthorID: alice.ID, Text: "second", CreatedAt: base.Add(time.Minute)}
	c3 := &model.Comment{PostID: other.ID, AuthorID: bob.ID, Text: "elsewhere"}
	for _, c := range []*model.Comment{c1, c2, c3} {
		require.NoError(t, repo.Create(ctx, c))
	}

	got, err := repo.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, c2.ID, got[0].ID, "newest first")
	assert.Equal(t, "alice", got[0].Author.Username)
	assert.Equal(t, c1.ID, got[1].ID)
}

func TestCommentRepository_ListByPost_TieBreak(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	p := testutil.CreatePost(t, db, alice, nil, "post", time.Time{})

	// 时间戳相同时按 id 倒序
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uint
	for i := 0; i < 4; i++ {
		c := &model.Comment{PostID: p.ID, AuthorID: alice.ID, Text: "same", CreatedAt: at}
		require.NoError(t, repo.Create(ctx, c))
		ids = append(ids, c.ID)
	}

	got, err := repo.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, ids[len(ids)-1-i], c.ID)
	}
}

func TestCommentRepository_NoOrphans(t *testing.T) {
	db := testutil.NewDB(t)
	comments := repository.NewCommentRepository(db)
	posts := repository.NewPostRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	p := testutil.CreatePost(t, db, alice, nil, "post", time.Time{})
	require.NoError(t, comments.Create(ctx, &model.Comment{PostID: p.ID, AuthorID: alice.ID, Text: "hi"}))

	// 帖子删除后、评论清理前的窗口内也不应返回评论
	require.NoError(t, posts.Delete(ctx, p.ID, alice.ID))
	got, err := comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	// 外键级联可能已删掉评论，清理需要幂等
	_, err = comments.DeleteByPost(ctx, p.ID)
	require.NoError(t, err)
	var left int64
	require.NoError(t, db.Model(&model.Comment{}).Where("post_id = ?", p.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestCommentRepository_DeleteByPost(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCommentRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	p := testutil.CreatePost(t, db, alice, nil, "post", time.Time{})
	keep := testutil.CreatePost(t, db, alice, nil, "keep", time.Time{})
	for _, postID := range []uint{p.ID, p.ID, keep.ID} {
		require.NoError(t, repo.Create(ctx, &model.Comment{PostID: postID, AuthorID: alice.ID, Text: "c"}))
	}

	n, err := repo.DeleteByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := repo.ListByPost(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestCommentRepository_UnknownPost(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCommentRepository(db)
	alice := testutil.CreateUser(t, db, "alice")

	// 外键约束拒绝指向不存在帖子的评论
	err := repo.Create(context.Background(), &model.Comment{PostID: 999, AuthorID: alice.ID, Text: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
