package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/internal/service"
	"github.com/d60-Lab/postfeed/internal/testutil"
)

func TestSubscription(t *testing.T) {
	db := testutil.NewDB(t)
	follows := repository.NewFollowRepository(db)
	svc := service.NewSubscriptionService(repository.NewUserRepository(db), follows)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	followers := func() int64 {
		n, err := follows.CountFollowers(ctx, bob.ID)
		require.NoError(t, err)
		return n
	}

	t.Run("follow is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Follow(ctx, alice, "bob"))
		require.NoError(t, svc.Follow(ctx, alice, "bob"))
		assert.Equal(t, int64(1), followers())
	})

	t.Run("unfollow is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Unfollow(ctx, alice, "bob"))
		require.NoError(t, svc.Unfollow(ctx, alice, "bob"))
		assert.Zero(t, followers())
	})

	t.Run("self follow is a no-op", func(t *testing.T) {
		require.NoError(t, svc.Follow(ctx, alice, "alice"))
		n, err := follows.CountFollowers(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.ErrorIs(t, svc.Follow(ctx, alice, "nobody"), model.ErrNotFound)
		assert.ErrorIs(t, svc.Unfollow(ctx, alice, "nobody"), model.ErrNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		assert.ErrorIs(t, svc.Follow(ctx, nil, "bob"), model.ErrUnauthenticated)
		assert.ErrorIs(t, svc.Unfollow(ctx, nil, "bob"), model.ErrUnauthenticated)
	})
}
