package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/internal/model"
	"github.com/d60-Lab/postfeed/internal/repository"
	"github.com/d60-Lab/postfeed/pkg/logger"
)

// SubscriptionService 关注关系。Follow / Unfollow 都是幂等的
type SubscriptionService interface {
	Follow(ctx context.Context, viewer *model.User, username string) error
	Unfollow(ctx context.Context, viewer *model.User, username string) error
}

type subscriptionService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewSubscriptionService(users repository.UserRepository, follows repository.FollowRepository) SubscriptionService {
	return &subscriptionService{users: users, follows: follows}
}

func (s *subscriptionService) Follow(ctx context.Context, viewer *model.User, username string) error {
	author, err := s.resolve(ctx, viewer, username)
	if err != nil {
		return err
	}
	if author.ID == viewer.ID {
		logger.Debug("ignore self follow", zap.Uint("user", viewer.ID))
		return nil
	}
	if err := s.follows.Create(ctx, viewer.ID, author.ID); err != nil {
		// 已关注（包括并发下的重复插入）
		if errors.Is(err, model.ErrConstraintViolation) {
			logger.Debug("already following", zap.Uint("follower", viewer.ID), zap.Uint("author", author.ID))
			return nil
		}
		return err
	}
	logger.Debug("follow", zap.Uint("follower", viewer.ID), zap.Uint("author", author.ID))
	return nil
}

func (s *subscriptionService) Unfollow(ctx context.Context, viewer *model.User, username string) error {
	author, err := s.resolve(ctx, viewer, username)
	if err != nil {
		return err
	}
	if err := s.follows.Delete(ctx, viewer.ID, author.ID); err != nil {
		return err
	}
	logger.Debug("unfollow", zap.Uint("follower", viewer.ID), zap.Uint("author", author.ID))
	return nil
}

func (s *subscriptionService) resolve(ctx context.Context, viewer *model.User, username string) (*model.User, error) {
	if viewer == nil {
		return nil, model.ErrUnauthenticated
	}
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return author, nil
}
