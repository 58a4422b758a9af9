package user

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ProfileListener is told about every profile write so cached sessions stay current.
type ProfileListener interface {
	ProfileUpdated(u *User)
}

// Service defines profile operations.
type Service interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error)
}

type service struct {
	repo     Repository
	listener ProfileListener
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new user service. listener may be nil.
func NewService(repo Repository, listener ProfileListener, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		listener: listener,
		logger:   logger.Named("user_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Debug("Profile lookup failed", zap.String("userID", id), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// UpdateUser applies a partial update and refreshes updatedAt.
func (s *service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	u, err := s.repo.Update(ctx, id, req.toPatch(s.now()))
	if err != nil {
		s.logger.Warn("Profile update failed", zap.String("userID", id), zap.Error(err))
		return nil, err
	}
	if s.listener != nil {
		s.listener.ProfileUpdated(u)
	}
	s.logger.Info("Profile updated", zap.String("userID", id))
	return u, nil
}
