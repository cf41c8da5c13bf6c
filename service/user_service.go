package service

import (
	"context"
	"fmt"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type UserService interface {
	GetOrCreate(ctx context.Context, teleID int64, username, fullname string) (*models.User, error)
	Get(ctx context.Context, teleID int64) (*models.User, error)
	UpdatePhone(ctx context.Context, teleID int64, phone string) error
	UpdateEmail(ctx context.Context, teleID int64, email string) error
	UpdateRole(ctx context.Context, teleID int64, role models.Role) error
	SignOut(ctx context.Context, teleID int64) error
	EraseAccount(ctx context.Context, user *models.User) error
}

type userService struct {
	stg   storage.IUserStorage
	cache storage.IRoleCache
	log   logger.ILogger
}

func NewUserService(stg storage.IStorage, cache storage.IRoleCache, log logger.ILogger) UserService {
	return &userService{
		stg:   stg.User(),
		cache: cache,
		log:   log,
	}
}

func (s *userService) GetOrCreate(ctx context.Context, teleID int64, username, fullname string) (*models.User, error) {
	user, err := s.stg.GetOrCreate(ctx, teleID, username, fullname)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProfile(ctx, user); err != nil {
		s.log.Warning("failed to cache profile", logger.Int64("telegram_id", teleID), logger.Error(err))
	}
	return user, nil
}

// Get resolves the profile cache-aside: a fresh-enough cached entry wins,
// otherwise the row is re-fetched and re-cached.
func (s *userService) Get(ctx context.Context, teleID int64) (*models.User, error) {
	entry, err := s.cache.GetProfile(ctx, teleID)
	if err != nil {
		s.log.Warning("profile cache read failed", logger.Int64("telegram_id", teleID), logger.Error(err))
	}
	if entry != nil {
		return &entry.User, nil
	}

	user, err := s.stg.Get(ctx, teleID)
	if err != nil || user == nil {
		return user, err
	}
	if err := s.cache.SetProfile(ctx, user); err != nil {
		s.log.Warning("failed to cache profile", logger.Int64("telegram_id", teleID), logger.Error(err))
	}
	return user, nil
}

func (s *userService) UpdatePhone(ctx context.Context, teleID int64, phone string) error {
	if err := s.stg.UpdatePhone(ctx, teleID, phone); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, teleID)
}

func (s *userService) UpdateEmail(ctx context.Context, teleID int64, email string) error {
	if err := s.stg.UpdateEmail(ctx, teleID, email); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, teleID)
}

func (s *userService) UpdateRole(ctx context.Context, teleID int64, role models.Role) error {
	if err := s.stg.UpdateRole(ctx, teleID, role); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, teleID)
}

func (s *userService) SignOut(ctx context.Context, teleID int64) error {
	return s.cache.Invalidate(ctx, teleID)
}

// EraseAccount cascades through everything the user owns and removes the
// account itself. The cache entry goes regardless of the outcome.
func (s *userService) EraseAccount(ctx context.Context, user *models.User) error {
	defer func() {
		if err := s.cache.Invalidate(ctx, user.TelegramID); err != nil {
			s.log.Warning("failed to invalidate erased profile", logger.Error(err))
		}
	}()

	if err := s.stg.EraseAccount(ctx, user.ID); err != nil {
		return fmt.Errorf("account erasure failed: %w", err)
	}
	s.log.Info("account erased", logger.Int64("user_id", user.ID))
	return nil
}
