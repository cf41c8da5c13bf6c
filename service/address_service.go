package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

var ErrInvalidAddressLabel = errors.New("address label must be home, work or other")

type AddressService interface {
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
	List(ctx context.Context, userID int64) ([]*models.Address, error)
	SetDefault(ctx context.Context, id uuid.UUID, userID int64) error
	Delete(ctx context.Context, id uuid.UUID, userID int64) error
}

type addressService struct {
	stg storage.IAddressStorage
	log logger.ILogger
}

func NewAddressService(stg storage.IStorage, log logger.ILogger) AddressService {
	return &addressService{
		stg: stg.Address(),
		log: log,
	}
}

func (s *addressService) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	if !models.ValidAddressLabel(addr.Label) {
		return nil, ErrInvalidAddressLabel
	}
	return s.stg.Create(ctx, addr)
}

func (s *addressService) List(ctx context.Context, userID int64) ([]*models.Address, error) {
	return s.stg.GetByUser(ctx, userID)
}

func (s *addressService) SetDefault(ctx context.Context, id uuid.UUID, userID int64) error {
	return s.stg.SetDefault(ctx, id, userID)
}

func (s *addressService) Delete(ctx context.Context, id uuid.UUID, userID int64) error {
	return s.stg.Delete(ctx, id, userID)
}
