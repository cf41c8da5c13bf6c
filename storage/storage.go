package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/models"
)

// ErrDuplicateOrderNumber is returned by IOrderStorage.Create when the
// generated order number collides with an existing row. The only error the
// service layer retries.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// IRoleCache is the explicit profile/role cache consulted at session start.
// Entries expire on their own TTL and are invalidated explicitly on role
// change, sign-out and account erasure.
type IRoleCache interface {
	GetProfile(ctx context.Context, teleID int64) (*models.CachedProfile, error)
	SetProfile(ctx context.Context, user *models.User) error
	Invalidate(ctx context.Context, teleID int64) error
}

// IEventBus is the push channel order list views subscribe to.
type IEventBus interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error
	SubscribeOrderEvents(ctx context.Context, fn func(models.OrderEvent)) error
}

type IStorage interface {
	User() IUserStorage
	Address() IAddressStorage
	Service() IServiceStorage
	Booking() IBookingStorage
	Order() IOrderStorage
	Audit() IAuditStorage
	Close()
	GetPool() *pgxpool.Pool
}

type IUserStorage interface {
	GetOrCreate(ctx context.Context, teleID int64, username, fullname string) (*models.User, error)
	Get(ctx context.Context, teleID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	UpdatePhone(ctx context.Context, teleID int64, phone string) error
	UpdateEmail(ctx context.Context, teleID int64, email string) error
	UpdateStatus(ctx context.Context, teleID int64, status string) error
	UpdateRole(ctx context.Context, teleID int64, role models.Role) error
	EraseAccount(ctx context.Context, userID int64) error
	GetTotalUsers(ctx context.Context) (int, error)
}

type IAddressStorage interface {
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	GetByUser(ctx context.Context, userID int64) ([]*models.Address, error)
	GetOwned(ctx context.Context, id uuid.UUID, userID int64) (*models.Address, error)
	SetDefault(ctx context.Context, id uuid.UUID, userID int64) error
	Delete(ctx context.Context, id uuid.UUID, userID int64) error
}

type IServiceStorage interface {
	GetActive(ctx context.Context) ([]*models.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	FirstActive(ctx context.Context) (*models.Service, error)
	Create(ctx context.Context, name string, pricePerKg float64) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type IBookingStorage interface {
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type IOrderStorage interface {
	NextOrderNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []*models.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetAll(ctx context.Context) ([]*models.Order, error)
	GetByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]*models.OrderItem, error)
	UpdateStatus(ctx context.Context, order *models.Order) error
	UpdateItemWeight(ctx context.Context, itemID uuid.UUID, weight float64) error
	Cancel(ctx context.Context, order *models.Order) error
	GetActiveCount(ctx context.Context) (int, error)
	GetTotalCount(ctx context.Context) (int, error)
}

type IAuditStorage interface {
	Append(ctx context.Context, entry *models.AdminLog) error
	Recent(ctx context.Context, limit int) ([]*models.AdminLog, error)
	LogEmail(ctx context.Context, entry *models.EmailLog) error
}
