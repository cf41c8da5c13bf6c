package service

import (
	"washbot/pkg/logger"
	"washbot/pkg/notifier"
	"washbot/storage"
)

type IServiceManager interface {
	User() UserService
	Address() AddressService
	Order() OrderService
}

type service struct {
	userService    UserService
	addressService AddressService
	orderService   OrderService
}

func New(stg storage.IStorage, cache storage.IRoleCache, events storage.IEventBus, mailer notifier.Notifier, log logger.ILogger) IServiceManager {
	return &service{
		userService:    NewUserService(stg, cache, log),
		addressService: NewAddressService(stg, log),
		orderService:   NewOrderService(stg, events, mailer, log),
	}
}

func (s *service) User() UserService {
	return s.userService
}

func (s *service) Address() AddressService {
	return s.addressService
}

func (s *service) Order() OrderService {
	return s.orderService
}
