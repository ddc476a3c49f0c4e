// Package repository содержит контракты хранилища и их реализации (PostgreSQL и память).
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

var (
	// ErrNotFound возвращается, если сущность с заданным идентификатором не найдена.
	ErrNotFound = errors.New("entity not found")
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("user already exists")
	// ErrInUse возвращается при удалении сущности, на которую ссылаются другие записи.
	ErrInUse = errors.New("entity is referenced by other records")
)

// CoffeeStore описывает доступ к видам кофе.
type CoffeeStore interface {
	GetCoffee(ctx context.Context, id uuid.UUID) (*model.Coffee, error)
	// GetCoffeeForUpdate возвращает кофе и блокирует его строку до конца транзакции.
	// Продажи одного кофе выполняются по очереди.
	GetCoffeeForUpdate(ctx context.Context, id uuid.UUID) (*model.Coffee, error)
	CreateCoffee(ctx context.Context, c *model.Coffee) error
	UpdateCoffee(ctx context.Context, c *model.Coffee) error
	DeleteCoffee(ctx context.Context, id uuid.UUID) error
	ListCoffees(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error)
}

// UserStore описывает доступ к пользователям.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetUserForUpdate загружает пользователя и блокирует его строку до конца транзакции.
	GetUserForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// OrderStore описывает доступ к заказам. Заказы возвращаются вместе с кофе и пользователем.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	UpdateOrder(ctx context.Context, o *model.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context) ([]model.Order, error)
}

// StatisticStore описывает доступ к статистикам продаж.
type StatisticStore interface {
	GetStatistic(ctx context.Context, id uuid.UUID) (*model.Statistic, error)
	// GetStatisticByCoffee возвращает самую раннюю статистику по кофе и блокирует её строку до конца транзакции.
	GetStatisticByCoffee(ctx context.Context, coffeeID uuid.UUID) (*model.Statistic, error)
	CreateStatistic(ctx context.Context, s *model.Statistic) error
	UpdateStatistic(ctx context.Context, s *model.Statistic) error
	DeleteStatistic(ctx context.Context, id uuid.UUID) error
	ListStatistics(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error)
}

// Store объединяет хранилища всех сущностей.
type Store interface {
	CoffeeStore
	UserStore
	OrderStore
	StatisticStore
}

// UnitOfWork группирует хранилища под одной фиксацией изменений.
// Вызовы методов Store вне InTx фиксируются сразу.
type UnitOfWork interface {
	Store
	// InTx выполняет fn в транзакции. Изменения фиксируются, только если fn вернула nil.
	InTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}
