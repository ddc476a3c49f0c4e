package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

const priceScale = 2

// checkPrice пропускает только положительные цены, записанные с точностью до копейки.
func checkPrice(price decimal.Decimal) error {
	if !price.IsPositive() || !price.Equal(price.Round(priceScale)) {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	return nil
}

// CreateCoffee добавляет вид кофе.
func (s *Service) CreateCoffee(ctx context.Context, name string, price decimal.Decimal) (*model.Coffee, error) {
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	c := &model.Coffee{Name: name, Price: price}
	if err := s.uow.CreateCoffee(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCoffee меняет название и цену кофе. Уже накопленная статистика не пересчитывается.
func (s *Service) UpdateCoffee(ctx context.Context, id uuid.UUID, name string, price decimal.Decimal) (*model.Coffee, error) {
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	c := &model.Coffee{ID: id, Name: name, Price: price}
	if err := s.uow.UpdateCoffee(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCoffee удаляет кофе, если на него не ссылаются заказы и статистика.
func (s *Service) DeleteCoffee(ctx context.Context, id uuid.UUID) error {
	return s.uow.DeleteCoffee(ctx, id)
}

// GetCoffee возвращает кофе по идентификатору.
func (s *Service) GetCoffee(ctx context.Context, id uuid.UUID) (*model.Coffee, error) {
	return s.uow.GetCoffee(ctx, id)
}

// ListCoffees возвращает страницу видов кофе, отсортированных по убыванию цены.
func (s *Service) ListCoffees(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error) {
	return s.uow.ListCoffees(ctx, strings.TrimSpace(filter), page.Normalize())
}
