package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

// FindOrCreateStatistic возвращает статистику по кофе, создавая её с нулевой выручкой при первой продаже.
func FindOrCreateStatistic(ctx context.Context, store repository.Store, coffeeID uuid.UUID) (*model.Statistic, error) {
	st, err := store.GetStatisticByCoffee(ctx, coffeeID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get statistic by coffee: %w", err)
	}

	coffee, err := store.GetCoffee(ctx, coffeeID)
	if err != nil {
		return nil, referenceErr("coffee", coffeeID, err)
	}

	st = &model.Statistic{Coffee: *coffee, Total: decimal.Zero}
	if err := store.CreateStatistic(ctx, st); err != nil {
		return nil, fmt.Errorf("create statistic: %w", err)
	}
	return st, nil
}

// IncreaseTotal добавляет цену кофе к выручке статистики и сохраняет её.
func IncreaseTotal(ctx context.Context, store repository.StatisticStore, st *model.Statistic, coffee model.Coffee) error {
	st.Total = st.Total.Add(coffee.Price)

	if err := store.UpdateStatistic(ctx, st); err != nil {
		return fmt.Errorf("increase statistic total: %w", err)
	}
	return nil
}

// GetStatistic возвращает статистику по идентификатору.
func (s *Service) GetStatistic(ctx context.Context, id uuid.UUID) (*model.Statistic, error) {
	return s.uow.GetStatistic(ctx, id)
}

// GetStatisticByCoffee возвращает статистику по идентификатору кофе.
func (s *Service) GetStatisticByCoffee(ctx context.Context, coffeeID uuid.UUID) (*model.Statistic, error) {
	return s.uow.GetStatisticByCoffee(ctx, coffeeID)
}

// ListStatistics возвращает страницу статистик, отсортированных по убыванию выручки.
func (s *Service) ListStatistics(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error) {
	return s.uow.ListStatistics(ctx, strings.TrimSpace(filter), page.Normalize())
}

// CreateStatistic создаёт статистику по существующему кофе.
func (s *Service) CreateStatistic(ctx context.Context, coffeeID uuid.UUID, total decimal.Decimal) (*model.Statistic, error) {
	var st *model.Statistic
	err := s.uow.InTx(ctx, func(store repository.Store) error {
		coffee, err := store.GetCoffee(ctx, coffeeID)
		if err != nil {
			return referenceErr("coffee", coffeeID, err)
		}

		st = &model.Statistic{Coffee: *coffee, Total: total}
		if err := store.CreateStatistic(ctx, st); err != nil {
			return fmt.Errorf("create statistic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateStatistic переназначает кофе и выручку статистики.
func (s *Service) UpdateStatistic(ctx context.Context, id, coffeeID uuid.UUID, total decimal.Decimal) (*model.Statistic, error) {
	var st *model.Statistic
	err := s.uow.InTx(ctx, func(store repository.Store) error {
		var err error
		if st, err = store.GetStatistic(ctx, id); err != nil {
			return err
		}

		coffee, err := store.GetCoffee(ctx, coffeeID)
		if err != nil {
			return referenceErr("coffee", coffeeID, err)
		}

		st.Coffee = *coffee
		st.Total = total
		if err := store.UpdateStatistic(ctx, st); err != nil {
			return fmt.Errorf("update statistic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStatistic удаляет статистику.
func (s *Service) DeleteStatistic(ctx context.Context, id uuid.UUID) error {
	return s.uow.DeleteStatistic(ctx, id)
}
