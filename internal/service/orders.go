package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-machine/internal/metrics"
	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

// Receipt содержит сохранённый заказ и выданную сдачу.
type Receipt struct {
	Order  model.Order
	Change model.Change
}

// MakeOrder оформляет покупку кофе. Если userID задан, цена списывается с баланса пользователя,
// а остаток баланса выдаётся сдачей. Все изменения фиксируются одной транзакцией.
func (s *Service) MakeOrder(ctx context.Context, coffeeID uuid.UUID, userID *uuid.UUID) (*Receipt, error) {
	var receipt *Receipt

	err := s.uow.InTx(ctx, func(store repository.Store) error {
		// Блокировка кофе сериализует создание его статистики.
		coffee, err := store.GetCoffeeForUpdate(ctx, coffeeID)
		if err != nil {
			return referenceErr("coffee", coffeeID, err)
		}

		var user *model.User
		if userID != nil {
			if user, err = store.GetUserForUpdate(ctx, *userID); err != nil {
				return referenceErr("user", *userID, err)
			}
			if user.Balance.LessThan(coffee.Price) {
				return fmt.Errorf("%w: balance %s, price %s", ErrInsufficientBalance, user.Balance, coffee.Price)
			}
			if err := AdjustBalance(ctx, store, user, coffee.Price, false); err != nil {
				return err
			}
		}

		order := &model.Order{Coffee: *coffee, User: user}
		if err := store.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		st, err := FindOrCreateStatistic(ctx, store, coffee.ID)
		if err != nil {
			return err
		}
		if err := IncreaseTotal(ctx, store, st, *coffee); err != nil {
			return err
		}

		change := EmptyChange()
		if user != nil {
			if change, err = CalculateChange(ctx, store, user); err != nil {
				return err
			}
			orderUser := *user
			order.User = &orderUser
		}

		receipt = &Receipt{Order: *order, Change: change}
		return nil
	})
	if err != nil {
		metrics.RecordOrder(orderOutcome(err))
		return nil, err
	}

	if userID == nil {
		metrics.RecordOrder(metrics.OutcomeAnonymous)
	} else {
		metrics.RecordOrder(metrics.OutcomeSettled)
	}
	for _, bc := range receipt.Change {
		metrics.RecordBills(int64(bc.Bill), bc.Count)
	}

	s.logger.Debug("order settled",
		zap.String("order_id", receipt.Order.ID.String()),
		zap.String("coffee_id", coffeeID.String()),
		zap.Bool("anonymous", userID == nil),
		zap.String("change", receipt.Change.Sum().String()),
	)

	return receipt, nil
}

func orderOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ErrReferenceMissing):
		return metrics.OutcomeMissingRef
	default:
		return metrics.OutcomeFailed
	}
}

// UpdateOrder переназначает кофе и пользователя заказа. Баланс и статистика не меняются.
func (s *Service) UpdateOrder(ctx context.Context, id, coffeeID uuid.UUID, userID *uuid.UUID) (*model.Order, error) {
	var order *model.Order

	err := s.uow.InTx(ctx, func(store repository.Store) error {
		var err error
		if order, err = store.GetOrder(ctx, id); err != nil {
			return err
		}

		coffee, err := store.GetCoffee(ctx, coffeeID)
		if err != nil {
			return referenceErr("coffee", coffeeID, err)
		}
		order.Coffee = *coffee

		order.User = nil
		if userID != nil {
			if order.User, err = store.GetUser(ctx, *userID); err != nil {
				return referenceErr("user", *userID, err)
			}
		}

		if err := store.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrder удаляет заказ. Статистика продаж не пересчитывается.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.uow.DeleteOrder(ctx, id)
}

// GetOrder возвращает заказ вместе с кофе и пользователем.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.uow.GetOrder(ctx, id)
}

// ListOrders возвращает все заказы.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.uow.ListOrders(ctx)
}
