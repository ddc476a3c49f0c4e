package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/auth"
	"github.com/mmeshcher/coffee-machine/internal/metrics"
	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
	"github.com/mmeshcher/coffee-machine/internal/validation"
)

// UserInput содержит регистрационные данные пользователя.
type UserInput struct {
	Login    string
	Password string
	Name     string
}

// RegisterUser создаёт пользователя с нулевым балансом.
func (s *Service) RegisterUser(ctx context.Context, in UserInput) (*model.User, error) {
	_, err := s.uow.GetUserByLogin(ctx, in.Login)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", repository.ErrUserExists, in.Login)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check login: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Login:        in.Login,
		PasswordHash: hash,
		Name:         in.Name,
		Balance:      decimal.Zero,
	}
	if err := s.uow.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser меняет логин, пароль и имя пользователя. Баланс не меняется.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UserInput) (*model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var u *model.User
	err = s.uow.InTx(ctx, func(store repository.Store) error {
		var err error
		if u, err = store.GetUserForUpdate(ctx, id); err != nil {
			return err
		}

		u.Login = in.Login
		u.PasswordHash = hash
		u.Name = in.Name
		return store.UpdateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// TopUpBalance зачисляет на баланс пользователя одну купюру.
func (s *Service) TopUpBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*model.User, error) {
	if !validation.IsBill(amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBill, amount)
	}

	var u *model.User
	err := s.uow.InTx(ctx, func(store repository.Store) error {
		var err error
		if u, err = store.GetUserForUpdate(ctx, id); err != nil {
			return err
		}
		return AdjustBalance(ctx, store, u, amount, true)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTopUp()
	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.uow.GetUser(ctx, id)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.uow.ListUsers(ctx)
}

// DeleteUser удаляет пользователя. Его заказы остаются анонимными.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.uow.DeleteUser(ctx, id)
}
