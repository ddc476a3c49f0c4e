// Package service реализует бизнес-логику кофемашины: расчёт заказов, баланс пользователей,
// статистику продаж и аутентификацию.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-machine/internal/repository"
)

var (
	// ErrReferenceMissing возвращается, если кофе или пользователь, на которых ссылается запрос, не существуют.
	ErrReferenceMissing = errors.New("referenced entity missing")
	// ErrInsufficientBalance возвращается, если баланса пользователя не хватает на покупку.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidBill возвращается, если сумма пополнения не совпадает ни с одним номиналом.
	ErrInvalidBill = errors.New("amount is not a bill")
	// ErrInvalidPrice возвращается, если цена не положительна или точнее копейки.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenIssuer выпускает токен доступа для пользователя.
type TokenIssuer interface {
	Issue(userID uuid.UUID, login string) (string, error)
}

// Service содержит бизнес-логику кофемашины.
type Service struct {
	uow    repository.UnitOfWork
	tokens TokenIssuer
	logger *zap.Logger
}

// NewService создаёт новый сервис поверх хранилища и выпускателя токенов.
func NewService(uow repository.UnitOfWork, tokens TokenIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		uow:    uow,
		tokens: tokens,
		logger: logger,
	}
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.uow.Ping(ctx)
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.uow != nil {
		return s.uow.Close()
	}
	return nil
}

func referenceErr(entity string, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrReferenceMissing, entity, id)
	}
	return fmt.Errorf("get %s: %w", entity, err)
}
