package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/coffee-machine/internal/auth"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

// Authenticate проверяет логин и пароль и возвращает токен доступа.
func (s *Service) Authenticate(ctx context.Context, login, password string) (string, error) {
	u, err := s.uow.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user by login: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(u.ID, u.Login)
}
