package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

// AdjustBalance зачисляет (isCredit) или списывает amount с баланса пользователя и сохраняет его.
// Достаточность средств проверяет вызывающий код.
func AdjustBalance(ctx context.Context, store repository.UserStore, user *model.User, amount decimal.Decimal, isCredit bool) error {
	if isCredit {
		user.Balance = user.Balance.Add(amount)
	} else {
		user.Balance = user.Balance.Sub(amount)
	}

	if err := store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
