package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

// Decompose жадно раскладывает сумму по номиналам от большего к меньшему.
// В разложении присутствуют все номиналы, в том числе с нулевым количеством.
// Остаток меньше самой мелкой купюры возвращается отдельно.
func Decompose(amount decimal.Decimal) (model.Change, decimal.Decimal) {
	change := make(model.Change, 0, len(model.Bills))
	remaining := amount

	for _, b := range model.Bills {
		var count int64
		if remaining.GreaterThanOrEqual(b.Decimal()) {
			q, r := remaining.QuoRem(b.Decimal(), 0)
			count = q.IntPart()
			remaining = r
		}
		change = append(change, model.BillCount{Bill: b, Count: count})
	}

	return change, remaining
}

// EmptyChange возвращает разложение без купюр.
func EmptyChange() model.Change {
	change, _ := Decompose(decimal.Zero)
	return change
}

// CalculateChange выдаёт весь баланс пользователя купюрами: баланс уменьшается до остатка,
// который нельзя выдать, и сохраняется.
func CalculateChange(ctx context.Context, store repository.UserStore, user *model.User) (model.Change, error) {
	change, residue := Decompose(user.Balance)
	user.Balance = residue

	if err := store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save change residue: %w", err)
	}
	return change, nil
}
