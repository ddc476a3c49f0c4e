package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
)

func TestDecompose(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    map[model.Bill]int64
		residue string
	}{
		{
			name:    "greedy 1700",
			amount:  "1700",
			want:    map[model.Bill]int64{model.OneThousand: 1, model.FiveHundred: 1, model.TwoHundred: 1},
			residue: "0",
		},
		{
			name:   "every bill once",
			amount: "8850",
			want: map[model.Bill]int64{
				model.FiveThousand: 1, model.TwoThousand: 1, model.OneThousand: 1, model.FiveHundred: 1,
				model.TwoHundred: 1, model.OneHundred: 1, model.Fifty: 1,
			},
			residue: "0",
		},
		{
			name:    "several of the largest",
			amount:  "15000",
			want:    map[model.Bill]int64{model.FiveThousand: 3},
			residue: "0",
		},
		{
			name:    "residue below smallest bill",
			amount:  "1725",
			want:    map[model.Bill]int64{model.OneThousand: 1, model.FiveHundred: 1, model.TwoHundred: 1},
			residue: "25",
		},
		{
			name:    "fractional amount",
			amount:  "99.99",
			want:    map[model.Bill]int64{model.Fifty: 1},
			residue: "49.99",
		},
		{
			name:    "zero",
			amount:  "0",
			want:    map[model.Bill]int64{},
			residue: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, residue := Decompose(decimal.RequireFromString(tt.amount))

			require.Len(t, change, len(model.Bills))
			for i, bc := range change {
				assert.Equal(t, model.Bills[i], bc.Bill)
				assert.Equal(t, tt.want[bc.Bill], bc.Count, "bill %d", bc.Bill)
			}
			assert.True(t, decimal.RequireFromString(tt.residue).Equal(residue), "residue %s", residue)
		})
	}
}

func TestDecompose_ResidueBound(t *testing.T) {
	fifty := model.Fifty.Decimal()

	for cents := int64(0); cents <= 2_000_000; cents += 1_337 {
		amount := decimal.New(cents, -2)
		change, residue := Decompose(amount)

		sum := change.Sum()
		require.True(t, sum.LessThanOrEqual(amount), "amount %s", amount)
		require.True(t, amount.LessThan(sum.Add(fifty)), "amount %s", amount)
		require.True(t, sum.Add(residue).Equal(amount), "amount %s", amount)
	}
}

func TestEmptyChange(t *testing.T) {
	change := EmptyChange()

	require.Len(t, change, len(model.Bills))
	assert.True(t, change.Sum().IsZero())
}

func TestCalculateChange_LeavesResidue(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	u := model.User{Login: "buyer", Balance: decimal.RequireFromString("1070")}
	require.NoError(t, repo.CreateUser(ctx, &u))

	change, err := CalculateChange(ctx, repo, &u)
	require.NoError(t, err)
	assert.Equal(t, int64(1), change.Count(model.OneThousand))
	assert.Equal(t, int64(1), change.Count(model.Fifty))

	stored, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(stored.Balance))
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	u := model.User{Login: "buyer", Balance: decimal.NewFromInt(100)}
	require.NoError(t, repo.CreateUser(ctx, &u))

	require.NoError(t, AdjustBalance(ctx, repo, &u, decimal.NewFromInt(500), true))
	require.NoError(t, AdjustBalance(ctx, repo, &u, decimal.NewFromInt(250), false))

	stored, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(350).Equal(stored.Balance))
}
