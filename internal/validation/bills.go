// Package validation содержит функции валидации входных данных.
package validation

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

// IsBill проверяет, что сумма в точности равна одному из номиналов купюр.
// Дробные суммы номиналом не считаются.
func IsBill(amount decimal.Decimal) bool {
	for _, b := range model.Bills {
		if amount.Equal(b.Decimal()) {
			return true
		}
	}
	return false
}
