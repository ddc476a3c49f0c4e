// Package model содержит доменные сущности кофемашины.
package model

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User представляет покупателя кофемашины с денежным балансом.
type User struct {
	ID           uuid.UUID
	Login        string
	PasswordHash string
	Name         string
	Balance      decimal.Decimal
}

// Coffee описывает вид кофе и его цену.
type Coffee struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Order описывает покупку кофе. Пользователь может отсутствовать (анонимный заказ).
type Order struct {
	ID     uuid.UUID
	Coffee Coffee
	User   *User
}

// Statistic содержит накопленную выручку по одному виду кофе.
type Statistic struct {
	ID     uuid.UUID
	Coffee Coffee
	Total  decimal.Decimal
}

// ItemsPage содержит страницу элементов и общее количество элементов, подходящих под фильтр.
type ItemsPage[T any] struct {
	Items           []T
	TotalCountItems int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page задаёт номер страницы (с единицы) и её размер.
type Page struct {
	Number int
	Size   int
}

// Normalize приводит параметры страницы к допустимым значениям.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	// Смещение (Number-1)*Size должно помещаться в int.
	if maxNumber := math.MaxInt / p.Size; p.Number > maxNumber {
		p.Number = maxNumber
	}
	return p
}

// Offset возвращает количество элементов, которые нужно пропустить.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
