package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

type refRequest struct {
	ID uuid.UUID `json:"id"`
}

type userRequest struct {
	Login    string `json:"login" validate:"required,min=2,max=30"`
	Password string `json:"password" validate:"required,min=2,max=30"`
	Name     string `json:"name" validate:"required,min=2,max=30"`
}

type userResponse struct {
	ID      uuid.UUID       `json:"id"`
	Login   string          `json:"login"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Login: u.Login, Name: u.Name, Balance: u.Balance}
}

type coffeeRequest struct {
	Name  string          `json:"name" validate:"required,min=2,max=30"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

type coffeeResponse struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func toCoffeeResponse(c model.Coffee) coffeeResponse {
	return coffeeResponse{ID: c.ID, Name: c.Name, Price: c.Price}
}

type orderRequest struct {
	Coffee refRequest  `json:"coffee"`
	User   *refRequest `json:"user"`
}

func (o orderRequest) userID() *uuid.UUID {
	if o.User == nil || o.User.ID == uuid.Nil {
		return nil
	}
	id := o.User.ID
	return &id
}

type orderResponse struct {
	ID     uuid.UUID      `json:"id"`
	Coffee coffeeResponse `json:"coffee"`
	User   *userResponse  `json:"user"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{ID: o.ID, Coffee: toCoffeeResponse(o.Coffee)}
	if o.User != nil {
		u := toUserResponse(*o.User)
		resp.User = &u
	}
	return resp
}

type statisticRequest struct {
	Coffee refRequest      `json:"coffee"`
	Total  decimal.Decimal `json:"total" validate:"gte=0"`
}

type statisticResponse struct {
	ID     uuid.UUID       `json:"id"`
	Coffee coffeeResponse  `json:"coffee"`
	Total  decimal.Decimal `json:"total"`
}

func toStatisticResponse(s model.Statistic) statisticResponse {
	return statisticResponse{ID: s.ID, Coffee: toCoffeeResponse(s.Coffee), Total: s.Total}
}

type pageResponse[T any] struct {
	Items           []T `json:"items"`
	TotalCountItems int `json:"totalCountItems"`
}

func toPageResponse[E, T any](page model.ItemsPage[E], conv func(E) T) pageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, conv(e))
	}
	return pageResponse[T]{Items: items, TotalCountItems: page.TotalCountItems}
}

// pageQuery читает фильтр и параметры страницы. Некорректные числа заменяются значениями по умолчанию.
func pageQuery(r *http.Request) (string, model.Page) {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("currentNumberPage"))
	size, _ := strconv.Atoi(q.Get("countItemsPage"))
	return q.Get("filter"), model.Page{Number: number, Size: size}
}
