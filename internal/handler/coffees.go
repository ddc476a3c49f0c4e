package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCoffee добавляет вид кофе.
func (h *Handler) CreateCoffee(w http.ResponseWriter, r *http.Request) {
	var req coffeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCoffee(r.Context(), req.Name, req.Price)
	if err != nil {
		h.writeError(w, r, err, "create coffee error", zap.String("name", req.Name))
		return
	}

	h.writeJSON(w, http.StatusCreated, toCoffeeResponse(*c))
}

// UpdateCoffee меняет вид кофе. Нулевой идентификатор создаёт новый.
func (h *Handler) UpdateCoffee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req coffeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if id == uuid.Nil {
		c, err := h.service.CreateCoffee(r.Context(), req.Name, req.Price)
		if err != nil {
			h.writeError(w, r, err, "create coffee error", zap.String("name", req.Name))
			return
		}
		h.writeJSON(w, http.StatusCreated, toCoffeeResponse(*c))
		return
	}

	c, err := h.service.UpdateCoffee(r.Context(), id, req.Name, req.Price)
	if err != nil {
		h.writeError(w, r, err, "update coffee error", zap.String("coffeeID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toCoffeeResponse(*c))
}

// GetCoffee возвращает вид кофе.
func (h *Handler) GetCoffee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetCoffee(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "get coffee error", zap.String("coffeeID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toCoffeeResponse(*c))
}

// ListCoffees возвращает страницу видов кофе.
func (h *Handler) ListCoffees(w http.ResponseWriter, r *http.Request) {
	filter, page := pageQuery(r)

	items, err := h.service.ListCoffees(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, r, err, "list coffees error", zap.String("filter", filter))
		return
	}

	h.writeJSON(w, http.StatusOK, toPageResponse(items, toCoffeeResponse))
}

// DeleteCoffee удаляет вид кофе.
func (h *Handler) DeleteCoffee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCoffee(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete coffee error", zap.String("coffeeID", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
