package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) makeOrder(w http.ResponseWriter, r *http.Request, req orderRequest) {
	receipt, err := h.service.MakeOrder(r.Context(), req.Coffee.ID, req.userID())
	if err != nil {
		h.writeError(w, r, err, "make order error", zap.String("coffeeID", req.Coffee.ID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, receipt.Change)
}

// MakeOrder оформляет покупку и возвращает сдачу по номиналам.
func (h *Handler) MakeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Coffee.ID == uuid.Nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.makeOrder(w, r, req)
}

// UpdateOrder переназначает кофе и пользователя заказа. Нулевой идентификатор оформляет новый заказ.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Coffee.ID == uuid.Nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if id == uuid.Nil {
		h.makeOrder(w, r, req)
		return
	}

	o, err := h.service.UpdateOrder(r.Context(), id, req.Coffee.ID, req.userID())
	if err != nil {
		h.writeError(w, r, err, "update order error", zap.String("orderID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// GetOrder возвращает заказ.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "get order error", zap.String("orderID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// ListOrders возвращает все заказы.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list orders error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteOrder удаляет заказ.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete order error", zap.String("orderID", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
