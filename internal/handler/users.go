package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-machine/internal/service"
)

// CreateUser регистрирует пользователя.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.RegisterUser(r.Context(), service.UserInput(req))
	if err != nil {
		h.writeError(w, r, err, "register user error", zap.String("login", req.Login))
		return
	}

	h.writeJSON(w, http.StatusCreated, toUserResponse(*u))
}

// UpdateUser меняет данные пользователя. Нулевой идентификатор создаёт нового пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}

	if id == uuid.Nil {
		u, err := h.service.RegisterUser(r.Context(), service.UserInput(req))
		if err != nil {
			h.writeError(w, r, err, "register user error", zap.String("login", req.Login))
			return
		}
		h.writeJSON(w, http.StatusCreated, toUserResponse(*u))
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, service.UserInput(req))
	if err != nil {
		h.writeError(w, r, err, "update user error", zap.String("userID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(*u))
}

// TopUpBalance пополняет баланс пользователя одной купюрой. Тело запроса содержит JSON-число.
func (h *Handler) TopUpBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var amount decimal.Decimal
	if err := json.NewDecoder(r.Body).Decode(&amount); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	u, err := h.service.TopUpBalance(r.Context(), id, amount)
	if err != nil {
		h.writeError(w, r, err, "top up balance error", zap.String("userID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(*u))
}

// GetUser возвращает пользователя.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "get user error", zap.String("userID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(*u))
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list users error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete user error", zap.String("userID", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
