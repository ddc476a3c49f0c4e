package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateStatistic создаёт статистику по кофе.
func (h *Handler) CreateStatistic(w http.ResponseWriter, r *http.Request) {
	var req statisticRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.service.CreateStatistic(r.Context(), req.Coffee.ID, req.Total)
	if err != nil {
		h.writeError(w, r, err, "create statistic error", zap.String("coffeeID", req.Coffee.ID.String()))
		return
	}

	h.writeJSON(w, http.StatusCreated, toStatisticResponse(*st))
}

// UpdateStatistic меняет статистику. Нулевой идентификатор создаёт новую.
func (h *Handler) UpdateStatistic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req statisticRequest
	if !h.decode(w, r, &req) {
		return
	}

	if id == uuid.Nil {
		st, err := h.service.CreateStatistic(r.Context(), req.Coffee.ID, req.Total)
		if err != nil {
			h.writeError(w, r, err, "create statistic error", zap.String("coffeeID", req.Coffee.ID.String()))
			return
		}
		h.writeJSON(w, http.StatusCreated, toStatisticResponse(*st))
		return
	}

	st, err := h.service.UpdateStatistic(r.Context(), id, req.Coffee.ID, req.Total)
	if err != nil {
		h.writeError(w, r, err, "update statistic error", zap.String("statisticID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toStatisticResponse(*st))
}

// GetStatistic возвращает статистику.
func (h *Handler) GetStatistic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	st, err := h.service.GetStatistic(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "get statistic error", zap.String("statisticID", id.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toStatisticResponse(*st))
}

// GetStatisticByCoffee возвращает статистику по идентификатору кофе.
func (h *Handler) GetStatisticByCoffee(w http.ResponseWriter, r *http.Request) {
	coffeeID, ok := pathID(w, r)
	if !ok {
		return
	}

	st, err := h.service.GetStatisticByCoffee(r.Context(), coffeeID)
	if err != nil {
		h.writeError(w, r, err, "get statistic by coffee error", zap.String("coffeeID", coffeeID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toStatisticResponse(*st))
}

// ListStatistics возвращает страницу статистик.
func (h *Handler) ListStatistics(w http.ResponseWriter, r *http.Request) {
	filter, page := pageQuery(r)

	items, err := h.service.ListStatistics(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, r, err, "list statistics error", zap.String("filter", filter))
		return
	}

	h.writeJSON(w, http.StatusOK, toPageResponse(items, toStatisticResponse))
}

// DeleteStatistic удаляет статистику.
func (h *Handler) DeleteStatistic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteStatistic(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete statistic error", zap.String("statisticID", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
