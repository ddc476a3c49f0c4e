// Package handler содержит HTTP-обработчики API кофемашины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-machine/internal/middleware"
	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
	"github.com/mmeshcher/coffee-machine/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	Authenticate(ctx context.Context, login, password string) (string, error)

	RegisterUser(ctx context.Context, in service.UserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in service.UserInput) (*model.User, error)
	TopUpBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateCoffee(ctx context.Context, name string, price decimal.Decimal) (*model.Coffee, error)
	UpdateCoffee(ctx context.Context, id uuid.UUID, name string, price decimal.Decimal) (*model.Coffee, error)
	GetCoffee(ctx context.Context, id uuid.UUID) (*model.Coffee, error)
	ListCoffees(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error)
	DeleteCoffee(ctx context.Context, id uuid.UUID) error

	MakeOrder(ctx context.Context, coffeeID uuid.UUID, userID *uuid.UUID) (*service.Receipt, error)
	UpdateOrder(ctx context.Context, id, coffeeID uuid.UUID, userID *uuid.UUID) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	CreateStatistic(ctx context.Context, coffeeID uuid.UUID, total decimal.Decimal) (*model.Statistic, error)
	UpdateStatistic(ctx context.Context, id, coffeeID uuid.UUID, total decimal.Decimal) (*model.Statistic, error)
	GetStatistic(ctx context.Context, id uuid.UUID) (*model.Statistic, error)
	GetStatisticByCoffee(ctx context.Context, coffeeID uuid.UUID) (*model.Statistic, error)
	ListStatistics(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error)
	DeleteStatistic(ctx context.Context, id uuid.UUID) error
}

// Handler реализует HTTP-обработчики API кофемашины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate
}

func init() {
	// Денежные суммы передаются в JSON числами.
	decimal.MarshalJSONWithoutQuotes = true
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Денежные суммы проверяются тегами gt/gte как числа.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// decode читает JSON-тело запроса в dst и проверяет его теги validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeError переводит ошибку сервиса в код ответа. Непредвиденные ошибки журналируются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	var status int
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrReferenceMissing):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists), errors.Is(err, repository.ErrInUse):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInsufficientBalance), errors.Is(err, service.ErrInvalidBill),
		errors.Is(err, service.ErrInvalidPrice):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	default:
		fields = append(fields, zap.Error(err))
		if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			fields = append(fields, zap.String("caller_id", id.String()))
		}
		if login, ok := middleware.GetLoginFromContext(r.Context()); ok {
			fields = append(fields, zap.String("caller_login", login))
		}
		h.logger.Error(msg, fields...)
		status = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(status), status)
}

// Ping сообщает о доступности хранилища.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("ping storage error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type credentialsRequest struct {
	Login    string `json:"login" validate:"required,min=2,max=30"`
	Password string `json:"password" validate:"required,min=2,max=30"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Authenticate выдаёт токен доступа по логину и паролю.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err, "authenticate error", zap.String("login", req.Login))
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}
