package handler

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/coffee-machine/internal/auth"
	"github.com/mmeshcher/coffee-machine/internal/middleware"
	"github.com/mmeshcher/coffee-machine/internal/model"
	"github.com/mmeshcher/coffee-machine/internal/repository"
	"github.com/mmeshcher/coffee-machine/internal/service"
)

type stubService struct {
	pingErr error

	token   string
	authErr error

	user    *model.User
	userErr error
	users   []model.User

	coffee      *model.Coffee
	coffeeErr   error
	coffeesPage model.ItemsPage[model.Coffee]

	receipt    *service.Receipt
	orderErr   error
	order      *model.Order
	madeOrders int

	statistic      *model.Statistic
	statisticErr   error
	statisticsPage model.ItemsPage[model.Statistic]

	deleteErr error

	gotFilter string
	gotPage   model.Page
	gotUserID *uuid.UUID
	gotAmount decimal.Decimal
}

func (s *stubService) Ping(context.Context) error { return s.pingErr }

func (s *stubService) Authenticate(context.Context, string, string) (string, error) {
	return s.token, s.authErr
}

func (s *stubService) RegisterUser(_ context.Context, in service.UserInput) (*model.User, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	return &model.User{ID: uuid.New(), Login: in.Login, Name: in.Name, PasswordHash: "hash"}, nil
}

func (s *stubService) UpdateUser(context.Context, uuid.UUID, service.UserInput) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) TopUpBalance(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*model.User, error) {
	s.gotAmount = amount
	return s.user, s.userErr
}

func (s *stubService) GetUser(context.Context, uuid.UUID) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) ListUsers(context.Context) ([]model.User, error) { return s.users, s.userErr }

func (s *stubService) DeleteUser(context.Context, uuid.UUID) error { return s.deleteErr }

func (s *stubService) CreateCoffee(context.Context, string, decimal.Decimal) (*model.Coffee, error) {
	return s.coffee, s.coffeeErr
}

func (s *stubService) UpdateCoffee(context.Context, uuid.UUID, string, decimal.Decimal) (*model.Coffee, error) {
	return s.coffee, s.coffeeErr
}

func (s *stubService) GetCoffee(context.Context, uuid.UUID) (*model.Coffee, error) {
	return s.coffee, s.coffeeErr
}

func (s *stubService) ListCoffees(_ context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error) {
	s.gotFilter, s.gotPage = filter, page
	return s.coffeesPage, s.coffeeErr
}

func (s *stubService) DeleteCoffee(context.Context, uuid.UUID) error { return s.deleteErr }

func (s *stubService) MakeOrder(_ context.Context, _ uuid.UUID, userID *uuid.UUID) (*service.Receipt, error) {
	s.madeOrders++
	s.gotUserID = userID
	return s.receipt, s.orderErr
}

func (s *stubService) UpdateOrder(context.Context, uuid.UUID, uuid.UUID, *uuid.UUID) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) GetOrder(context.Context, uuid.UUID) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) ListOrders(context.Context) ([]model.Order, error) { return nil, s.orderErr }

func (s *stubService) DeleteOrder(context.Context, uuid.UUID) error { return s.deleteErr }

func (s *stubService) CreateStatistic(context.Context, uuid.UUID, decimal.Decimal) (*model.Statistic, error) {
	return s.statistic, s.statisticErr
}

func (s *stubService) UpdateStatistic(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal) (*model.Statistic, error) {
	return s.statistic, s.statisticErr
}

func (s *stubService) GetStatistic(context.Context, uuid.UUID) (*model.Statistic, error) {
	return s.statistic, s.statisticErr
}

func (s *stubService) GetStatisticByCoffee(context.Context, uuid.UUID) (*model.Statistic, error) {
	return s.statistic, s.statisticErr
}

func (s *stubService) ListStatistics(_ context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error) {
	s.gotFilter, s.gotPage = filter, page
	return s.statisticsPage, s.statisticErr
}

func (s *stubService) DeleteStatistic(context.Context, uuid.UUID) error { return s.deleteErr }

type testServer struct {
	router http.Handler
	token  string
}

func newTestServer(t *testing.T, svc Service) *testServer {
	t.Helper()
	return newTestServerWithLogger(t, svc, zap.NewNop())
}

func newTestServerWithLogger(t *testing.T, svc Service, logger *zap.Logger) *testServer {
	t.Helper()

	tokens, err := auth.NewTokens("test-secret", "coffee-machine", "coffee-machine-clients", time.Hour)
	require.NoError(t, err)

	token, err := tokens.Issue(uuid.New(), "tester")
	require.NoError(t, err)

	h := NewHandler(svc, logger, middleware.NewAuthMiddleware(tokens))
	return &testServer{router: h.SetupRouter(), token: token}
}

func (ts *testServer) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		authErr    error
		wantStatus int
	}{
		{name: "success", body: `{"login":"alice","password":"secret"}`, wantStatus: http.StatusOK},
		{name: "invalid credentials", body: `{"login":"alice","password":"wrong"}`, authErr: service.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "too short login", body: `{"login":"a","password":"secret"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"login":`, wantStatus: http.StatusBadRequest},
		{name: "storage failure", body: `{"login":"alice","password":"secret"}`, authErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubService{token: "jwt", authErr: tt.authErr})

			rec := ts.do(http.MethodPost, "/api/authentication", tt.body, false)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var resp tokenResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "jwt", resp.AccessToken)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	rec := ts.do(http.MethodPost, "/api/users", `{"login":"alice","password":"secret","name":"Alice"}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "hash")

	conflict := newTestServer(t, &stubService{userErr: repository.ErrUserExists})
	rec = conflict.do(http.MethodPost, "/api/users", `{"login":"alice","password":"secret","name":"Alice"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	for _, path := range []string{"/api/users", "/api/orders", "/api/coffees/" + uuid.NewString()} {
		rec := ts.do(http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMakeOrder_ReturnsOrderedChange(t *testing.T) {
	change, _ := service.Decompose(decimal.NewFromInt(1700))
	svc := &stubService{receipt: &service.Receipt{Change: change}}
	ts := newTestServer(t, svc)

	userID := uuid.New()
	body := `{"coffee":{"id":"` + uuid.NewString() + `"},"user":{"id":"` + userID.String() + `"}}`
	rec := ts.do(http.MethodPost, "/api/orders", body, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"5000":0,"2000":0,"1000":1,"500":1,"200":1,"100":0,"50":0}`, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Body.String(), `{"5000":0,"2000":0,"1000":1`))
	require.NotNil(t, svc.gotUserID)
	assert.Equal(t, userID, *svc.gotUserID)
}

func TestMakeOrder_Errors(t *testing.T) {
	coffee := `{"coffee":{"id":"` + uuid.NewString() + `"},"user":null}`

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "insufficient balance", body: coffee, err: service.ErrInsufficientBalance, wantStatus: http.StatusBadRequest},
		{name: "missing reference", body: coffee, err: service.ErrReferenceMissing, wantStatus: http.StatusNotFound},
		{name: "no coffee id", body: `{"coffee":{}}`, wantStatus: http.StatusBadRequest},
		{name: "persistence failure", body: coffee, err: errors.New("commit failed"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubService{orderErr: tt.err})
			rec := ts.do(http.MethodPost, "/api/orders", tt.body, true)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUpdateOrder_NilIDPlacesOrder(t *testing.T) {
	svc := &stubService{receipt: &service.Receipt{Change: service.EmptyChange()}}
	ts := newTestServer(t, svc)

	body := `{"coffee":{"id":"` + uuid.NewString() + `"}}`
	rec := ts.do(http.MethodPut, "/api/orders/"+uuid.Nil.String(), body, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.madeOrders)
	assert.Nil(t, svc.gotUserID)
}

func TestGetOrder(t *testing.T) {
	user := &model.User{ID: uuid.New(), Login: "alice", Balance: decimal.NewFromInt(20)}
	order := &model.Order{ID: uuid.New(), Coffee: model.Coffee{ID: uuid.New(), Name: "Latte", Price: decimal.NewFromInt(300)}, User: user}
	ts := newTestServer(t, &stubService{order: order})

	rec := ts.do(http.MethodGet, "/api/orders/"+order.ID.String(), "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID     uuid.UUID `json:"id"`
		Coffee struct {
			Name  string          `json:"name"`
			Price decimal.Decimal `json:"price"`
		} `json:"coffee"`
		User *struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, order.ID, resp.ID)
	assert.Equal(t, "Latte", resp.Coffee.Name)
	assert.True(t, decimal.NewFromInt(300).Equal(resp.Coffee.Price))
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Login)

	rec = ts.do(http.MethodGet, "/api/orders/not-a-uuid", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopUpBalance(t *testing.T) {
	user := &model.User{ID: uuid.New(), Login: "alice", Balance: decimal.NewFromInt(1000)}
	svc := &stubService{user: user}
	ts := newTestServer(t, svc)

	rec := ts.do(http.MethodPut, "/api/users/"+user.ID.String()+"/balance", "1000", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decimal.NewFromInt(1000).Equal(svc.gotAmount))

	invalid := newTestServer(t, &stubService{userErr: service.ErrInvalidBill})
	rec = invalid.do(http.MethodPut, "/api/users/"+user.ID.String()+"/balance", "1234", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/users/"+user.ID.String()+"/balance", `"abc"`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCoffees_Pagination(t *testing.T) {
	svc := &stubService{coffeesPage: model.ItemsPage[model.Coffee]{
		Items:           []model.Coffee{{ID: uuid.New(), Name: "Latte", Price: decimal.NewFromInt(300)}},
		TotalCountItems: 7,
	}}
	ts := newTestServer(t, svc)

	rec := ts.do(http.MethodGet, "/api/coffees?filter=lat&currentNumberPage=2&countItemsPage=5", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "lat", svc.gotFilter)
	assert.Equal(t, model.Page{Number: 2, Size: 5}, svc.gotPage)

	var resp struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		TotalCountItems int `json:"totalCountItems"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 7, resp.TotalCountItems)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Latte", resp.Items[0].Name)
}

func TestListStatistics_EmptyItemsArray(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	rec := ts.do(http.MethodGet, "/api/statistics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"totalCountItems":0}`, rec.Body.String())
}

func TestCreateCoffee_Validation(t *testing.T) {
	coffee := &model.Coffee{ID: uuid.New(), Name: "Latte", Price: decimal.NewFromInt(300)}
	ts := newTestServer(t, &stubService{coffee: coffee})

	rec := ts.do(http.MethodPost, "/api/coffees", `{"name":"Latte","price":300}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/api/coffees", `{"name":"Latte","price":0}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/coffees", `{"name":"L","price":300}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	subCent := newTestServer(t, &stubService{coffeeErr: service.ErrInvalidPrice})
	rec = subCent.do(http.MethodPost, "/api/coffees", `{"name":"Free","price":0.004}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = subCent.do(http.MethodPut, "/api/coffees/"+coffee.ID.String(), `{"name":"Free","price":0.004}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoneyIsRenderedAsJSONNumber(t *testing.T) {
	coffee := &model.Coffee{ID: uuid.New(), Name: "Latte", Price: decimal.RequireFromString("350.50")}
	ts := newTestServer(t, &stubService{coffee: coffee})

	rec := ts.do(http.MethodGet, "/api/coffees/"+coffee.ID.String(), "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":350.5`)
	assert.NotContains(t, rec.Body.String(), `"price":"`)
}

func TestResponseCompression(t *testing.T) {
	svc := &stubService{coffeesPage: model.ItemsPage[model.Coffee]{
		Items:           []model.Coffee{{ID: uuid.New(), Name: "Latte", Price: decimal.NewFromInt(300)}},
		TotalCountItems: 1,
	}}
	ts := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/coffees", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"id":"`+svc.coffeesPage.Items[0].ID.String()+`","name":"Latte","price":300}],"totalCountItems":1}`, string(body))

	req = httptest.NewRequest(http.MethodDelete, "/api/coffees/"+uuid.NewString(), nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestInternalErrorLogsCaller(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ts := newTestServerWithLogger(t, &stubService{orderErr: errors.New("connection reset")}, zap.New(core))

	rec := ts.do(http.MethodGet, "/api/orders", "", true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tester", fields["caller_login"])
	assert.NotEmpty(t, fields["caller_id"])
}

func TestDeleteCoffee(t *testing.T) {
	ts := newTestServer(t, &stubService{})
	rec := ts.do(http.MethodDelete, "/api/coffees/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	inUse := newTestServer(t, &stubService{deleteErr: repository.ErrInUse})
	rec = inUse.do(http.MethodDelete, "/api/coffees/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	missing := newTestServer(t, &stubService{deleteErr: repository.ErrNotFound})
	rec = missing.do(http.MethodDelete, "/api/coffees/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatisticByCoffee(t *testing.T) {
	st := &model.Statistic{ID: uuid.New(), Coffee: model.Coffee{ID: uuid.New(), Name: "Latte"}, Total: decimal.NewFromInt(600)}
	ts := newTestServer(t, &stubService{statistic: st})

	rec := ts.do(http.MethodGet, "/api/statistics/coffee/"+st.Coffee.ID.String(), "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID    uuid.UUID       `json:"id"`
		Total decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, st.ID, resp.ID)
	assert.True(t, decimal.NewFromInt(600).Equal(resp.Total))

	missing := newTestServer(t, &stubService{statisticErr: service.ErrReferenceMissing})
	rec = missing.do(http.MethodPost, "/api/statistics", `{"coffee":{"id":"`+uuid.NewString()+`"},"total":0}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPing(t *testing.T) {
	ok := newTestServer(t, &stubService{})
	assert.Equal(t, http.StatusOK, ok.do(http.MethodGet, "/ping", "", false).Code)

	down := newTestServer(t, &stubService{pingErr: errors.New("connection refused")})
	assert.Equal(t, http.StatusInternalServerError, down.do(http.MethodGet, "/ping", "", false).Code)
}
