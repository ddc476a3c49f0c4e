package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

// moneyScale повторяет точность колонок NUMERIC(19, 2).
const moneyScale = 2

type row[T any] struct {
	value T
	seq   int64
}

type orderRow struct {
	id       uuid.UUID
	coffeeID uuid.UUID
	userID   *uuid.UUID
}

type statisticRow struct {
	id       uuid.UUID
	coffeeID uuid.UUID
	total    decimal.Decimal
}

type memoryState struct {
	seq        int64
	coffees    map[uuid.UUID]row[model.Coffee]
	users      map[uuid.UUID]row[model.User]
	orders     map[uuid.UUID]row[orderRow]
	statistics map[uuid.UUID]row[statisticRow]
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		seq:        s.seq,
		coffees:    maps.Clone(s.coffees),
		users:      maps.Clone(s.users),
		orders:     maps.Clone(s.orders),
		statistics: maps.Clone(s.statistics),
	}
}

func (s *memoryState) next() int64 {
	s.seq++
	return s.seq
}

// MemoryRepository хранит данные в памяти процесса. Транзакции выполняются
// последовательно над копией состояния, которая подменяет исходное при фиксации.
type MemoryRepository struct {
	*memoryStore
	mu sync.Mutex
}

var _ UnitOfWork = (*MemoryRepository)(nil)

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{}
	r.memoryStore = &memoryStore{
		mu: &r.mu,
		state: &memoryState{
			coffees:    make(map[uuid.UUID]row[model.Coffee]),
			users:      make(map[uuid.UUID]row[model.User]),
			orders:     make(map[uuid.UUID]row[orderRow]),
			statistics: make(map[uuid.UUID]row[statisticRow]),
		},
	}
	return r
}

// InTx выполняет fn над копией состояния и применяет её, только если fn вернула nil.
func (r *MemoryRepository) InTx(ctx context.Context, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryStore{state: r.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	*r.state = *tx.state
	return nil
}

// Ping всегда успешен.
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (r *MemoryRepository) Close() error {
	return nil
}

// memoryStore реализует Store над состоянием. mu равен nil внутри транзакции:
// блокировку удерживает InTx.
type memoryStore struct {
	mu    *sync.Mutex
	state *memoryState
}

func (s *memoryStore) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, page model.Page) []T {
	page = page.Normalize()
	from := min(page.Offset(), len(items))
	to := min(from+page.Size, len(items))
	return slices.Clone(items[from:to])
}

func (s *memoryStore) GetCoffee(_ context.Context, id uuid.UUID) (*model.Coffee, error) {
	defer s.lock()()

	r, ok := s.state.coffees[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := r.value
	return &c, nil
}

func (s *memoryStore) GetCoffeeForUpdate(ctx context.Context, id uuid.UUID) (*model.Coffee, error) {
	return s.GetCoffee(ctx, id)
}

func (s *memoryStore) CreateCoffee(_ context.Context, c *model.Coffee) error {
	defer s.lock()()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	stored := *c
	stored.Price = stored.Price.Round(moneyScale)
	s.state.coffees[c.ID] = row[model.Coffee]{value: stored, seq: s.state.next()}
	return nil
}

func (s *memoryStore) UpdateCoffee(_ context.Context, c *model.Coffee) error {
	defer s.lock()()

	r, ok := s.state.coffees[c.ID]
	if !ok {
		return ErrNotFound
	}
	r.value = *c
	r.value.Price = r.value.Price.Round(moneyScale)
	s.state.coffees[c.ID] = r
	return nil
}

func (s *memoryStore) DeleteCoffee(_ context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.state.coffees[id]; !ok {
		return ErrNotFound
	}
	for _, o := range s.state.orders {
		if o.value.coffeeID == id {
			return fmt.Errorf("%w: coffees %s", ErrInUse, id)
		}
	}
	for _, st := range s.state.statistics {
		if st.value.coffeeID == id {
			return fmt.Errorf("%w: coffees %s", ErrInUse, id)
		}
	}
	delete(s.state.coffees, id)
	return nil
}

func (s *memoryStore) ListCoffees(_ context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error) {
	defer s.lock()()

	rows := make([]row[model.Coffee], 0, len(s.state.coffees))
	for _, r := range s.state.coffees {
		if filter == "" || containsFold(r.value.Name, filter) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b row[model.Coffee]) int {
		if c := b.value.Price.Cmp(a.value.Price); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	items := make([]model.Coffee, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.value)
	}

	return model.ItemsPage[model.Coffee]{
		Items:           paginate(items, page),
		TotalCountItems: len(items),
	}, nil
}

func (s *memoryStore) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	defer s.lock()()

	r, ok := s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.value
	return &u, nil
}

// GetUserForUpdate в памяти не отличается от GetUser: транзакции и так последовательны.
func (s *memoryStore) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.GetUser(ctx, id)
}

func (s *memoryStore) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	defer s.lock()()

	for _, r := range s.state.users {
		if r.value.Login == login {
			u := r.value
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) loginTaken(login string, except uuid.UUID) bool {
	for id, r := range s.state.users {
		if id != except && r.value.Login == login {
			return true
		}
	}
	return false
}

func (s *memoryStore) CreateUser(_ context.Context, u *model.User) error {
	defer s.lock()()

	if s.loginTaken(u.Login, uuid.Nil) {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Login)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	stored := *u
	stored.Balance = stored.Balance.Round(moneyScale)
	s.state.users[u.ID] = row[model.User]{value: stored, seq: s.state.next()}
	return nil
}

func (s *memoryStore) UpdateUser(_ context.Context, u *model.User) error {
	defer s.lock()()

	r, ok := s.state.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if s.loginTaken(u.Login, u.ID) {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Login)
	}
	r.value = *u
	r.value.Balance = r.value.Balance.Round(moneyScale)
	s.state.users[u.ID] = r
	return nil
}

func (s *memoryStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.state.users[id]; !ok {
		return ErrNotFound
	}
	for oid, o := range s.state.orders {
		if o.value.userID != nil && *o.value.userID == id {
			o.value.userID = nil
			s.state.orders[oid] = o
		}
	}
	delete(s.state.users, id)
	return nil
}

func (s *memoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	defer s.lock()()

	users := make([]model.User, 0, len(s.state.users))
	for _, r := range s.state.users {
		users = append(users, r.value)
	}
	slices.SortFunc(users, func(a, b model.User) int {
		return strings.Compare(a.Login, b.Login)
	})
	return users, nil
}

func (s *memoryStore) loadOrder(r orderRow) (model.Order, error) {
	c, ok := s.state.coffees[r.coffeeID]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s coffee %s: %w", r.id, r.coffeeID, ErrNotFound)
	}
	o := model.Order{ID: r.id, Coffee: c.value}
	if r.userID != nil {
		if u, ok := s.state.users[*r.userID]; ok {
			user := u.value
			o.User = &user
		}
	}
	return o, nil
}

func (s *memoryStore) checkOrderRefs(o *model.Order) error {
	if _, ok := s.state.coffees[o.Coffee.ID]; !ok {
		return fmt.Errorf("order coffee %s: %w", o.Coffee.ID, ErrNotFound)
	}
	if o.User != nil {
		if _, ok := s.state.users[o.User.ID]; !ok {
			return fmt.Errorf("order user %s: %w", o.User.ID, ErrNotFound)
		}
	}
	return nil
}

func (s *memoryStore) GetOrder(_ context.Context, id uuid.UUID) (*model.Order, error) {
	defer s.lock()()

	r, ok := s.state.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o, err := s.loadOrder(r.value)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *memoryStore) CreateOrder(_ context.Context, o *model.Order) error {
	defer s.lock()()

	if err := s.checkOrderRefs(o); err != nil {
		return err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	s.state.orders[o.ID] = row[orderRow]{
		value: orderRow{id: o.ID, coffeeID: o.Coffee.ID, userID: orderUserID(o)},
		seq:   s.state.next(),
	}
	return nil
}

func (s *memoryStore) UpdateOrder(_ context.Context, o *model.Order) error {
	defer s.lock()()

	r, ok := s.state.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if err := s.checkOrderRefs(o); err != nil {
		return err
	}
	r.value.coffeeID = o.Coffee.ID
	r.value.userID = orderUserID(o)
	s.state.orders[o.ID] = r
	return nil
}

func (s *memoryStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.state.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.orders, id)
	return nil
}

func (s *memoryStore) ListOrders(_ context.Context) ([]model.Order, error) {
	defer s.lock()()

	rows := slices.Collect(maps.Values(s.state.orders))
	slices.SortFunc(rows, func(a, b row[orderRow]) int {
		return cmp.Compare(a.seq, b.seq)
	})

	orders := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		o, err := s.loadOrder(r.value)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *memoryStore) loadStatistic(r statisticRow) (model.Statistic, error) {
	c, ok := s.state.coffees[r.coffeeID]
	if !ok {
		return model.Statistic{}, fmt.Errorf("statistic %s coffee %s: %w", r.id, r.coffeeID, ErrNotFound)
	}
	return model.Statistic{ID: r.id, Coffee: c.value, Total: r.total}, nil
}

func (s *memoryStore) GetStatistic(_ context.Context, id uuid.UUID) (*model.Statistic, error) {
	defer s.lock()()

	r, ok := s.state.statistics[id]
	if !ok {
		return nil, ErrNotFound
	}
	st, err := s.loadStatistic(r.value)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *memoryStore) GetStatisticByCoffee(_ context.Context, coffeeID uuid.UUID) (*model.Statistic, error) {
	defer s.lock()()

	var (
		found row[statisticRow]
		ok    bool
	)
	for _, r := range s.state.statistics {
		if r.value.coffeeID == coffeeID && (!ok || r.seq < found.seq) {
			found, ok = r, true
		}
	}
	if !ok {
		return nil, ErrNotFound
	}
	st, err := s.loadStatistic(found.value)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *memoryStore) CreateStatistic(_ context.Context, st *model.Statistic) error {
	defer s.lock()()

	if _, ok := s.state.coffees[st.Coffee.ID]; !ok {
		return fmt.Errorf("statistic coffee %s: %w", st.Coffee.ID, ErrNotFound)
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	s.state.statistics[st.ID] = row[statisticRow]{
		value: statisticRow{id: st.ID, coffeeID: st.Coffee.ID, total: st.Total.Round(moneyScale)},
		seq:   s.state.next(),
	}
	return nil
}

func (s *memoryStore) UpdateStatistic(_ context.Context, st *model.Statistic) error {
	defer s.lock()()

	r, ok := s.state.statistics[st.ID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.state.coffees[st.Coffee.ID]; !ok {
		return fmt.Errorf("statistic coffee %s: %w", st.Coffee.ID, ErrNotFound)
	}
	r.value.coffeeID = st.Coffee.ID
	r.value.total = st.Total.Round(moneyScale)
	s.state.statistics[st.ID] = r
	return nil
}

func (s *memoryStore) DeleteStatistic(_ context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.state.statistics[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.statistics, id)
	return nil
}

func (s *memoryStore) ListStatistics(_ context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error) {
	defer s.lock()()

	type ranked struct {
		stat model.Statistic
		seq  int64
	}

	matched := make([]ranked, 0, len(s.state.statistics))
	for _, r := range s.state.statistics {
		st, err := s.loadStatistic(r.value)
		if err != nil {
			return model.ItemsPage[model.Statistic]{}, err
		}
		if filter == "" || containsFold(st.Coffee.Name, filter) ||
			strings.Contains(st.Total.StringFixed(moneyScale), filter) {
			matched = append(matched, ranked{stat: st, seq: r.seq})
		}
	}
	slices.SortFunc(matched, func(a, b ranked) int {
		if c := b.stat.Total.Cmp(a.stat.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	items := make([]model.Statistic, 0, len(matched))
	for _, m := range matched {
		items = append(items, m.stat)
	}

	return model.ItemsPage[model.Statistic]{
		Items:           paginate(items, page),
		TotalCountItems: len(items),
	}, nil
}
