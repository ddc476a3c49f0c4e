package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/coffee-machine/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DBTX описывает общий интерфейс пула соединений и транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	*queries
	pool   *pgxpool.Pool
	delays []time.Duration
}

var _ UnitOfWork = (*PostgresRepository)(nil)

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		queries: &queries{db: pool},
		pool:    pool,
		delays:  []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// InTx выполняет fn в одной транзакции. При конфликте сериализации или взаимной
// блокировке транзакция повторяется целиком.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(Store) error) error {
	return withRetry(ctx, r.delays, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&queries{db: tx}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Ping проверяет доступность базы данных.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func withRetry(ctx context.Context, delays []time.Duration, fn func() error) error {
	var err error

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

type queries struct {
	db DBTX
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return d, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern строит шаблон ILIKE для поиска подстроки. Символы % и _ в фильтре экранируются.
func likePattern(filter string) string {
	return "%" + likeEscaper.Replace(filter) + "%"
}

const coffeeColumns = `c.id, c.name, c.price::text`

func scanCoffee(row pgx.Row) (*model.Coffee, error) {
	var (
		c     model.Coffee
		price string
		err   error
	)
	if err = row.Scan(&c.ID, &c.Name, &price); err != nil {
		return nil, err
	}
	if c.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCoffee возвращает кофе по идентификатору.
func (q *queries) GetCoffee(ctx context.Context, id uuid.UUID) (*model.Coffee, error) {
	c, err := scanCoffee(q.db.QueryRow(ctx,
		`SELECT `+coffeeColumns+` FROM coffees c WHERE c.id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get coffee: %w", err)
	}
	return c, nil
}

// GetCoffeeForUpdate возвращает кофе и блокирует строку до конца транзакции.
// FOR NO KEY UPDATE не мешает вставке заказов и статистики, ссылающихся на кофе.
func (q *queries) GetCoffeeForUpdate(ctx context.Context, id uuid.UUID) (*model.Coffee, error) {
	c, err := scanCoffee(q.db.QueryRow(ctx,
		`SELECT `+coffeeColumns+` FROM coffees c WHERE c.id = $1 FOR NO KEY UPDATE`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get coffee for update: %w", err)
	}
	return c, nil
}

// CreateCoffee сохраняет новый кофе. Пустой идентификатор заменяется сгенерированным.
func (q *queries) CreateCoffee(ctx context.Context, c *model.Coffee) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO coffees (id, name, price) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("create coffee: %w", err)
	}
	return nil
}

// UpdateCoffee обновляет название и цену кофе.
func (q *queries) UpdateCoffee(ctx context.Context, c *model.Coffee) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE coffees SET name = $2, price = $3 WHERE id = $1`,
		c.ID, c.Name, c.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("update coffee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCoffee удаляет кофе, если на него не ссылаются заказы и статистики.
func (q *queries) DeleteCoffee(ctx context.Context, id uuid.UUID) error {
	return q.deleteByID(ctx, "coffees", id)
}

// ListCoffees возвращает страницу видов кофе, отсортированных по убыванию цены.
func (q *queries) ListCoffees(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Coffee], error) {
	page = page.Normalize()
	res := model.ItemsPage[model.Coffee]{Items: []model.Coffee{}}

	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM coffees c WHERE ($1::text = '' OR c.name ILIKE $2 ESCAPE '\')`,
		filter, likePattern(filter),
	).Scan(&res.TotalCountItems)
	if err != nil {
		return res, fmt.Errorf("count coffees: %w", err)
	}

	rows, err := q.db.Query(ctx,
		`SELECT `+coffeeColumns+`
		 FROM coffees c
		 WHERE ($1::text = '' OR c.name ILIKE $2 ESCAPE '\')
		 ORDER BY c.price DESC, c.created_at
		 LIMIT $3 OFFSET $4`,
		filter, likePattern(filter), page.Size, page.Offset(),
	)
	if err != nil {
		return res, fmt.Errorf("select coffees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCoffee(rows)
		if err != nil {
			return res, fmt.Errorf("scan coffee: %w", err)
		}
		res.Items = append(res.Items, *c)
	}

	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const userColumns = `u.id, u.login, u.password, u.name, u.balance::text`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u       model.User
		balance string
		err     error
	)
	if err = row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Name, &balance); err != nil {
		return nil, err
	}
	if u.Balance, err = parseMoney(balance); err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *queries) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return q.getUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// GetUserForUpdate возвращает пользователя и блокирует строку до конца транзакции.
func (q *queries) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return q.getUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1 FOR UPDATE`, id)
}

// GetUserByLogin возвращает пользователя по логину.
func (q *queries) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return q.getUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.login = $1`, login)
}

// CreateUser создаёт нового пользователя.
func (q *queries) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO users (id, login, password, name, balance) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Login, u.PasswordHash, u.Name, u.Balance.String(),
	)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Login)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateUser сохраняет все поля пользователя, включая баланс.
func (q *queries) UpdateUser(ctx context.Context, u *model.User) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET login = $2, password = $3, name = $4, balance = $5 WHERE id = $1`,
		u.ID, u.Login, u.PasswordHash, u.Name, u.Balance.String(),
	)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Login)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser удаляет пользователя. Его заказы становятся анонимными.
func (q *queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return q.deleteByID(ctx, "users", id)
}

// ListUsers возвращает всех пользователей в порядке логинов.
func (q *queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.login`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

const orderQuery = `SELECT o.id, ` + coffeeColumns + `,
	u.id, u.login, u.password, u.name, u.balance::text
	FROM orders o
	JOIN coffees c ON c.id = o.coffee_id
	LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                    model.Order
		price                string
		userID               *uuid.UUID
		login, pwd, name, bl *string
		err                  error
	)
	err = row.Scan(&o.ID, &o.Coffee.ID, &o.Coffee.Name, &price, &userID, &login, &pwd, &name, &bl)
	if err != nil {
		return nil, err
	}
	if o.Coffee.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	if userID != nil {
		u := &model.User{ID: *userID, Login: *login, PasswordHash: *pwd, Name: *name}
		if u.Balance, err = parseMoney(*bl); err != nil {
			return nil, err
		}
		o.User = u
	}
	return &o, nil
}

// GetOrder возвращает заказ вместе с кофе и пользователем.
func (q *queries) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, orderQuery+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func orderUserID(o *model.Order) *uuid.UUID {
	if o.User == nil {
		return nil
	}
	id := o.User.ID
	return &id
}

// CreateOrder сохраняет заказ.
func (q *queries) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO orders (id, coffee_id, user_id) VALUES ($1, $2, $3)`,
		o.ID, o.Coffee.ID, orderUserID(o),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateOrder переназначает кофе и пользователя заказа.
func (q *queries) UpdateOrder(ctx context.Context, o *model.Order) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE orders SET coffee_id = $2, user_id = $3 WHERE id = $1`,
		o.ID, o.Coffee.ID, orderUserID(o),
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder удаляет заказ.
func (q *queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return q.deleteByID(ctx, "orders", id)
}

// ListOrders возвращает все заказы в порядке создания.
func (q *queries) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := q.db.Query(ctx, orderQuery+` ORDER BY o.created_at`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

const statisticQuery = `SELECT s.id, s.total::text, ` + coffeeColumns + `
	FROM statistics s
	JOIN coffees c ON c.id = s.coffee_id`

func scanStatistic(row pgx.Row) (*model.Statistic, error) {
	var (
		s            model.Statistic
		total, price string
		err          error
	)
	if err = row.Scan(&s.ID, &total, &s.Coffee.ID, &s.Coffee.Name, &price); err != nil {
		return nil, err
	}
	if s.Total, err = parseMoney(total); err != nil {
		return nil, err
	}
	if s.Coffee.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *queries) getStatistic(ctx context.Context, query string, arg any) (*model.Statistic, error) {
	s, err := scanStatistic(q.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get statistic: %w", err)
	}
	return s, nil
}

// GetStatistic возвращает статистику по идентификатору.
func (q *queries) GetStatistic(ctx context.Context, id uuid.UUID) (*model.Statistic, error) {
	return q.getStatistic(ctx, statisticQuery+` WHERE s.id = $1`, id)
}

// GetStatisticByCoffee возвращает самую раннюю статистику по кофе и блокирует её строку
// до конца транзакции.
func (q *queries) GetStatisticByCoffee(ctx context.Context, coffeeID uuid.UUID) (*model.Statistic, error) {
	return q.getStatistic(ctx,
		statisticQuery+` WHERE s.coffee_id = $1 ORDER BY s.created_at, s.id LIMIT 1 FOR UPDATE OF s`,
		coffeeID,
	)
}

// CreateStatistic сохраняет новую статистику.
func (q *queries) CreateStatistic(ctx context.Context, s *model.Statistic) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO statistics (id, coffee_id, total) VALUES ($1, $2, $3)`,
		s.ID, s.Coffee.ID, s.Total.String(),
	)
	if err != nil {
		return fmt.Errorf("insert statistic: %w", err)
	}
	return nil
}

// UpdateStatistic сохраняет кофе и общую сумму статистики.
func (q *queries) UpdateStatistic(ctx context.Context, s *model.Statistic) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE statistics SET coffee_id = $2, total = $3 WHERE id = $1`,
		s.ID, s.Coffee.ID, s.Total.String(),
	)
	if err != nil {
		return fmt.Errorf("update statistic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStatistic удаляет статистику.
func (q *queries) DeleteStatistic(ctx context.Context, id uuid.UUID) error {
	return q.deleteByID(ctx, "statistics", id)
}

// ListStatistics возвращает страницу статистик, отсортированных по убыванию общей суммы.
// Фильтр ищется в названии кофе и в текстовом представлении суммы.
func (q *queries) ListStatistics(ctx context.Context, filter string, page model.Page) (model.ItemsPage[model.Statistic], error) {
	page = page.Normalize()
	res := model.ItemsPage[model.Statistic]{Items: []model.Statistic{}}

	const where = ` WHERE ($1::text = '' OR c.name ILIKE $2 ESCAPE '\' OR s.total::text ILIKE $2 ESCAPE '\')`

	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM statistics s JOIN coffees c ON c.id = s.coffee_id`+where,
		filter, likePattern(filter),
	).Scan(&res.TotalCountItems)
	if err != nil {
		return res, fmt.Errorf("count statistics: %w", err)
	}

	rows, err := q.db.Query(ctx,
		statisticQuery+where+` ORDER BY s.total DESC, s.created_at LIMIT $3 OFFSET $4`,
		filter, likePattern(filter), page.Size, page.Offset(),
	)
	if err != nil {
		return res, fmt.Errorf("select statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanStatistic(rows)
		if err != nil {
			return res, fmt.Errorf("scan statistic: %w", err)
		}
		res.Items = append(res.Items, *s)
	}

	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (q *queries) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: %s %s", ErrInUse, table, id)
		}
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
