// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/eguva/eguva-backend/internal/model"
	"github.com/eguva/eguva-backend/internal/pricing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар из заказа отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientStock возвращается, если запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadySubscribed возвращается при повторной подписке на рассылку.
	ErrAlreadySubscribed = errors.New("email already subscribed")
	// ErrConfigNotFound возвращается, если ключ конфигурации отсутствует.
	ErrConfigNotFound = errors.New("configuration key not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

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

	r := &PostgresRepository{pool: pool}

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

// withRetry повторяет транзакцию при сбоях сериализации и дедлоках.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.UserRole) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, email, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.UserRole(role)

	return &u, nil
}

// GetProduct возвращает товар каталога по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price, stock FROM products WHERE id = $1`,
		id,
	)

	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// CreateOrder атомарно создаёт заказ: проверяет наличие товаров, фиксирует
// снимки цен, рассчитывает стоимость по текущей конфигурации доставки и
// сохраняет шапку заказа вместе с позициями. Остаток товара не списывается:
// списание откладывается до подтверждения оплаты. Любая ошибка откатывает
// всю транзакцию, частично созданный заказ невозможен.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.withRetry(ctx, func() error {
		return r.createOrderTx(ctx, order)
	})
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range order.Lines {
		line := &order.Lines[i]

		var p model.Product
		// Блокируем строку товара, чтобы проверка остатка не читала
		// незафиксированное параллельное списание.
		err := tx.QueryRow(ctx,
			`SELECT id, name, price, stock FROM products WHERE id = $1 FOR UPDATE`,
			line.ProductID,
		).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: id %d", ErrProductNotFound, line.ProductID)
			}
			return fmt.Errorf("select product: %w", err)
		}

		if line.Quantity > p.Stock {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}

		line.UnitPrice = p.Price
	}

	configs, err := configValuesTx(ctx, tx,
		model.ConfigKeyShippingCost, model.ConfigKeyFreeShippingThreshold)
	if err != nil {
		return err
	}

	shippingCost, freeThreshold := shippingConfig(configs)

	totals := pricing.Quote(order.Lines, shippingCost, freeThreshold)
	order.Subtotal = totals.Subtotal
	order.ShippingCost = totals.ShippingCost
	order.Total = totals.Total
	order.Status = model.OrderStatusPending

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (
			user_id, full_name, status, subtotal, shipping_cost, total,
			shipping_address, department, province, district, postal_code,
			dni, phone, payment_method, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`,
		order.UserID, order.FullName, string(order.Status),
		order.Subtotal, order.ShippingCost, order.Total,
		order.ShippingAddress, order.Department, order.Province, order.District,
		order.PostalCode, order.DNI, order.Phone, order.PaymentMethod, order.Notes,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID

		err := tx.QueryRow(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetOrderWithLines возвращает заказ вместе с его позициями.
func (r *PostgresRepository) GetOrderWithLines(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, full_name, status, subtotal, shipping_cost, total,
		        shipping_address, department, province, district, postal_code,
		        dni, phone, payment_method, notes, payment_id, preference_id, created_at
		 FROM orders WHERE id = $1`,
		id,
	)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_lines WHERE order_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

// GetOrdersByUser возвращает список заказов пользователя.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, full_name, status, subtotal, shipping_cost, total,
		        shipping_address, department, province, district, postal_code,
		        dni, phone, payment_method, notes, payment_id, preference_id, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// GetOrders возвращает страницу заказов для админки и общее число заказов.
func (r *PostgresRepository) GetOrders(ctx context.Context, limit, offset int) ([]model.Order, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, full_name, status, subtotal, shipping_cost, total,
		        shipping_address, department, province, district, postal_code,
		        dni, phone, payment_method, notes, payment_id, preference_id, created_at
		 FROM orders
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateOrderStatus изменяет статус заказа. Используется админкой: меняет
// только статус, без побочных эффектов на остатки.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetOrderPreference сохраняет идентификатор preference MercadoPago на заказе.
// Повторный вызов перезаписывает прежнее значение.
func (r *PostgresRepository) SetOrderPreference(ctx context.Context, orderID int64, preferenceID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET preference_id = $2 WHERE id = $1`,
		orderID, preferenceID,
	)
	if err != nil {
		return fmt.Errorf("set order preference: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkOrderPaid переводит заказ в статус PAID и списывает остатки товаров по
// его позициям. Строка заказа блокируется FOR UPDATE, поэтому переход и
// списание линеаризуемы: из двух одновременных подтверждений оплаты только
// одно спишет остатки, второе увидит статус PAID и вернёт alreadyPaid = true.
// Остаток не опускается ниже нуля.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, orderID int64, paymentID string) (alreadyPaid bool, err error) {
	err = r.withRetry(ctx, func() error {
		var txErr error
		alreadyPaid, txErr = r.markOrderPaidTx(ctx, orderID, paymentID)
		return txErr
	})
	return alreadyPaid, err
}

func (r *PostgresRepository) markOrderPaidTx(ctx context.Context, orderID int64, paymentID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
		orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		return false, fmt.Errorf("lock order: %w", err)
	}

	if model.OrderStatus(status) == model.OrderStatusPaid {
		return true, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM order_lines WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return false, fmt.Errorf("select order lines: %w", err)
	}

	type decrement struct {
		productID int64
		quantity  int32
	}
	var decrements []decrement
	for rows.Next() {
		var d decrement
		if err := rows.Scan(&d.productID, &d.quantity); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan order line: %w", err)
		}
		decrements = append(decrements, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("rows error: %w", err)
	}

	for _, d := range decrements {
		_, err := tx.Exec(ctx,
			`UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id = $1`,
			d.productID, d.quantity,
		)
		if err != nil {
			return false, fmt.Errorf("decrement stock: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2, payment_id = $3 WHERE id = $1`,
		orderID, string(model.OrderStatusPaid), paymentID,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return false, nil
}

// SetOrderPaymentStatus изменяет платёжный статус заказа без побочных
// эффектов на остатки. Заказ в статусе PAID не трогается: отклонённое или
// повторно доставленное уведомление не может отменить подтверждённую оплату.
func (r *PostgresRepository) SetOrderPaymentStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status <> $3`,
		orderID, string(status), string(model.OrderStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("set order payment status: %w", err)
	}
	return nil
}

// GetConfigs возвращает все записи конфигурации магазина.
func (r *PostgresRepository) GetConfigs(ctx context.Context) ([]model.ConfigEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, type, COALESCE(description, '') FROM configurations ORDER BY key`,
	)
	if err != nil {
		return nil, fmt.Errorf("select configs: %w", err)
	}
	defer rows.Close()

	var entries []model.ConfigEntry
	for rows.Next() {
		var e model.ConfigEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Type, &e.Description); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// UpdateConfig изменяет значение существующего ключа конфигурации.
// Изменение не затрагивает ранее созданные заказы: их стоимость рассчитана
// по конфигурации на момент оформления.
func (r *PostgresRepository) UpdateConfig(ctx context.Context, key, value string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE configurations SET value = $2 WHERE key = $1`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, key)
	}
	return nil
}

// SubscribeNewsletter создаёт подписку на рассылку.
func (r *PostgresRepository) SubscribeNewsletter(ctx context.Context, email string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO newsletter_subscriptions (email) VALUES ($1) RETURNING id`,
		email,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrAlreadySubscribed, email)
		}
		return 0, fmt.Errorf("subscribe newsletter: %w", err)
	}
	return id, nil
}

// EnqueueWebhookRetry сохраняет уведомление о платеже, обработка которого не
// удалась, для последующего дожима фоновым воркером.
func (r *PostgresRepository) EnqueueWebhookRetry(ctx context.Context, id, paymentID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_retries (id, payment_id, reason) VALUES ($1, $2, $3)`,
		id, paymentID, reason,
	)
	if err != nil {
		return fmt.Errorf("enqueue webhook retry: %w", err)
	}
	return nil
}

// PendingWebhookRetries возвращает незавершённые повторы обработки уведомлений.
func (r *PostgresRepository) PendingWebhookRetries(ctx context.Context, limit int) ([]model.WebhookRetry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, payment_id, reason, attempts, created_at
		 FROM webhook_retries
		 WHERE resolved_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select webhook retries: %w", err)
	}
	defer rows.Close()

	var retries []model.WebhookRetry
	for rows.Next() {
		var wr model.WebhookRetry
		if err := rows.Scan(&wr.ID, &wr.PaymentID, &wr.Reason, &wr.Attempts, &wr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook retry: %w", err)
		}
		retries = append(retries, wr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return retries, nil
}

// MarkWebhookRetryAttempt увеличивает счётчик попыток повтора.
func (r *PostgresRepository) MarkWebhookRetryAttempt(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE webhook_retries SET attempts = attempts + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark webhook retry attempt: %w", err)
	}
	return nil
}

// ResolveWebhookRetry помечает повтор как успешно завершённый.
func (r *PostgresRepository) ResolveWebhookRetry(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE webhook_retries SET resolved_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("resolve webhook retry: %w", err)
	}
	return nil
}

func configValuesTx(ctx context.Context, tx pgx.Tx, keys ...string) (map[string]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT key, value FROM configurations WHERE key = ANY($1)`,
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("select configs: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return values, nil
}

func shippingConfig(values map[string]string) (shippingCost, freeThreshold decimal.Decimal) {
	shippingCost = defaultShippingCost
	freeThreshold = defaultFreeShippingThreshold

	if v, ok := values[model.ConfigKeyShippingCost]; ok {
		if parsed, err := decimal.NewFromString(v); err == nil {
			shippingCost = parsed
		}
	}
	if v, ok := values[model.ConfigKeyFreeShippingThreshold]; ok {
		if parsed, err := decimal.NewFromString(v); err == nil {
			freeThreshold = parsed
		}
	}

	return shippingCost, freeThreshold
}

// Умолчания соответствуют записям из сид-миграции и применяются, если ключи
// конфигурации были удалены.
var (
	defaultShippingCost          = decimal.RequireFromString("15.00")
	defaultFreeShippingThreshold = decimal.RequireFromString("70.00")
)

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	err := row.Scan(
		&o.ID, &o.UserID, &o.FullName, &status,
		&o.Subtotal, &o.ShippingCost, &o.Total,
		&o.ShippingAddress, &o.Department, &o.Province, &o.District, &o.PostalCode,
		&o.DNI, &o.Phone, &o.PaymentMethod, &o.Notes,
		&o.PaymentID, &o.PreferenceID, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
