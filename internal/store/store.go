package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/store/config"
	"github.com/iurnickita/shopsync/internal/store/migrations"
)

type Store interface {
	StoreGetByCode(ctx context.Context, code string) (model.Store, error)
	ProductSave(ctx context.Context, product model.Product) (bool, error)
	CollectionUpsert(ctx context.Context, collection model.Collection) error
	CollectionDelete(ctx context.Context, storeID int64, collectionID int64) error
	OrderExists(ctx context.Context, storeID int64, orderID int64) (bool, error)
	OrderCreate(ctx context.Context, order model.Order) error
	OrderUpsert(ctx context.Context, order model.Order) (bool, error)
	OrderSetERPSynced(ctx context.Context, storeID int64, orderID int64) error
	DiscountUpsert(ctx context.Context, discount model.Discount) error
	DiscountListExpired(ctx context.Context, now time.Time) ([]model.Discount, error)
	DiscountMarkReverted(ctx context.Context, id int64) error
	ActionLogInsert(ctx context.Context, rec model.ActionLog) error
	Close() error
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
)

// общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type store struct {
	database *sql.DB
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	// Схема ведётся миграциями (internal/store/migrations)
	if cfg.Migrate {
		if err := migrateUp(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return newStore(db), nil
}

func newStore(db *sql.DB) *store {
	return &store{database: db}
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (store *store) Close() error {
	return store.database.Close()
}

func (store *store) StoreGetByCode(ctx context.Context, code string) (model.Store, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, store_name, store_code, shop_domain, store_url, access_token, erp_backend_url, erp_api_key"+
			" FROM stores"+
			" WHERE store_code = $1",
		code)

	var st model.Store
	err := row.Scan(&st.ID,
		&st.Name,
		&st.Code,
		&st.ShopDomain,
		&st.StoreURL,
		&st.AccessToken,
		&st.ERPBackendURL,
		&st.ERPAPIKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Store{}, ErrNoRows
		}
		return model.Store{}, err
	}
	return st, nil
}

func (store *store) ActionLogInsert(ctx context.Context, rec model.ActionLog) error {
	// 0 - событие без магазина
	storeID := sql.NullInt64{Int64: rec.StoreID, Valid: rec.StoreID != 0}
	var payload sql.NullString
	if len(rec.Payload) > 0 {
		payload = sql.NullString{String: string(rec.Payload), Valid: true}
	}

	_, err := store.database.ExecContext(ctx,
		"INSERT INTO shopify_action_logs (store_id, type, resource_id, status, message, payload, created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)",
		storeID,
		rec.Type,
		rec.ResourceID,
		rec.Status,
		rec.Message,
		payload,
		rec.CreatedAt)
	return err
}

// нарушение уникального ключа
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
