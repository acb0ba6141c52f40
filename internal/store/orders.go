package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iurnickita/shopsync/internal/model"
)

func (store *store) OrderExists(ctx context.Context, storeID int64, orderID int64) (bool, error) {
	var exists bool
	err := store.database.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE store_id = $1 AND order_id = $2)",
		storeID,
		orderID).Scan(&exists)
	return exists, err
}

// OrderCreate записывает новый заказ. Повторная запись - ErrAlreadyExists.
func (store *store) OrderCreate(ctx context.Context, order model.Order) error {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	args, err := orderArgs(order)
	if err != nil {
		return err
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (store_id, order_id, order_number, name, email, phone, payment_method,"+
			" financial_status, fulfillment_status, currency, total_price, subtotal_price, total_tax,"+
			" total_discounts, shipping_address, line_items, order_created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)"+
			" RETURNING id",
		args...).Scan(&id)
	if err != nil {
		// Проверка: уже существует
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	if err = lineItemsUpsert(ctx, tx, id, order.LineItems); err != nil {
		return err
	}
	return tx.Commit()
}

// OrderUpsert создаёт или обновляет заказ. Возвращает true, если заказ создан.
func (store *store) OrderUpsert(ctx context.Context, order model.Order) (bool, error) {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	args, err := orderArgs(order)
	if err != nil {
		return false, err
	}
	var id int64
	var created bool
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (store_id, order_id, order_number, name, email, phone, payment_method,"+
			" financial_status, fulfillment_status, currency, total_price, subtotal_price, total_tax,"+
			" total_discounts, shipping_address, line_items, order_created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)"+
			" ON CONFLICT (store_id, order_id) DO UPDATE SET"+
			" order_number = EXCLUDED.order_number, name = EXCLUDED.name, email = EXCLUDED.email,"+
			" phone = EXCLUDED.phone, payment_method = EXCLUDED.payment_method,"+
			" financial_status = EXCLUDED.financial_status, fulfillment_status = EXCLUDED.fulfillment_status,"+
			" currency = EXCLUDED.currency, total_price = EXCLUDED.total_price,"+
			" subtotal_price = EXCLUDED.subtotal_price, total_tax = EXCLUDED.total_tax,"+
			" total_discounts = EXCLUDED.total_discounts, shipping_address = EXCLUDED.shipping_address,"+
			" line_items = EXCLUDED.line_items, order_created_at = EXCLUDED.order_created_at, updated_at = now()"+
			" RETURNING id, (xmax = 0)",
		args...).Scan(&id, &created)
	if err != nil {
		return false, err
	}

	if err = lineItemsUpsert(ctx, tx, id, order.LineItems); err != nil {
		return false, err
	}
	return created, tx.Commit()
}

func orderArgs(order model.Order) ([]any, error) {
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return nil, err
	}
	items := order.LineItems
	if items == nil {
		items = []model.OrderLineItem{}
	}
	lineItems, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var createdAt sql.NullTime
	if !order.OrderCreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: order.OrderCreatedAt, Valid: true}
	}
	return []any{
		order.StoreID,
		order.OrderID,
		order.OrderNumber,
		order.Name,
		order.Email,
		order.Phone,
		order.PaymentMethod,
		order.FinancialStatus,
		order.FulfillmentStatus,
		order.Currency,
		order.TotalPrice,
		order.SubtotalPrice,
		order.TotalTax,
		order.TotalDiscounts,
		string(shipping),
		string(lineItems),
		createdAt,
	}, nil
}

func lineItemsUpsert(ctx context.Context, q querier, orderID int64, items []model.OrderLineItem) error {
	for _, item := range items {
		_, err := q.ExecContext(ctx,
			"INSERT INTO order_line_items (order_id, shopify_line_item_id, variant_id, product_id, sku, name, quantity, price)"+
				" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
				" ON CONFLICT (order_id, shopify_line_item_id) DO UPDATE SET"+
				" variant_id = EXCLUDED.variant_id, product_id = EXCLUDED.product_id, sku = EXCLUDED.sku,"+
				" name = EXCLUDED.name, quantity = EXCLUDED.quantity, price = EXCLUDED.price",
			orderID,
			item.ShopifyLineItemID,
			item.VariantID,
			item.ProductID,
			item.SKU,
			item.Name,
			item.Quantity,
			item.Price)
		if err != nil {
			return err
		}
	}
	return nil
}

func (store *store) OrderSetERPSynced(ctx context.Context, storeID int64, orderID int64) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE orders SET erp_synced = true, updated_at = now()"+
			" WHERE store_id = $1 AND order_id = $2",
		storeID,
		orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}
