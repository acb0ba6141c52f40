package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/shopsync/internal/model"
)

// DiscountUpsert пишет скидку по (store_id, sku). Новая запись всегда с is_reverted = false.
func (store *store) DiscountUpsert(ctx context.Context, discount model.Discount) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO product_discounts (store_id, sku, shopify_product_id, shopify_variant_id, original_price,"+
			" discounted_price, start_date, end_date, status, shopify_synced, is_reverted)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)"+
			" ON CONFLICT (store_id, sku) DO UPDATE SET"+
			" shopify_product_id = EXCLUDED.shopify_product_id, shopify_variant_id = EXCLUDED.shopify_variant_id,"+
			" original_price = EXCLUDED.original_price, discounted_price = EXCLUDED.discounted_price,"+
			" start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, status = EXCLUDED.status,"+
			" shopify_synced = EXCLUDED.shopify_synced, is_reverted = false, updated_at = now()",
		discount.StoreID,
		discount.SKU,
		discount.ShopifyProductID,
		discount.ShopifyVariantID,
		discount.OriginalPrice,
		discount.DiscountedPrice,
		discount.StartDate,
		discount.EndDate,
		string(discount.Status),
		discount.ShopifySynced)
	return err
}

// DiscountListExpired - скидки с end_date < now, ещё не откатанные.
func (store *store) DiscountListExpired(ctx context.Context, now time.Time) ([]model.Discount, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT d.id, d.store_id, s.store_code, d.sku, d.shopify_product_id, d.shopify_variant_id,"+
			" d.original_price, d.discounted_price, d.start_date, d.end_date, d.status, d.shopify_synced, d.is_reverted"+
			" FROM product_discounts d"+
			" JOIN stores s ON s.id = d.store_id"+
			" WHERE d.end_date IS NOT NULL AND d.end_date < $1 AND NOT d.is_reverted"+
			" ORDER BY d.store_id, d.id",
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []model.Discount
	for rows.Next() {
		var (
			d          model.Discount
			discounted decimal.NullDecimal
			startDate  sql.NullTime
			endDate    sql.NullTime
			status     string
		)
		err := rows.Scan(&d.ID,
			&d.StoreID,
			&d.StoreCode,
			&d.SKU,
			&d.ShopifyProductID,
			&d.ShopifyVariantID,
			&d.OriginalPrice,
			&discounted,
			&startDate,
			&endDate,
			&status,
			&d.ShopifySynced,
			&d.IsReverted)
		if err != nil {
			return nil, err
		}
		if discounted.Valid {
			d.DiscountedPrice = &discounted.Decimal
		}
		if startDate.Valid {
			d.StartDate = &startDate.Time
		}
		if endDate.Valid {
			d.EndDate = &endDate.Time
		}
		d.Status = model.DiscountStatus(status)
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

// DiscountMarkReverted переводит скидку в expired. Повторный вызов ничего не меняет.
func (store *store) DiscountMarkReverted(ctx context.Context, id int64) error {
	_, err := store.database.ExecContext(ctx,
		"UPDATE product_discounts"+
			" SET status = $2, is_reverted = true, shopify_synced = true, updated_at = now()"+
			" WHERE id = $1 AND NOT is_reverted",
		id,
		string(model.DiscountStatusExpired))
	return err
}
