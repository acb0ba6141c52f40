package store

import (
	"context"
	"encoding/json"

	"github.com/iurnickita/shopsync/internal/model"
)

// ProductSave записывает товар с вариантами, изображениями и опциями одной транзакцией.
// Возвращает true, если товар создан, false - если обновлён.
func (store *store) ProductSave(ctx context.Context, product model.Product) (bool, error) {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// xmax = 0 только у только что вставленной строки
	var productID int64
	var created bool
	err = tx.QueryRowContext(ctx,
		"INSERT INTO products (store_id, shopify_product_id, title, body_html, vendor, product_type, handle, status, tags, published_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"+
			" ON CONFLICT (store_id, shopify_product_id) DO UPDATE SET"+
			" title = EXCLUDED.title, body_html = EXCLUDED.body_html, vendor = EXCLUDED.vendor,"+
			" product_type = EXCLUDED.product_type, handle = EXCLUDED.handle, status = EXCLUDED.status,"+
			" tags = EXCLUDED.tags, published_at = EXCLUDED.published_at, updated_at = now()"+
			" RETURNING id, (xmax = 0)",
		product.StoreID,
		product.ShopifyProductID,
		product.Title,
		product.BodyHTML,
		product.Vendor,
		product.ProductType,
		product.Handle,
		product.Status,
		product.Tags,
		product.PublishedAt).Scan(&productID, &created)
	if err != nil {
		return false, err
	}

	for _, v := range product.Variants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO product_variants (product_id, shopify_variant_id, sku, title, price, compare_at_price, inventory_quantity, barcode, position)"+
				" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"+
				" ON CONFLICT (product_id, shopify_variant_id) DO UPDATE SET"+
				" sku = EXCLUDED.sku, title = EXCLUDED.title, price = EXCLUDED.price,"+
				" compare_at_price = EXCLUDED.compare_at_price, inventory_quantity = EXCLUDED.inventory_quantity,"+
				" barcode = EXCLUDED.barcode, position = EXCLUDED.position",
			productID,
			v.ShopifyVariantID,
			v.SKU,
			v.Title,
			v.Price,
			v.CompareAtPrice,
			v.InventoryQuantity,
			v.Barcode,
			v.Position)
		if err != nil {
			return false, err
		}
	}

	for _, img := range product.Images {
		if err = imageUpsert(ctx, tx, productID, img); err != nil {
			return false, err
		}
	}

	for _, opt := range product.Options {
		values, err := json.Marshal(opt.Values)
		if err != nil {
			return false, err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO product_options (product_id, shopify_option_id, name, position, option_values)"+
				" VALUES ($1, $2, $3, $4, $5)"+
				" ON CONFLICT (product_id, shopify_option_id) DO UPDATE SET"+
				" name = EXCLUDED.name, position = EXCLUDED.position, option_values = EXCLUDED.option_values",
			productID,
			opt.ShopifyOptionID,
			opt.Name,
			opt.Position,
			string(values))
		if err != nil {
			return false, err
		}
	}

	return created, tx.Commit()
}

func imageUpsert(ctx context.Context, q querier, productID int64, img model.Image) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO product_images (product_id, shopify_image_id, src, alt, position)"+
			" VALUES ($1, $2, $3, $4, $5)"+
			" ON CONFLICT (product_id, shopify_image_id) DO UPDATE SET"+
			" src = EXCLUDED.src, alt = EXCLUDED.alt, position = EXCLUDED.position",
		productID,
		img.ShopifyImageID,
		img.Src,
		img.Alt,
		img.Position)
	return err
}

func (store *store) CollectionUpsert(ctx context.Context, collection model.Collection) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO product_collections (store_id, shopify_collection_id, title, body_html, image_url, published)"+
			" VALUES ($1, $2, $3, $4, $5, $6)"+
			" ON CONFLICT (store_id, shopify_collection_id) DO UPDATE SET"+
			" title = EXCLUDED.title, body_html = EXCLUDED.body_html, image_url = EXCLUDED.image_url,"+
			" published = EXCLUDED.published, updated_at = now()",
		collection.StoreID,
		collection.ShopifyCollectionID,
		collection.Title,
		collection.BodyHTML,
		collection.ImageURL,
		collection.Published)
	return err
}

func (store *store) CollectionDelete(ctx context.Context, storeID int64, collectionID int64) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM product_collections"+
			" WHERE store_id = $1 AND shopify_collection_id = $2",
		storeID,
		collectionID)
	return err
}
