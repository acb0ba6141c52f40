package shopifyclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// IsNotFound - ответ 404 от платформы.
func IsNotFound(err error) bool {
	var nr *NonRetryableError
	return errors.As(err, &nr) && nr.Status == http.StatusNotFound
}

// Товары

func (c *Client) GetProduct(ctx context.Context, productID int64) (ProductPayload, bool, error) {
	var out struct {
		Product ProductPayload `json:"product"`
	}
	err := c.Do(ctx, Request{
		Name:   "get_product",
		Method: http.MethodGet,
		Path:   fmt.Sprintf("products/%d.json", productID),
	}, &out)
	if err != nil {
		if IsNotFound(err) {
			return ProductPayload{}, false, nil
		}
		return ProductPayload{}, false, err
	}
	return out.Product, true, nil
}

func (c *Client) CreateProduct(ctx context.Context, p ProductPayload) (ProductPayload, error) {
	p.ID = 0
	return c.saveProduct(ctx, "create_product", http.MethodPost, "products.json", p)
}

func (c *Client) UpdateProduct(ctx context.Context, p ProductPayload) (ProductPayload, error) {
	return c.saveProduct(ctx, "update_product", http.MethodPut, fmt.Sprintf("products/%d.json", p.ID), p)
}

func (c *Client) saveProduct(ctx context.Context, name, method, path string, p ProductPayload) (ProductPayload, error) {
	var out struct {
		Product ProductPayload `json:"product"`
	}
	err := c.Do(ctx, Request{
		Name:   name,
		Method: method,
		Path:   path,
		Body:   map[string]ProductPayload{"product": p},
	}, &out)
	return out.Product, err
}

// UpdateVariantPrice ставит цену варианта. compareAt == nil снимает зачёркнутую цену.
func (c *Client) UpdateVariantPrice(ctx context.Context, variantID int64, price decimal.Decimal, compareAt *decimal.Decimal) error {
	return c.Do(ctx, Request{
		Name:   "update_variant_price",
		Method: http.MethodPut,
		Path:   fmt.Sprintf("variants/%d.json", variantID),
		Body: map[string]variantPriceUpdate{"variant": {
			ID:             variantID,
			Price:          price,
			CompareAtPrice: compareAt,
		}},
	}, nil)
}

// Изображения

func (c *Client) ListProductImages(ctx context.Context, productID int64) ([]ImagePayload, error) {
	var out struct {
		Images []ImagePayload `json:"images"`
	}
	err := c.Do(ctx, Request{
		Name:   "list_product_images",
		Method: http.MethodGet,
		Path:   fmt.Sprintf("products/%d/images.json", productID),
	}, &out)
	return out.Images, err
}

func (c *Client) CreateProductImage(ctx context.Context, productID int64, img ImagePayload) (ImagePayload, error) {
	img.ID = 0
	var out struct {
		Image ImagePayload `json:"image"`
	}
	err := c.Do(ctx, Request{
		Name:   "create_product_image",
		Method: http.MethodPost,
		Path:   fmt.Sprintf("products/%d/images.json", productID),
		Body:   map[string]ImagePayload{"image": img},
	}, &out)
	return out.Image, err
}

func (c *Client) DeleteProductImage(ctx context.Context, productID, imageID int64) error {
	return c.Do(ctx, Request{
		Name:   "delete_product_image",
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("products/%d/images/%d.json", productID, imageID),
	}, nil)
}

// Коллекции

func (c *Client) GetCustomCollection(ctx context.Context, collectionID int64) (CustomCollectionPayload, bool, error) {
	var out struct {
		CustomCollection CustomCollectionPayload `json:"custom_collection"`
	}
	err := c.Do(ctx, Request{
		Name:   "get_custom_collection",
		Method: http.MethodGet,
		Path:   fmt.Sprintf("custom_collections/%d.json", collectionID),
	}, &out)
	if err != nil {
		if IsNotFound(err) {
			return CustomCollectionPayload{}, false, nil
		}
		return CustomCollectionPayload{}, false, err
	}
	return out.CustomCollection, true, nil
}

func (c *Client) SaveCustomCollection(ctx context.Context, cc CustomCollectionPayload) (CustomCollectionPayload, error) {
	req := Request{
		Name:   "create_custom_collection",
		Method: http.MethodPost,
		Path:   "custom_collections.json",
		Body:   map[string]CustomCollectionPayload{"custom_collection": cc},
	}
	if cc.ID != 0 {
		req.Name = "update_custom_collection"
		req.Method = http.MethodPut
		req.Path = fmt.Sprintf("custom_collections/%d.json", cc.ID)
	}
	var out struct {
		CustomCollection CustomCollectionPayload `json:"custom_collection"`
	}
	err := c.Do(ctx, req, &out)
	return out.CustomCollection, err
}

func (c *Client) DeleteCustomCollection(ctx context.Context, collectionID int64) error {
	return c.Do(ctx, Request{
		Name:   "delete_custom_collection",
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("custom_collections/%d.json", collectionID),
	}, nil)
}

// Связи товар-коллекция

func (c *Client) ListCollects(ctx context.Context, collectionID int64) ([]CollectPayload, error) {
	query := url.Values{"collection_id": {strconv.FormatInt(collectionID, 10)}}
	return Drain[CollectPayload](ctx, c, "collects.json", query, "collects", c.PageSize())
}

func (c *Client) CreateCollect(ctx context.Context, collectionID, productID int64) (CollectPayload, error) {
	var out struct {
		Collect CollectPayload `json:"collect"`
	}
	err := c.Do(ctx, Request{
		Name:   "create_collect",
		Method: http.MethodPost,
		Path:   "collects.json",
		Body: map[string]CollectPayload{"collect": {
			CollectionID: collectionID,
			ProductID:    productID,
		}},
	}, &out)
	return out.Collect, err
}

func (c *Client) DeleteCollect(ctx context.Context, collectID int64) error {
	return c.Do(ctx, Request{
		Name:   "delete_collect",
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("collects/%d.json", collectID),
	}, nil)
}
