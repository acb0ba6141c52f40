package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/shopsync/internal/discount"
	"github.com/iurnickita/shopsync/internal/service"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

const dateLayout = "2006-01-02"

// rawID принимает id строкой или числом и хранит исходный текст.
type rawID string

func (id *rawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rawID(s)
		return nil
	}
	*id = rawID(data)
	return nil
}

func (id rawID) int64() (int64, error) {
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", string(id))
	}
	return v, nil
}

func rawIDStrings(ids []rawID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// Товар

type productRequest struct {
	ID          int64              `json:"shopify_product_id" validate:"gte=0"`
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	Vendor      string             `json:"vendor" validate:"required"`
	Type        string             `json:"type"`
	Tags        string             `json:"tags"`
	Status      string             `json:"status" validate:"omitempty,oneof=active draft archived"`
	Options     []optionRequest    `json:"options" validate:"omitempty,max=3,dive"`
	Variants    []variantRequest   `json:"variants" validate:"omitempty,dive"`
	Images      []productImageItem `json:"images" validate:"omitempty,dive"`
}

type optionRequest struct {
	Name   string   `json:"name" validate:"required"`
	Values []string `json:"values" validate:"required,min=1"`
}

type variantRequest struct {
	Option1           string           `json:"option1" validate:"required"`
	Option2           string           `json:"option2"`
	Option3           string           `json:"option3"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price"`
	SKU               string           `json:"sku"`
	Barcode           string           `json:"barcode"`
	InventoryQuantity int              `json:"inventory_quantity" validate:"gte=0"`
}

type productImageItem struct {
	Src string `json:"src" validate:"required,url"`
	Alt string `json:"alt"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (req productRequest) payload() (shopifyclient.ProductPayload, error) {
	p := shopifyclient.ProductPayload{
		ID:          req.ID,
		Title:       req.Title,
		BodyHTML:    req.Description,
		Vendor:      req.Vendor,
		ProductType: req.Type,
		Tags:        req.Tags,
		Status:      req.Status,
	}
	if p.Status == "" {
		p.Status = "active"
	}
	for i, opt := range req.Options {
		p.Options = append(p.Options, shopifyclient.OptionPayload{Name: opt.Name, Position: i + 1, Values: opt.Values})
	}
	for i, v := range req.Variants {
		if v.Price.Sign() < 0 {
			return p, fmt.Errorf("variant %d: negative price", i+1)
		}
		p.Variants = append(p.Variants, shopifyclient.VariantPayload{
			SKU:               v.SKU,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			InventoryQuantity: v.InventoryQuantity,
			Barcode:           v.Barcode,
			Position:          i + 1,
			Option1:           optional(v.Option1),
			Option2:           optional(v.Option2),
			Option3:           optional(v.Option3),
		})
	}
	for i, img := range req.Images {
		p.Images = append(p.Images, shopifyclient.ImagePayload{Src: img.Src, Alt: img.Alt, Position: i + 1})
	}
	return p, nil
}

// Изображения

type imageReplaceRequest struct {
	Products []imageReplaceProduct `json:"products" validate:"required,min=1,dive"`
}

type imageReplaceProduct struct {
	ProductID int64              `json:"shopify_product_id" validate:"required,gt=0"`
	Images    []imageReplaceItem `json:"images" validate:"required,min=1,dive"`
}

type imageReplaceItem struct {
	URL       string `json:"url" validate:"required,url"`
	Alt       string `json:"alt"`
	VariantID *int64 `json:"variant_id" validate:"omitempty,gt=0"`
}

func (req imageReplaceRequest) batch() []service.ImageReplace {
	batch := make([]service.ImageReplace, 0, len(req.Products))
	for _, p := range req.Products {
		r := service.ImageReplace{ProductID: p.ProductID}
		for i, img := range p.Images {
			payload := shopifyclient.ImagePayload{Src: img.URL, Alt: img.Alt, Position: i + 1}
			if img.VariantID != nil {
				payload.VariantIDs = []int64{*img.VariantID}
			}
			r.Images = append(r.Images, payload)
		}
		batch = append(batch, r)
	}
	return batch
}

// Коллекции

type collectionRequest struct {
	ID         int64   `json:"shopify_collection_id" validate:"gte=0"`
	Title      string  `json:"title" validate:"required"`
	BodyHTML   string  `json:"body_html"`
	ImageURL   string  `json:"image_url" validate:"omitempty,url"`
	Published  *bool   `json:"published"`
	ProductIDs []rawID `json:"product_ids" validate:"required"`
}

func (req collectionRequest) input() service.CollectionInput {
	in := service.CollectionInput{
		ID:         req.ID,
		Title:      req.Title,
		BodyHTML:   req.BodyHTML,
		ImageURL:   req.ImageURL,
		Published:  true,
		ProductIDs: rawIDStrings(req.ProductIDs),
	}
	if req.Published != nil {
		in.Published = *req.Published
	}
	return in
}

type membershipRequest struct {
	ProductIDs []rawID `json:"product_ids" validate:"required"`
}

// Скидки

type discountRequest struct {
	Discounts []discountItem `json:"discounts" validate:"required,min=1,dive"`
}

type discountItem struct {
	SKU             string           `json:"sku" validate:"required"`
	ProductID       rawID            `json:"shopify_product_id" validate:"required"`
	VariantID       rawID            `json:"shopify_variant_id" validate:"required"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	StartDate       string           `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string           `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// items - дата окончания действует до конца дня.
func (req discountRequest) items() ([]discount.Item, error) {
	items := make([]discount.Item, 0, len(req.Discounts))
	for _, d := range req.Discounts {
		productID, err := d.ProductID.int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.SKU, err)
		}
		variantID, err := d.VariantID.int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.SKU, err)
		}
		if d.OriginalPrice.Sign() <= 0 {
			return nil, fmt.Errorf("%s: original price must be positive", d.SKU)
		}
		if d.DiscountedPrice != nil && d.DiscountedPrice.Sign() < 0 {
			return nil, fmt.Errorf("%s: discounted price must not be negative", d.SKU)
		}

		item := discount.Item{
			SKU:              d.SKU,
			ShopifyProductID: productID,
			ShopifyVariantID: variantID,
			OriginalPrice:    d.OriginalPrice,
			DiscountedPrice:  d.DiscountedPrice,
		}
		if d.StartDate != "" {
			start, _ := time.Parse(dateLayout, d.StartDate)
			item.StartDate = &start
		}
		if d.EndDate != "" {
			end, _ := time.Parse(dateLayout, d.EndDate)
			end = end.Add(24*time.Hour - time.Second)
			item.EndDate = &end
		}
		if item.StartDate != nil && item.EndDate != nil && item.EndDate.Before(*item.StartDate) {
			return nil, fmt.Errorf("%s: end date before start date", d.SKU)
		}
		items = append(items, item)
	}
	return items, nil
}
