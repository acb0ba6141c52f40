package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Магазины (тенанты)

type Store struct {
	ID         int64
	Name       string
	Code       string
	ShopDomain string
	StoreURL   string
	// токен платформы, хранится зашифрованным
	AccessToken   string
	ERPBackendURL string
	ERPAPIKey     string
}

// Каталог

type Product struct {
	ID               int64
	StoreID          int64
	ShopifyProductID int64
	Title            string
	BodyHTML         string
	Vendor           string
	ProductType      string
	Handle           string
	Status           string
	Tags             string
	PublishedAt      *time.Time
	Variants         []Variant
	Images           []Image
	Options          []Option
}

type Variant struct {
	ShopifyVariantID  int64
	SKU               string
	Title             string
	Price             decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	InventoryQuantity int
	Barcode           string
	Position          int
}

type Image struct {
	ShopifyImageID int64
	Src            string
	Alt            string
	Position       int
}

type Option struct {
	ShopifyOptionID int64
	Name            string
	Position        int
	Values          []string
}

type Collection struct {
	StoreID             int64
	ShopifyCollectionID int64
	Title               string
	BodyHTML            string
	ImageURL            string
	Published           bool
}

// Скидки

type DiscountStatus string

const (
	DiscountStatusPending DiscountStatus = "pending"
	DiscountStatusActive  DiscountStatus = "active"
	DiscountStatusFailed  DiscountStatus = "failed"
	DiscountStatusExpired DiscountStatus = "expired"
)

type Discount struct {
	ID      int64
	StoreID int64
	// заполняется при выборке просроченных
	StoreCode        string
	SKU              string
	ShopifyProductID int64
	ShopifyVariantID int64
	OriginalPrice    decimal.Decimal
	DiscountedPrice  *decimal.Decimal
	StartDate        *time.Time
	EndDate          *time.Time
	Status           DiscountStatus
	ShopifySynced    bool
	IsReverted       bool
}

// Заказы

type Order struct {
	ID                int64
	StoreID           int64
	OrderID           int64
	OrderNumber       string
	Name              string
	Email             string
	Phone             string
	PaymentMethod     string
	FinancialStatus   string
	FulfillmentStatus string
	Currency          string
	TotalPrice        decimal.Decimal
	SubtotalPrice     decimal.Decimal
	TotalTax          decimal.Decimal
	TotalDiscounts    decimal.Decimal
	Shipping          ShippingAddress
	LineItems         []OrderLineItem
	OrderCreatedAt    time.Time
	ERPSynced         bool
}

type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

type OrderLineItem struct {
	ShopifyLineItemID int64           `json:"id"`
	VariantID         int64           `json:"variant_id"`
	ProductID         int64           `json:"product_id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
}

// Итог пакетной операции

type BatchStatus string

const (
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusPartial BatchStatus = "partial"
	BatchStatusFail    BatchStatus = "fail"
)

// BatchStatusOf: без ошибок - success, без успехов - fail, иначе partial.
func BatchStatusOf(succeeded, failed int) BatchStatus {
	switch {
	case failed == 0:
		return BatchStatusSuccess
	case succeeded == 0:
		return BatchStatusFail
	default:
		return BatchStatusPartial
	}
}

// Журнал действий

type ActionLog struct {
	StoreID    int64
	Type       string
	ResourceID string
	Status     string
	Message    string
	Payload    []byte
	CreatedAt  time.Time
}
