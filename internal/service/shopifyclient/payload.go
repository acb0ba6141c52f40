package shopifyclient

import (
	"time"

	"github.com/shopspring/decimal"
)

// Товары

type ProductPayload struct {
	ID          int64            `json:"id,omitempty"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor,omitempty"`
	ProductType string           `json:"product_type,omitempty"`
	Handle      string           `json:"handle,omitempty"`
	Status      string           `json:"status,omitempty"`
	Tags        string           `json:"tags,omitempty"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	Variants    []VariantPayload `json:"variants,omitempty"`
	Images      []ImagePayload   `json:"images,omitempty"`
	Options     []OptionPayload  `json:"options,omitempty"`
}

type VariantPayload struct {
	ID                int64            `json:"id,omitempty"`
	ProductID         int64            `json:"product_id,omitempty"`
	Title             string           `json:"title,omitempty"`
	SKU               string           `json:"sku"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price"`
	InventoryQuantity int              `json:"inventory_quantity,omitempty"`
	Barcode           string           `json:"barcode,omitempty"`
	Position          int              `json:"position,omitempty"`
	Option1           *string          `json:"option1,omitempty"`
	Option2           *string          `json:"option2,omitempty"`
	Option3           *string          `json:"option3,omitempty"`
}

type ImagePayload struct {
	ID         int64   `json:"id,omitempty"`
	ProductID  int64   `json:"product_id,omitempty"`
	Src        string  `json:"src,omitempty"`
	Alt        string  `json:"alt,omitempty"`
	Position   int     `json:"position,omitempty"`
	VariantIDs []int64 `json:"variant_ids,omitempty"`
}

type OptionPayload struct {
	ID       int64    `json:"id,omitempty"`
	Name     string   `json:"name"`
	Position int      `json:"position,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// только цена варианта: compare_at_price null снимает зачёркнутую цену
type variantPriceUpdate struct {
	ID             int64            `json:"id"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
}

// Коллекции

type CustomCollectionPayload struct {
	ID        int64            `json:"id,omitempty"`
	Title     string           `json:"title"`
	BodyHTML  string           `json:"body_html"`
	Published bool             `json:"published"`
	Image     *CollectionImage `json:"image,omitempty"`
}

type CollectionImage struct {
	Src string `json:"src"`
}

type CollectPayload struct {
	ID           int64 `json:"id,omitempty"`
	CollectionID int64 `json:"collection_id"`
	ProductID    int64 `json:"product_id"`
}

// Заказы

type OrderPayload struct {
	ID                  int64             `json:"id"`
	OrderNumber         int64             `json:"order_number"`
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	ContactEmail        string            `json:"contact_email"`
	Phone               string            `json:"phone"`
	Gateway             string            `json:"gateway"`
	PaymentGatewayNames []string          `json:"payment_gateway_names"`
	FinancialStatus     string            `json:"financial_status"`
	FulfillmentStatus   string            `json:"fulfillment_status"`
	Currency            string            `json:"currency"`
	TotalPrice          decimal.Decimal   `json:"total_price"`
	SubtotalPrice       decimal.Decimal   `json:"subtotal_price"`
	TotalTax            decimal.Decimal   `json:"total_tax"`
	TotalDiscounts      decimal.Decimal   `json:"total_discounts"`
	CreatedAt           time.Time         `json:"created_at"`
	ShippingAddress     *AddressPayload   `json:"shipping_address"`
	LineItems           []LineItemPayload `json:"line_items"`
}

type AddressPayload struct {
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

type LineItemPayload struct {
	ID        int64           `json:"id"`
	VariantID int64           `json:"variant_id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
