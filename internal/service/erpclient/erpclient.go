package erpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"

	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service/erpclient/config"
)

// JSON ответ ERP
type ERPAnswer struct {
	Desc       string `json:"desc"`
	ResultCode string `json:"resultCode"`
}

const (
	ERPDescSuccess       = "Success"
	ERPResultCodeSuccess = "000000"
)

var ErrNoERP = errors.New("store has no erp backend")

type Pusher interface {
	// PushOrder возвращает true, если ERP подтвердила заказ.
	PushOrder(ctx context.Context, store model.Store, order model.Order) (bool, error)
}

type erpClient struct {
	cfg  config.Config
	http *resty.Client
	now  func() time.Time
}

func NewERPClient(cfg config.Config) Pusher {
	httpClient := resty.New()
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	return &erpClient{cfg: cfg, http: httpClient, now: time.Now}
}

type erpOrder struct {
	OrderID           string          `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	PaymentMethod     string          `json:"payment_method"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SubtotalPrice     decimal.Decimal `json:"subtotal_price"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	TotalDiscounts    decimal.Decimal `json:"total_discounts"`
	ShippingAddress   erpAddress      `json:"shipping_address"`
	LineItems         []erpLineItem   `json:"line_items"`
	CreatedAt         time.Time       `json:"created_at"`
}

type erpAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}

type erpLineItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	VariantID string          `json:"variant_id"`
	ProductID string          `json:"product_id"`
}

func (client *erpClient) PushOrder(ctx context.Context, store model.Store, order model.Order) (bool, error) {
	path := "/api/order/create"

	if store.ERPBackendURL == "" {
		return false, ErrNoERP
	}

	setreq := client.http.R().SetContext(ctx)
	setreq.Method = http.MethodPost
	setreq.URL = strings.TrimRight(store.ERPBackendURL, "/") + path
	setreq.SetHeader("Content-Type", "application/json")
	setreq.SetBody(client.payload(order))
	if store.ERPAPIKey != "" {
		token, err := client.token(store, order)
		if err != nil {
			return false, err
		}
		setreq.SetAuthToken(token)
	}

	setresp, err := setreq.Send()
	if err != nil {
		return false, err
	}

	switch setresp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		var answer ERPAnswer
		if err = json.Unmarshal(setresp.Body(), &answer); err != nil {
			return false, err
		}
		return answer.Desc == ERPDescSuccess && answer.ResultCode == ERPResultCodeSuccess, nil
	default:
		return false, fmt.Errorf("erp request status: %d", setresp.StatusCode())
	}
}

func (client *erpClient) payload(order model.Order) erpOrder {
	// телефон обязателен для ERP
	phone := order.Shipping.Phone
	if phone == "" {
		phone = order.Phone
	}
	if phone == "" {
		phone = client.cfg.DefaultPhone
	}

	items := make([]erpLineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, erpLineItem{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			VariantID: strconv.FormatInt(item.VariantID, 10),
			ProductID: strconv.FormatInt(item.ProductID, 10),
		})
	}

	return erpOrder{
		OrderID:           strconv.FormatInt(order.OrderID, 10),
		OrderNumber:       order.OrderNumber,
		Name:              order.Name,
		Email:             order.Email,
		Phone:             phone,
		PaymentMethod:     order.PaymentMethod,
		FinancialStatus:   order.FinancialStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		Currency:          order.Currency,
		TotalPrice:        order.TotalPrice,
		SubtotalPrice:     order.SubtotalPrice,
		TotalTax:          order.TotalTax,
		TotalDiscounts:    order.TotalDiscounts,
		ShippingAddress: erpAddress{
			Name:     strings.TrimSpace(order.Shipping.FirstName + " " + order.Shipping.LastName),
			Address1: order.Shipping.Address1,
			Address2: order.Shipping.Address2,
			City:     order.Shipping.City,
			Province: order.Shipping.Province,
			Country:  order.Shipping.Country,
			Zip:      order.Shipping.Zip,
			Phone:    phone,
		},
		LineItems: items,
		CreatedAt: order.OrderCreatedAt,
	}
}

// токен подписывается ключом ERP магазина
func (client *erpClient) token(store model.Store, order model.Order) (string, error) {
	now := client.now()
	claims := jwt.RegisteredClaims{
		Issuer:    "shopsync",
		Subject:   store.Code,
		ID:        strconv.FormatInt(order.OrderID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(client.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(store.ERPAPIKey))
}
