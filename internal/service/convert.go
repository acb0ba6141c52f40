package service

import (
	"strconv"

	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

func productFromPayload(storeID int64, p shopifyclient.ProductPayload) model.Product {
	product := model.Product{
		StoreID:          storeID,
		ShopifyProductID: p.ID,
		Title:            p.Title,
		BodyHTML:         p.BodyHTML,
		Vendor:           p.Vendor,
		ProductType:      p.ProductType,
		Handle:           p.Handle,
		Status:           p.Status,
		Tags:             p.Tags,
		PublishedAt:      p.PublishedAt,
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, model.Variant{
			ShopifyVariantID:  v.ID,
			SKU:               v.SKU,
			Title:             v.Title,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			InventoryQuantity: v.InventoryQuantity,
			Barcode:           v.Barcode,
			Position:          v.Position,
		})
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, model.Image{
			ShopifyImageID: img.ID,
			Src:            img.Src,
			Alt:            img.Alt,
			Position:       img.Position,
		})
	}
	for _, opt := range p.Options {
		product.Options = append(product.Options, model.Option{
			ShopifyOptionID: opt.ID,
			Name:            opt.Name,
			Position:        opt.Position,
			Values:          opt.Values,
		})
	}
	return product
}

func orderFromPayload(storeID int64, o shopifyclient.OrderPayload) model.Order {
	order := model.Order{
		StoreID:           storeID,
		OrderID:           o.ID,
		OrderNumber:       strconv.FormatInt(o.OrderNumber, 10),
		Name:              o.Name,
		Email:             o.Email,
		Phone:             o.Phone,
		PaymentMethod:     o.Gateway,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Currency:          o.Currency,
		TotalPrice:        o.TotalPrice,
		SubtotalPrice:     o.SubtotalPrice,
		TotalTax:          o.TotalTax,
		TotalDiscounts:    o.TotalDiscounts,
		OrderCreatedAt:    o.CreatedAt,
	}
	if order.Email == "" {
		order.Email = o.ContactEmail
	}
	if order.PaymentMethod == "" && len(o.PaymentGatewayNames) > 0 {
		order.PaymentMethod = o.PaymentGatewayNames[0]
	}
	if a := o.ShippingAddress; a != nil {
		order.Shipping = model.ShippingAddress{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Address1:  a.Address1,
			Address2:  a.Address2,
			City:      a.City,
			Province:  a.Province,
			Country:   a.Country,
			Zip:       a.Zip,
			Phone:     a.Phone,
		}
	}
	for _, item := range o.LineItems {
		order.LineItems = append(order.LineItems, model.OrderLineItem{
			ShopifyLineItemID: item.ID,
			VariantID:         item.VariantID,
			ProductID:         item.ProductID,
			SKU:               item.SKU,
			Name:              item.Name,
			Quantity:          item.Quantity,
			Price:             item.Price,
		})
	}
	return order
}
