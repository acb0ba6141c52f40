package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

type ProductSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type ProductPushResult struct {
	ProductID int64 `json:"product_id"`
	Created   bool  `json:"created"`
}

// SyncAllProducts выгружает каталог магазина постранично и сохраняет локально.
// Ошибка сохранения одного товара не прерывает выгрузку.
func (service *service) SyncAllProducts(ctx context.Context, storeCode string) (ProductSyncResult, error) {
	var result ProductSyncResult

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return result, err
	}
	st := client.Store()

	products := shopifyclient.Walk[shopifyclient.ProductPayload](ctx, client, "products.json", nil, "products", client.PageSize())
	for p, err := range products {
		if err != nil {
			// частичный результат возвращается вместе с ошибкой
			return result, err
		}
		created, err := service.store.ProductSave(ctx, productFromPayload(st.ID, p))
		if err != nil {
			result.Failed++
			metrics.SyncItemsTotal.WithLabelValues("product", "failed").Inc()
			service.zaplog.Warn("product save",
				zap.String("store_code", storeCode),
				zap.Int64("product_id", p.ID),
				zap.Error(err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		metrics.SyncItemsTotal.WithLabelValues("product", "saved").Inc()
	}

	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "product_sync", Status: auditlog.StatusSuccess, Payload: result})
	service.zaplog.Info("products synced",
		zap.String("store_code", storeCode),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))
	return result, nil
}

// PushProduct создаёт или обновляет товар на платформе и сохраняет ответ платформы.
// Товар с id, которого нет на платформе, создаётся заново.
func (service *service) PushProduct(ctx context.Context, storeCode string, product shopifyclient.ProductPayload) (ProductPushResult, error) {
	if product.Title == "" {
		return ProductPushResult{}, ErrInsufficientData
	}

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return ProductPushResult{}, err
	}
	st := client.Store()

	exists := false
	if product.ID != 0 {
		_, exists, err = client.GetProduct(ctx, product.ID)
		if err != nil {
			return ProductPushResult{}, err
		}
	}

	var saved shopifyclient.ProductPayload
	if exists {
		saved, err = client.UpdateProduct(ctx, product)
	} else {
		saved, err = client.CreateProduct(ctx, product)
	}
	if err != nil {
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "product_push", ResourceID: strconv.FormatInt(product.ID, 10),
			Status: auditlog.StatusFailed, Message: err.Error()})
		return ProductPushResult{}, err
	}

	if _, err := service.store.ProductSave(ctx, productFromPayload(st.ID, saved)); err != nil {
		// на платформе товар уже сохранён; локальная копия догонит при следующей выгрузке
		service.zaplog.Error("product save after push",
			zap.String("store_code", storeCode),
			zap.Int64("product_id", saved.ID),
			zap.Error(err))
	}

	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "product_push", ResourceID: strconv.FormatInt(saved.ID, 10),
		Status: auditlog.StatusSuccess})
	return ProductPushResult{ProductID: saved.ID, Created: !exists}, nil
}
