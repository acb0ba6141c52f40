package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
	"github.com/iurnickita/shopsync/internal/store"
)

type OrderSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type OrderResult struct {
	OrderID   int64 `json:"order_id"`
	ERPSynced bool  `json:"erp_synced"`
}

// SyncOrders выгружает все заказы магазина (status=any) и сохраняет их.
func (service *service) SyncOrders(ctx context.Context, storeCode string) (OrderSyncResult, error) {
	var result OrderSyncResult

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return result, err
	}
	st := client.Store()

	query := url.Values{"status": {"any"}}
	orders := shopifyclient.Walk[shopifyclient.OrderPayload](ctx, client, "orders.json", query, "orders", client.PageSize())
	for o, err := range orders {
		if err != nil {
			return result, err
		}
		created, err := service.store.OrderUpsert(ctx, orderFromPayload(st.ID, o))
		if err != nil {
			result.Failed++
			metrics.SyncItemsTotal.WithLabelValues("order", "failed").Inc()
			service.zaplog.Warn("order upsert",
				zap.String("store_code", storeCode),
				zap.Int64("order_id", o.ID),
				zap.Error(err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		metrics.SyncItemsTotal.WithLabelValues("order", "saved").Inc()
	}

	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "order_sync", Status: auditlog.StatusSuccess, Payload: result})
	return result, nil
}

// HandleOrderCreated обрабатывает вебхук создания заказа ровно один раз:
// повторная доставка того же заказа возвращает ErrAlreadyProcessed.
func (service *service) HandleOrderCreated(ctx context.Context, storeCode string, payload shopifyclient.OrderPayload) (OrderResult, error) {
	if !service.cfg.OrderWebhookEnabled {
		return OrderResult{}, ErrWebhookDisabled
	}
	if payload.ID == 0 {
		return OrderResult{}, ErrInsufficientData
	}

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return OrderResult{}, err
	}
	st := client.Store()
	resourceID := strconv.FormatInt(payload.ID, 10)

	// быстрый отсев параллельных доставок
	key := fmt.Sprintf("%s:%d", storeCode, payload.ID)
	acquired, err := service.guard.Acquire(ctx, key, service.cfg.WebhookDedupTTL)
	if err != nil {
		// окончательное решение - за уникальным ключом в БД
		service.zaplog.Warn("webhook guard", zap.String("key", key), zap.Error(err))
		acquired = true
	}
	if !acquired {
		return OrderResult{}, ErrAlreadyProcessed
	}

	exists, err := service.store.OrderExists(ctx, st.ID, payload.ID)
	if err != nil {
		service.release(ctx, key)
		return OrderResult{}, err
	}
	if exists {
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "order_webhook", ResourceID: resourceID,
			Status: auditlog.StatusSkipped, Message: "duplicate delivery"})
		return OrderResult{}, ErrAlreadyProcessed
	}

	order := orderFromPayload(st.ID, payload)
	if err := service.store.OrderCreate(ctx, order); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return OrderResult{}, ErrAlreadyProcessed
		}
		service.release(ctx, key)
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "order_webhook", ResourceID: resourceID,
			Status: auditlog.StatusFailed, Message: err.Error()})
		return OrderResult{}, err
	}
	metrics.SyncItemsTotal.WithLabelValues("order", "saved").Inc()
	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "order_webhook", ResourceID: resourceID,
		Status: auditlog.StatusSuccess})

	result := OrderResult{OrderID: payload.ID}
	if service.cfg.ERPPushEnabled && service.erp != nil {
		result.ERPSynced = service.pushToERP(ctx, st, order)
	}
	return result, nil
}

// pushToERP - сбой ERP не отменяет сохранённый заказ.
func (service *service) pushToERP(ctx context.Context, st model.Store, order model.Order) bool {
	resourceID := strconv.FormatInt(order.OrderID, 10)

	ok, err := service.erp.PushOrder(ctx, st, order)
	if err != nil || !ok {
		msg := "rejected by erp"
		if err != nil {
			msg = err.Error()
		}
		service.zaplog.Warn("erp push",
			zap.String("store_code", st.Code),
			zap.Int64("order_id", order.OrderID),
			zap.String("reason", msg))
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "erp_push", ResourceID: resourceID,
			Status: auditlog.StatusFailed, Message: msg})
		return false
	}

	if err := service.store.OrderSetERPSynced(ctx, st.ID, order.OrderID); err != nil {
		service.zaplog.Error("order erp flag", zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "erp_push", ResourceID: resourceID,
		Status: auditlog.StatusSuccess})
	return true
}

func (service *service) release(ctx context.Context, key string) {
	if err := service.guard.Release(ctx, key); err != nil {
		service.zaplog.Warn("webhook guard release", zap.String("key", key), zap.Error(err))
	}
}
