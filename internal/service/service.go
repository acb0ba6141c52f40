package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/discount"
	"github.com/iurnickita/shopsync/internal/idempotency"
	"github.com/iurnickita/shopsync/internal/service/config"
	"github.com/iurnickita/shopsync/internal/service/erpclient"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
	"github.com/iurnickita/shopsync/internal/store"
)

type Service interface {
	SyncAllProducts(ctx context.Context, storeCode string) (ProductSyncResult, error)
	PushProduct(ctx context.Context, storeCode string, product shopifyclient.ProductPayload) (ProductPushResult, error)
	SyncOrders(ctx context.Context, storeCode string) (OrderSyncResult, error)
	HandleOrderCreated(ctx context.Context, storeCode string, order shopifyclient.OrderPayload) (OrderResult, error)
	ReplaceProductImages(ctx context.Context, storeCode string, batch []ImageReplace) (ImageBatchResult, error)
	UpsertCollection(ctx context.Context, storeCode string, in CollectionInput) (CollectionResult, error)
	ReconcileCollection(ctx context.Context, storeCode string, collectionID int64, desired []string) (ReconcileResult, error)
	DeleteCollection(ctx context.Context, storeCode string, collectionID int64) error
	ApplyDiscounts(ctx context.Context, storeCode string, items []discount.Item) (discount.Report, error)
	SweepExpiredDiscounts(ctx context.Context) (int, error)
}

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownStore     = errors.New("unknown store")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrWebhookDisabled  = errors.New("webhook disabled")
)

type service struct {
	cfg       config.Config
	store     store.Store
	binder    *shopifyclient.Binder
	erp       erpclient.Pusher
	guard     idempotency.Guard
	discounts *discount.Engine
	audit     auditlog.Logger
	zaplog    *zap.Logger
}

func NewService(cfg config.Config,
	store store.Store,
	binder *shopifyclient.Binder,
	erp erpclient.Pusher,
	guard idempotency.Guard,
	discounts *discount.Engine,
	audit auditlog.Logger,
	zaplog *zap.Logger) (Service, error) {

	if store == nil || binder == nil || discounts == nil {
		return nil, ErrInsufficientData
	}

	service := service{
		cfg:       cfg,
		store:     store,
		binder:    binder,
		erp:       erp,
		guard:     guard,
		discounts: discounts,
		audit:     audit,
		zaplog:    zaplog,
	}

	return &service, nil
}

// BindRemote - привязка клиента для движка скидок.
func BindRemote(binder *shopifyclient.Binder) discount.Binder {
	return func(ctx context.Context, storeCode string) (discount.Remote, error) {
		client, err := binder.Bind(ctx, storeCode)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// одна привязка клиента на единицу работы
func (service *service) bind(ctx context.Context, storeCode string) (*shopifyclient.Client, error) {
	if storeCode == "" {
		return nil, ErrInsufficientData
	}
	client, err := service.binder.Bind(ctx, storeCode)
	if err != nil {
		if errors.Is(err, shopifyclient.ErrAuth) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownStore, err)
		}
		return nil, err
	}
	return client, nil
}

func (service *service) ApplyDiscounts(ctx context.Context, storeCode string, items []discount.Item) (discount.Report, error) {
	if len(items) == 0 {
		return discount.Report{}, ErrInsufficientData
	}
	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return discount.Report{}, err
	}
	return service.discounts.Apply(ctx, client.Store().ID, client, items), nil
}

func (service *service) SweepExpiredDiscounts(ctx context.Context) (int, error) {
	return service.discounts.Sweep(ctx)
}
