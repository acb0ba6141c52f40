package discount

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/discount/config"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/model"
)

const dateLayout = "2006-01-02"

// Remote - изменение цены варианта на платформе (shopifyclient.Client).
type Remote interface {
	UpdateVariantPrice(ctx context.Context, variantID int64, price decimal.Decimal, compareAt *decimal.Decimal) error
}

// Binder выдаёт Remote по коду магазина.
type Binder func(ctx context.Context, storeCode string) (Remote, error)

type Store interface {
	DiscountUpsert(ctx context.Context, discount model.Discount) error
	DiscountListExpired(ctx context.Context, now time.Time) ([]model.Discount, error)
	DiscountMarkReverted(ctx context.Context, id int64) error
}

// Item - запрошенная скидка на один SKU.
// Без DiscountedPrice применяется исходная цена без зачёркнутой.
type Item struct {
	SKU              string
	ShopifyProductID int64
	ShopifyVariantID int64
	OriginalPrice    decimal.Decimal
	DiscountedPrice  *decimal.Decimal
	StartDate        *time.Time
	EndDate          *time.Time
}

type Failure struct {
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
}

type Report struct {
	Success []string          `json:"success"`
	Failed  []Failure         `json:"failed"`
	Status  model.BatchStatus `json:"status"`
}

type Engine struct {
	cfg    config.Config
	store  Store
	bind   Binder
	audit  auditlog.Logger
	zaplog *zap.Logger
	now    func() time.Time
}

func NewEngine(cfg config.Config, store Store, bind Binder, audit auditlog.Logger, zaplog *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		bind:   bind,
		audit:  audit,
		zaplog: zaplog,
		now:    time.Now,
	}
}

// SetClock подменяет текущее время.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Apply применяет скидки одного магазина по очереди.
// Ошибка по одному SKU не останавливает остальные.
func (e *Engine) Apply(ctx context.Context, storeID int64, remote Remote, items []Item) Report {
	report := Report{Success: []string{}, Failed: []Failure{}}
	now := e.now()

	for _, item := range items {
		// проверка дат - до обращения к платформе, строка не пишется
		if item.StartDate != nil && item.StartDate.After(now) {
			report.Failed = append(report.Failed, Failure{
				SKU:    item.SKU,
				Reason: fmt.Sprintf("discount start date %s has not arrived", item.StartDate.Format(dateLayout)),
			})
			continue
		}
		if item.EndDate != nil && item.EndDate.Before(now) {
			report.Failed = append(report.Failed, Failure{
				SKU:    item.SKU,
				Reason: fmt.Sprintf("discount end date %s has passed", item.EndDate.Format(dateLayout)),
			})
			continue
		}

		price, compareAt := item.OriginalPrice, (*decimal.Decimal)(nil)
		if item.DiscountedPrice != nil {
			original := item.OriginalPrice
			price, compareAt = *item.DiscountedPrice, &original
		}

		remoteErr := remote.UpdateVariantPrice(ctx, item.ShopifyVariantID, price, compareAt)

		row := model.Discount{
			StoreID:          storeID,
			SKU:              item.SKU,
			ShopifyProductID: item.ShopifyProductID,
			ShopifyVariantID: item.ShopifyVariantID,
			OriginalPrice:    item.OriginalPrice,
			DiscountedPrice:  item.DiscountedPrice,
			StartDate:        item.StartDate,
			EndDate:          item.EndDate,
			Status:           model.DiscountStatusActive,
			ShopifySynced:    true,
		}
		if remoteErr != nil {
			row.Status = model.DiscountStatusFailed
			row.ShopifySynced = false
		}

		storeErr := e.store.DiscountUpsert(ctx, row)

		switch {
		case remoteErr != nil:
			report.Failed = append(report.Failed, Failure{SKU: item.SKU, Reason: remoteErr.Error()})
			metrics.SyncItemsTotal.WithLabelValues("discount", "failed").Inc()
			e.audit.Log(auditlog.Entry{StoreID: storeID, Type: "discount_apply", ResourceID: item.SKU,
				Status: auditlog.StatusFailed, Message: remoteErr.Error(), Payload: item})
		case storeErr != nil:
			// цена на платформе уже изменена, локальная запись не сохранилась
			report.Failed = append(report.Failed, Failure{SKU: item.SKU, Reason: "saved remotely, local write failed: " + storeErr.Error()})
			e.zaplog.Error("discount upsert", zap.String("sku", item.SKU), zap.Error(storeErr))
		default:
			report.Success = append(report.Success, item.SKU)
			metrics.SyncItemsTotal.WithLabelValues("discount", "applied").Inc()
			e.audit.Log(auditlog.Entry{StoreID: storeID, Type: "discount_apply", ResourceID: item.SKU,
				Status: auditlog.StatusSuccess, Payload: item})
		}
	}

	report.Status = model.BatchStatusOf(len(report.Success), len(report.Failed))
	return report
}

// Sweep откатывает все просроченные скидки. Магазины обрабатываются параллельно,
// скидки одного магазина - по очереди. Возвращает число откатанных.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	now := e.now()
	runID := uuid.NewString()

	expired, err := e.store.DiscountListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	byStore := make(map[string][]model.Discount)
	for _, d := range expired {
		byStore[d.StoreCode] = append(byStore[d.StoreCode], d)
	}

	var reverted atomic.Int64
	var g errgroup.Group
	g.SetLimit(max(e.cfg.SweepConcurrency, 1))
	for code, discounts := range byStore {
		g.Go(func() error {
			reverted.Add(int64(e.sweepStore(ctx, runID, code, discounts)))
			return nil
		})
	}
	g.Wait()

	n := int(reverted.Load())
	e.zaplog.Info("discount sweep finished",
		zap.String("run_id", runID),
		zap.Int("expired", len(expired)),
		zap.Int("reverted", n))
	return n, nil
}

func (e *Engine) sweepStore(ctx context.Context, runID, storeCode string, discounts []model.Discount) int {
	remote, err := e.bind(ctx, storeCode)
	if err != nil {
		// сбой магазина не влияет на остальные; строки останутся до следующего прохода
		e.zaplog.Error("discount sweep bind", zap.String("store_code", storeCode), zap.Error(err))
		e.audit.Log(auditlog.Entry{StoreID: discounts[0].StoreID, Type: "discount_revert",
			Status: auditlog.StatusFailed, Message: err.Error(), Payload: map[string]string{"run_id": runID}})
		return 0
	}

	n := 0
	for _, d := range discounts {
		if ctx.Err() != nil {
			return n
		}
		if err := e.revert(ctx, remote, d); err != nil {
			e.zaplog.Warn("discount revert",
				zap.String("store_code", storeCode),
				zap.String("sku", d.SKU),
				zap.Error(err))
			e.audit.Log(auditlog.Entry{StoreID: d.StoreID, Type: "discount_revert", ResourceID: d.SKU,
				Status: auditlog.StatusFailed, Message: err.Error(), Payload: map[string]string{"run_id": runID}})
			continue
		}
		n++
		metrics.DiscountsRevertedTotal.Inc()
		e.audit.Log(auditlog.Entry{StoreID: d.StoreID, Type: "discount_revert", ResourceID: d.SKU,
			Status: auditlog.StatusSuccess, Payload: map[string]string{"run_id": runID, "id": strconv.FormatInt(d.ID, 10)}})
	}
	return n
}

func (e *Engine) revert(ctx context.Context, remote Remote, d model.Discount) error {
	if err := remote.UpdateVariantPrice(ctx, d.ShopifyVariantID, d.OriginalPrice, nil); err != nil {
		return err
	}
	return e.store.DiscountMarkReverted(ctx, d.ID)
}
