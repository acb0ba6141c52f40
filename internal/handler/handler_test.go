package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auth"
	"github.com/iurnickita/shopsync/internal/discount"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

// passAuth подставляет код магазина из X-Store-Code без проверки токена
type passAuth struct{}

func (passAuth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set(auth.HeaderStoreCodeKey, r.Header.Get("X-Store-Code"))
		h(w, r)
	}
}

func (passAuth) WebhookMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set(auth.HeaderStoreCodeKey, r.URL.Query().Get("store_code"))
		h(w, r)
	}
}

type fakeService struct {
	storeCode    string
	order        shopifyclient.OrderPayload
	product      shopifyclient.ProductPayload
	images       []service.ImageReplace
	collection   service.CollectionInput
	desired      []string
	collectionID int64
	items        []discount.Item
	err          error
}

func (f *fakeService) SyncAllProducts(_ context.Context, storeCode string) (service.ProductSyncResult, error) {
	f.storeCode = storeCode
	return service.ProductSyncResult{Created: 2, Updated: 1}, f.err
}

func (f *fakeService) PushProduct(_ context.Context, storeCode string, p shopifyclient.ProductPayload) (service.ProductPushResult, error) {
	f.storeCode, f.product = storeCode, p
	return service.ProductPushResult{ProductID: 77, Created: p.ID == 0}, f.err
}

func (f *fakeService) SyncOrders(_ context.Context, storeCode string) (service.OrderSyncResult, error) {
	f.storeCode = storeCode
	return service.OrderSyncResult{Created: 1}, f.err
}

func (f *fakeService) HandleOrderCreated(_ context.Context, storeCode string, o shopifyclient.OrderPayload) (service.OrderResult, error) {
	f.storeCode, f.order = storeCode, o
	return service.OrderResult{OrderID: o.ID, ERPSynced: true}, f.err
}

func (f *fakeService) ReplaceProductImages(_ context.Context, storeCode string, batch []service.ImageReplace) (service.ImageBatchResult, error) {
	f.storeCode, f.images = storeCode, batch
	return service.ImageBatchResult{Status: model.BatchStatusSuccess}, f.err
}

func (f *fakeService) UpsertCollection(_ context.Context, storeCode string, in service.CollectionInput) (service.CollectionResult, error) {
	f.storeCode, f.collection = storeCode, in
	return service.CollectionResult{CollectionID: 900, Created: in.ID == 0}, f.err
}

func (f *fakeService) ReconcileCollection(_ context.Context, storeCode string, id int64, desired []string) (service.ReconcileResult, error) {
	f.storeCode, f.collectionID, f.desired = storeCode, id, desired
	return service.ReconcileResult{Status: model.BatchStatusSuccess}, f.err
}

func (f *fakeService) DeleteCollection(_ context.Context, storeCode string, id int64) error {
	f.storeCode, f.collectionID = storeCode, id
	return f.err
}

func (f *fakeService) ApplyDiscounts(_ context.Context, storeCode string, items []discount.Item) (discount.Report, error) {
	f.storeCode, f.items = storeCode, items
	return discount.Report{Success: []string{"A"}, Failed: []discount.Failure{}, Status: model.BatchStatusSuccess}, f.err
}

func (f *fakeService) SweepExpiredDiscounts(context.Context) (int, error) {
	return 0, f.err
}

func newTestRouter(svc service.Service) http.Handler {
	return newHandler(passAuth{}, svc, zap.NewNop()).newRouter()
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("X-Store-Code", "demo")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestPostOrderWebhook(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := do(t, router, http.MethodPost, "/shopify-order-create-webhook?store_code=alpha",
		`{"id": 5001, "order_number": 1001, "total_price": "19.90"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id": 5001, "erp_synced": true}`, w.Body.String())
	assert.Equal(t, "alpha", svc.storeCode)
	assert.Equal(t, "19.9", svc.order.TotalPrice.String())

	svc.err = service.ErrAlreadyProcessed
	w = do(t, router, http.MethodPost, "/shopify/webhooks/create-order?store_code=alpha", `{"id": 5001}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")

	w = do(t, router, http.MethodPost, "/shopify/webhooks/create-order?store_code=alpha", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "insufficient data", err: service.ErrInsufficientData, want: http.StatusBadRequest},
		{name: "unknown store", err: service.ErrUnknownStore, want: http.StatusNotFound},
		{name: "platform rejected", err: &shopifyclient.NonRetryableError{Status: 422}, want: http.StatusBadGateway},
		{name: "retries exhausted", err: &shopifyclient.RetriesExhaustedError{Attempts: 3, Last: &shopifyclient.ServerError{Status: 503}},
			want: http.StatusBadGateway},
		{name: "timeout", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "other", err: assert.AnError, want: http.StatusInternalServerError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router := newTestRouter(&fakeService{err: test.err})
			w := do(t, router, http.MethodPost, "/shopify/products/sync", "")
			assert.Equal(t, test.want, w.Code)
		})
	}
}

func TestPostProduct(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := do(t, router, http.MethodPost, "/shopify/product", `{
		"title": "Mug", "vendor": "ACME", "description": "<p>big</p>",
		"options": [{"name": "Size", "values": ["S", "M"]}],
		"variants": [{"option1": "S", "price": "9.99", "sku": "MUG-S"}, {"option1": "M", "price": 12}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "demo", svc.storeCode)
	assert.Equal(t, "active", svc.product.Status)
	assert.Equal(t, "<p>big</p>", svc.product.BodyHTML)
	require.Len(t, svc.product.Variants, 2)
	assert.Equal(t, "12", svc.product.Variants[1].Price.String())
	assert.Equal(t, "M", *svc.product.Variants[1].Option1)
	assert.Nil(t, svc.product.Variants[1].Option2)

	w = do(t, router, http.MethodPost, "/shopify/product", `{"title": "Mug"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, router, http.MethodPost, "/shopify/product", `{"title": "Mug", "vendor": "ACME", "status": "deleted"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPostImageReplace(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := do(t, router, http.MethodPost, "/shopify/product/image/replace", `{"products": [
		{"shopify_product_id": 10, "images": [{"url": "https://cdn.example.com/a.png", "variant_id": 5}, {"url": "https://cdn.example.com/b.png"}]}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.images, 1)
	assert.Equal(t, int64(10), svc.images[0].ProductID)
	assert.Equal(t, []int64{5}, svc.images[0].Images[0].VariantIDs)
	assert.Equal(t, 2, svc.images[0].Images[1].Position)

	w = do(t, router, http.MethodPost, "/shopify/product/image/replace",
		`{"products": [{"shopify_product_id": 10, "images": [{"url": "not a url"}]}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCollectionRoutes(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := do(t, router, http.MethodPost, "/shopify/collections",
		`{"title": "Summer", "product_ids": [101, "102", "abc"], "published": false}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"101", "102", "abc"}, svc.collection.ProductIDs)
	assert.False(t, svc.collection.Published)

	w = do(t, router, http.MethodPost, "/shopify/collections", `{"title": "Summer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, router, http.MethodPut, "/shopify/collections/900/products", `{"product_ids": [1, 2]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(900), svc.collectionID)
	assert.Equal(t, []string{"1", "2"}, svc.desired)

	w = do(t, router, http.MethodDelete, "/shopify/collections/901", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(901), svc.collectionID)

	w = do(t, router, http.MethodDelete, "/shopify/collections/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostDiscounts(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := do(t, router, http.MethodPost, "/shopify/product/discounts", `{"discounts": [{
		"sku": "A", "shopify_product_id": "11", "shopify_variant_id": 22,
		"original_price": "10.00", "discounted_price": 8,
		"start_date": "2025-06-01", "end_date": "2025-06-30"
	}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report discount.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, model.BatchStatusSuccess, report.Status)

	require.Len(t, svc.items, 1)
	item := svc.items[0]
	assert.Equal(t, int64(11), item.ShopifyProductID)
	assert.Equal(t, int64(22), item.ShopifyVariantID)
	assert.Equal(t, "8", item.DiscountedPrice.String())
	// окончание - до конца дня
	assert.Equal(t, "2025-06-30T23:59:59Z", item.EndDate.Format("2006-01-02T15:04:05Z07:00"))

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty", body: `{"discounts": []}`, want: http.StatusUnprocessableEntity},
		{name: "bad date", body: `{"discounts": [{"sku": "A", "shopify_product_id": "1", "shopify_variant_id": "2", "original_price": 1, "end_date": "30.06.2025"}]}`,
			want: http.StatusUnprocessableEntity},
		{name: "bad variant", body: `{"discounts": [{"sku": "A", "shopify_product_id": "1", "shopify_variant_id": "x", "original_price": 1}]}`,
			want: http.StatusBadRequest},
		{name: "zero price", body: `{"discounts": [{"sku": "A", "shopify_product_id": "1", "shopify_variant_id": "2", "original_price": 0}]}`,
			want: http.StatusBadRequest},
		{name: "end before start", body: `{"discounts": [{"sku": "A", "shopify_product_id": "1", "shopify_variant_id": "2", "original_price": 1, "start_date": "2025-06-10", "end_date": "2025-06-01"}]}`,
			want: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/shopify/product/discounts", test.body)
			assert.Equal(t, test.want, w.Code)
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(&fakeService{})
	w := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
