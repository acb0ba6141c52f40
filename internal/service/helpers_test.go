package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/discount"
	discountConfig "github.com/iurnickita/shopsync/internal/discount/config"
	"github.com/iurnickita/shopsync/internal/idempotency"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/secret"
	secretConfig "github.com/iurnickita/shopsync/internal/secret/config"
	"github.com/iurnickita/shopsync/internal/service/config"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
	shopifyConfig "github.com/iurnickita/shopsync/internal/service/shopifyclient/config"
	"github.com/iurnickita/shopsync/internal/store"
)

const apiPrefix = "/admin/api/2025-07/"

// fakePlatform - магазин в памяти с REST-ресурсами платформы
type fakePlatform struct {
	mu     sync.Mutex
	nextID int64

	products    map[int64]shopifyclient.ProductPayload
	images      map[int64][]shopifyclient.ImagePayload
	collections map[int64]shopifyclient.CustomCollectionPayload
	collects    []shopifyclient.CollectPayload
	orders      []shopifyclient.OrderPayload
	prices      map[int64]string

	// src изображений, на которых платформа отвечает 422
	badImages map[string]bool
	// товары, для которых связь уже существует
	memberConflict map[int64]bool
	calls          map[string]int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:         1000,
		products:       map[int64]shopifyclient.ProductPayload{},
		images:         map[int64][]shopifyclient.ImagePayload{},
		collections:    map[int64]shopifyclient.CustomCollectionPayload{},
		prices:         map[int64]string{},
		badImages:      map[string]bool{},
		memberConflict: map[int64]bool{},
		calls:          map[string]int{},
	}
}

func (p *fakePlatform) id() int64 {
	p.nextID++
	return p.nextID
}

func (p *fakePlatform) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func fileID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(strings.TrimSuffix(r.PathValue("file"), ".json"), 10, 64)
	return id
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (p *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()
	h := func(pattern string, fn func(w http.ResponseWriter, r *http.Request)) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+apiPrefix+path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Shopify-Access-Token") != "shpat_demo" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"errors": "invalid token"})
				return
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			p.calls[pattern]++
			fn(w, r)
		})
	}

	h("GET products.json", func(w http.ResponseWriter, r *http.Request) {
		ids := make([]int64, 0, len(p.products))
		for id := range p.products {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("page_info"))
		end := min(offset+limit, len(ids))
		page := []shopifyclient.ProductPayload{}
		for _, id := range ids[offset:end] {
			page = append(page, p.products[id])
		}
		if end < len(ids) {
			next := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path,
				RawQuery: url.Values{"limit": {strconv.Itoa(limit)}, "page_info": {strconv.Itoa(end)}}.Encode()}
			w.Header().Set("Link", fmt.Sprintf("<%s>; rel=\"next\"", next.String()))
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": page})
	})
	h("GET products/{file}", func(w http.ResponseWriter, r *http.Request) {
		prod, ok := p.products[fileID(r)]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": prod})
	})
	h("POST products.json", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Product shopifyclient.ProductPayload `json:"product"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		in.Product.ID = p.id()
		p.products[in.Product.ID] = in.Product
		writeJSON(w, http.StatusCreated, in)
	})
	h("PUT products/{file}", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Product shopifyclient.ProductPayload `json:"product"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		in.Product.ID = fileID(r)
		p.products[in.Product.ID] = in.Product
		writeJSON(w, http.StatusOK, in)
	})
	h("PUT variants/{file}", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Variant struct {
				Price string `json:"price"`
			} `json:"variant"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		p.prices[fileID(r)] = in.Variant.Price
		writeJSON(w, http.StatusOK, in)
	})

	h("GET products/{id}/images.json", func(w http.ResponseWriter, r *http.Request) {
		images := append([]shopifyclient.ImagePayload{}, p.images[pathID(r, "id")]...)
		writeJSON(w, http.StatusOK, map[string]any{"images": images})
	})
	h("POST products/{id}/images.json", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Image shopifyclient.ImagePayload `json:"image"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if p.badImages[in.Image.Src] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": map[string][]string{"image": {"could not be downloaded"}}})
			return
		}
		productID := pathID(r, "id")
		in.Image.ID = p.id()
		in.Image.ProductID = productID
		p.images[productID] = append(p.images[productID], in.Image)
		writeJSON(w, http.StatusOK, in)
	})
	h("DELETE products/{id}/images/{file}", func(w http.ResponseWriter, r *http.Request) {
		productID, imageID := pathID(r, "id"), fileID(r)
		kept := p.images[productID][:0]
		found := false
		for _, img := range p.images[productID] {
			if img.ID == imageID {
				found = true
				continue
			}
			kept = append(kept, img)
		}
		p.images[productID] = kept
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	h("GET custom_collections/{file}", func(w http.ResponseWriter, r *http.Request) {
		cc, ok := p.collections[fileID(r)]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"custom_collection": cc})
	})
	h("POST custom_collections.json", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CustomCollection shopifyclient.CustomCollectionPayload `json:"custom_collection"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		in.CustomCollection.ID = p.id()
		p.collections[in.CustomCollection.ID] = in.CustomCollection
		writeJSON(w, http.StatusCreated, in)
	})
	h("PUT custom_collections/{file}", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CustomCollection shopifyclient.CustomCollectionPayload `json:"custom_collection"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		in.CustomCollection.ID = fileID(r)
		p.collections[in.CustomCollection.ID] = in.CustomCollection
		writeJSON(w, http.StatusOK, in)
	})
	h("DELETE custom_collections/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := fileID(r)
		if _, ok := p.collections[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
			return
		}
		delete(p.collections, id)
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	h("GET collects.json", func(w http.ResponseWriter, r *http.Request) {
		collectionID, _ := strconv.ParseInt(r.URL.Query().Get("collection_id"), 10, 64)
		out := []shopifyclient.CollectPayload{}
		for _, c := range p.collects {
			if c.CollectionID == collectionID {
				out = append(out, c)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"collects": out})
	})
	h("POST collects.json", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Collect shopifyclient.CollectPayload `json:"collect"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if p.memberConflict[in.Collect.ProductID] {
			writeJSON(w, http.StatusUnprocessableEntity,
				map[string]any{"errors": map[string][]string{"product_id": {"already exists in this collection"}}})
			return
		}
		in.Collect.ID = p.id()
		p.collects = append(p.collects, in.Collect)
		writeJSON(w, http.StatusCreated, in)
	})
	h("DELETE collects/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := fileID(r)
		kept := p.collects[:0]
		for _, c := range p.collects {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		p.collects = kept
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	h("GET orders.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "any" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"errors": "status filter expected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": p.orders})
	})

	return mux
}

func (p *fakePlatform) members(collectionID int64) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []int64{}
	for _, c := range p.collects {
		if c.CollectionID == collectionID {
			out = append(out, c.ProductID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *fakePlatform) imageSrcs(productID int64) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, img := range p.images[productID] {
		out = append(out, img.Src)
	}
	return out
}

// memStore - store.Store в памяти
type memStore struct {
	mu          sync.Mutex
	stores      map[string]model.Store
	products    map[int64]model.Product
	collections map[int64]model.Collection
	orders      map[int64]model.Order
	discounts   map[string]model.Discount
	logs        []model.ActionLog
}

func newMemStore(stores ...model.Store) *memStore {
	s := &memStore{
		stores:      map[string]model.Store{},
		products:    map[int64]model.Product{},
		collections: map[int64]model.Collection{},
		orders:      map[int64]model.Order{},
		discounts:   map[string]model.Discount{},
	}
	for _, st := range stores {
		s.stores[st.Code] = st
	}
	return s
}

func (s *memStore) StoreGetByCode(_ context.Context, code string) (model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[code]
	if !ok {
		return model.Store{}, store.ErrNoRows
	}
	return st, nil
}

func (s *memStore) ProductSave(_ context.Context, product model.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.products[product.ShopifyProductID]
	s.products[product.ShopifyProductID] = product
	return !exists, nil
}

func (s *memStore) CollectionUpsert(_ context.Context, collection model.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection.ShopifyCollectionID] = collection
	return nil
}

func (s *memStore) CollectionDelete(_ context.Context, _ int64, collectionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collectionID)
	return nil
}

func (s *memStore) OrderExists(_ context.Context, _ int64, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.orders[orderID]
	return ok, nil
}

func (s *memStore) OrderCreate(_ context.Context, order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; ok {
		return store.ErrAlreadyExists
	}
	s.orders[order.OrderID] = order
	return nil
}

func (s *memStore) OrderUpsert(_ context.Context, order model.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.orders[order.OrderID]
	s.orders[order.OrderID] = order
	return !exists, nil
}

func (s *memStore) OrderSetERPSynced(_ context.Context, _ int64, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return store.ErrNoRows
	}
	o.ERPSynced = true
	s.orders[orderID] = o
	return nil
}

func (s *memStore) DiscountUpsert(_ context.Context, d model.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[d.SKU] = d
	return nil
}

func (s *memStore) DiscountListExpired(_ context.Context, _ time.Time) ([]model.Discount, error) {
	return nil, nil
}

func (s *memStore) DiscountMarkReverted(_ context.Context, _ int64) error {
	return nil
}

func (s *memStore) ActionLogInsert(_ context.Context, rec model.ActionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, rec)
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeERP struct {
	mu     sync.Mutex
	pushed []int64
	accept bool
	err    error
}

func (e *fakeERP) PushOrder(_ context.Context, _ model.Store, order model.Order) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushed = append(e.pushed, order.OrderID)
	return e.accept, e.err
}

type testEnv struct {
	service  Service
	platform *fakePlatform
	store    *memStore
	erp      *fakeERP
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	platform := newFakePlatform()
	srv := httptest.NewServer(platform.handler())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	box, err := secret.NewBox(secretConfig.Config{
		Key: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("s", 32))),
	})
	require.NoError(t, err)
	sealed, err := box.Seal("shpat_demo")
	require.NoError(t, err)

	mem := newMemStore(model.Store{ID: 7, Code: "demo", ShopDomain: u.Host, AccessToken: sealed})

	binder := shopifyclient.NewBinder(shopifyConfig.Config{
		APIVersion:   "2025-07",
		Scheme:       "http",
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		PageSize:     2,
	}, mem, box, auditlog.Nop(), zap.NewNop())
	binder.SetSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

	engine := discount.NewEngine(discountConfig.Config{SweepConcurrency: 1}, mem, BindRemote(binder), auditlog.Nop(), zap.NewNop())
	erp := &fakeERP{accept: true}

	s, err := NewService(cfg, mem, binder, erp, idempotency.NewMemoryGuard(), engine, auditlog.Nop(), zap.NewNop())
	require.NoError(t, err)

	return &testEnv{service: s, platform: platform, store: mem, erp: erp}
}

func enabledConfig() config.Config {
	return config.Config{OrderWebhookEnabled: true, ERPPushEnabled: true, WebhookDedupTTL: time.Hour}
}
