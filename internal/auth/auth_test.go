package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/secret"
	"github.com/iurnickita/shopsync/internal/secret/config"
	"github.com/iurnickita/shopsync/internal/store"
)

type fakeStores map[string]model.Store

func (f fakeStores) StoreGetByCode(_ context.Context, code string) (model.Store, error) {
	if code == "down" {
		return model.Store{}, errors.New("connection refused")
	}
	st, ok := f[code]
	if !ok {
		return model.Store{}, store.ErrNoRows
	}
	return st, nil
}

func newTestAuth(t *testing.T) Auth {
	t.Helper()
	box, err := secret.NewBox(config.Config{
		Key: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", 32))),
	})
	require.NoError(t, err)
	sealed, err := box.Seal("shpat_good")
	require.NoError(t, err)

	return NewAuth(fakeStores{
		"demo":   {ID: 1, Code: "demo", AccessToken: sealed},
		"broken": {ID: 2, Code: "broken", AccessToken: "not-sealed"},
	}, box, zap.NewNop())
}

func echoStoreCode(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.Header.Get(HeaderStoreCodeKey)))
}

func TestMiddleware(t *testing.T) {
	a := newTestAuth(t)
	h := a.Middleware(echoStoreCode)

	tests := []struct {
		name     string
		target   string
		header   map[string]string
		wantCode int
		wantBody string
	}{
		{name: "no store code", target: "/x", wantCode: http.StatusBadRequest},
		{name: "unknown store", target: "/x", header: map[string]string{"X-Store-Code": "nope"}, wantCode: http.StatusNotFound},
		{name: "lookup failure", target: "/x?store_code=down", wantCode: http.StatusInternalServerError},
		{name: "missing token", target: "/x", header: map[string]string{"X-Store-Code": "demo"}, wantCode: http.StatusUnauthorized},
		{name: "wrong token", target: "/x",
			header:   map[string]string{"X-Store-Code": "demo", "X-Shopify-Access-Token": "shpat_bad"},
			wantCode: http.StatusUnauthorized},
		{name: "undecryptable token", target: "/x",
			header:   map[string]string{"X-Store-Code": "broken", "X-Shopify-Access-Token": "not-sealed"},
			wantCode: http.StatusUnauthorized},
		{name: "header", target: "/x",
			header:   map[string]string{"X-Store-Code": "demo", "X-Shopify-Access-Token": "shpat_good"},
			wantCode: http.StatusOK, wantBody: "demo"},
		{name: "query", target: "/x?store_code=demo",
			header:   map[string]string{"X-Shopify-Access-Token": "shpat_good"},
			wantCode: http.StatusOK, wantBody: "demo"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, test.target, nil)
			for k, v := range test.header {
				r.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h(w, r)
			assert.Equal(t, test.wantCode, w.Code)
			if test.wantBody != "" {
				assert.Equal(t, test.wantBody, w.Body.String())
			}
		})
	}
}

func TestMiddlewareDropsSpoofedStoreCode(t *testing.T) {
	a := newTestAuth(t)
	called := false
	h := a.Middleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(HeaderStoreCodeKey, "demo")
	w := httptest.NewRecorder()
	h(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestWebhookMiddleware(t *testing.T) {
	a := newTestAuth(t)
	h := a.WebhookMiddleware(echoStoreCode)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/hook?store_code=demo", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", w.Body.String())

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/hook?store_code=nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
