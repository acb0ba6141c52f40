package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/secret"
	"github.com/iurnickita/shopsync/internal/store"
)

type Auth interface {
	Middleware(h http.HandlerFunc) http.HandlerFunc
	WebhookMiddleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	// проверенный код магазина для хендлеров
	HeaderStoreCodeKey = "X-Resolved-Store-Code"

	headerStoreCode   = "X-Store-Code"
	headerAccessToken = "X-Shopify-Access-Token"
	queryStoreCode    = "store_code"
)

var (
	ErrNoStoreCode  = errors.New("store code is required")
	ErrInvalidStore = errors.New("invalid store code")
	ErrBadToken     = errors.New("unauthorized token")
)

type StoreGetter interface {
	StoreGetByCode(ctx context.Context, code string) (model.Store, error)
}

type auth struct {
	stores StoreGetter
	box    secret.Box
	zaplog *zap.Logger
}

func NewAuth(stores StoreGetter, box secret.Box, zaplog *zap.Logger) Auth {
	return &auth{stores: stores, box: box, zaplog: zaplog}
}

// Middleware пропускает запрос, если магазин существует и токен платформы совпадает.
func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// чужое значение не должно дойти до хендлера
		r.Header.Del(HeaderStoreCodeKey)

		st, ok := a.resolve(w, r)
		if !ok {
			return
		}

		token, err := a.box.Open(st.AccessToken)
		if err != nil {
			a.zaplog.Error("store token decrypt", zap.String("store_code", st.Code), zap.Error(err))
			http.Error(w, ErrBadToken.Error(), http.StatusUnauthorized)
			return
		}
		given := r.Header.Get(headerAccessToken)
		if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			http.Error(w, ErrBadToken.Error(), http.StatusUnauthorized)
			return
		}

		r.Header.Set(HeaderStoreCodeKey, st.Code)
		h.ServeHTTP(w, r)
	}
}

// WebhookMiddleware только проверяет магазин: платформа не присылает токен.
func (a *auth) WebhookMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(HeaderStoreCodeKey)

		st, ok := a.resolve(w, r)
		if !ok {
			return
		}

		r.Header.Set(HeaderStoreCodeKey, st.Code)
		h.ServeHTTP(w, r)
	}
}

func (a *auth) resolve(w http.ResponseWriter, r *http.Request) (model.Store, bool) {
	code := r.Header.Get(headerStoreCode)
	if code == "" {
		code = r.URL.Query().Get(queryStoreCode)
	}
	if code == "" {
		http.Error(w, ErrNoStoreCode.Error(), http.StatusBadRequest)
		return model.Store{}, false
	}

	st, err := a.stores.StoreGetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			http.Error(w, ErrInvalidStore.Error(), http.StatusNotFound)
		} else {
			a.zaplog.Error("store lookup", zap.String("store_code", code), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return model.Store{}, false
	}
	return st, true
}
