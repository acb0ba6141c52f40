package shopifyclient

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/secret"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient/config"
	"github.com/iurnickita/shopsync/internal/store"
)

var errEmptyToken = errors.New("empty access token")

type StoreGetter interface {
	StoreGetByCode(ctx context.Context, code string) (model.Store, error)
}

// Binder выдаёт клиентов по коду магазина и кеширует их.
type Binder struct {
	cfg    config.Config
	stores StoreGetter
	box    secret.Box
	audit  auditlog.Logger
	zaplog *zap.Logger
	sleep  Sleeper

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewBinder(cfg config.Config, stores StoreGetter, box secret.Box, audit auditlog.Logger, zaplog *zap.Logger) *Binder {
	return &Binder{
		cfg:     cfg,
		stores:  stores,
		box:     box,
		audit:   audit,
		zaplog:  zaplog,
		clients: make(map[string]*Client),
	}
}

// SetSleeper задаёт ожидание для всех новых клиентов.
func (b *Binder) SetSleeper(s Sleeper) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sleep = s
}

func (b *Binder) Bind(ctx context.Context, storeCode string) (*Client, error) {
	b.mu.RLock()
	c, ok := b.clients[storeCode]
	b.mu.RUnlock()
	if ok {
		return c, nil
	}

	// сеть и база - без блокировки
	st, err := b.stores.StoreGetByCode(ctx, storeCode)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, &AuthError{StoreCode: storeCode, Err: err}
		}
		return nil, err
	}
	token, err := b.box.Open(st.AccessToken)
	if err != nil {
		return nil, &AuthError{StoreCode: storeCode, Err: err}
	}
	if token == "" {
		return nil, &AuthError{StoreCode: storeCode, Err: errEmptyToken}
	}

	c = NewClient(b.cfg, st, token, b.audit, b.zaplog)

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.clients[storeCode]; ok {
		return existing, nil
	}
	if b.sleep != nil {
		c.SetSleeper(b.sleep)
	}
	b.clients[storeCode] = c
	return c, nil
}

// Forget сбрасывает клиента магазина (например, после смены токена).
func (b *Binder) Forget(storeCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, storeCode)
}
