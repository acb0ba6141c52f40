package shopifyclient

import (
	"context"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient/config"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (a *recordingAudit) Log(e auditlog.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAudit) Close() {}

func (a *recordingAudit) count(status string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testConfig() config.Config {
	return config.Config{
		APIVersion:   "2025-07",
		Scheme:       "http",
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		PageSize:     250,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg config.Config) (*Client, *recordingAudit, *recordingSleeper) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	audit := &recordingAudit{}
	sleeper := &recordingSleeper{}
	c := NewClient(cfg, model.Store{ID: 1, Code: "demo", ShopDomain: u.Host}, "shpat_test", audit, zap.NewNop())
	c.SetSleeper(sleeper.sleep)
	return c, audit, sleeper
}
