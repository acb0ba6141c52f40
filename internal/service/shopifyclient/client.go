package shopifyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient/config"
)

const headerAccessToken = "X-Shopify-Access-Token"

// Sleeper ждёт d или отмены ctx.
type Sleeper func(ctx context.Context, d time.Duration) error

// Request - один логический вызов API. Name идёт в журнал и метрики.
type Request struct {
	Name   string
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Client привязан к одному магазину.
type Client struct {
	cfg     config.Config
	store   model.Store
	http    *resty.Client
	limiter *rate.Limiter
	sleep   Sleeper
	audit   auditlog.Logger
	zaplog  *zap.Logger
}

func NewClient(cfg config.Config, st model.Store, token string, audit auditlog.Logger, zaplog *zap.Logger) *Client {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	httpClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s://%s/admin/api/%s", scheme, st.ShopDomain, cfg.APIVersion)).
		SetHeader(headerAccessToken, token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	// шифротекст токена клиенту не нужен
	st.AccessToken = ""

	return &Client{
		cfg:     cfg,
		store:   st,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, max(cfg.RateBurst, 1)),
		sleep:   sleepCtx,
		audit:   audit,
		zaplog:  zaplog.With(zap.String("store_code", st.Code)),
	}
}

func (c *Client) Store() model.Store {
	return c.store
}

func (c *Client) SetSleeper(s Sleeper) {
	c.sleep = s
}

func (c *Client) PageSize() int {
	if c.cfg.PageSize <= 0 || c.cfg.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return c.cfg.PageSize
}

// Execute выполняет запрос с повторами:
// 429 - ждём Retry-After, следующая задержка min(2*retryAfter, MaxDelay);
// 5xx и сбой транспорта - ждём задержку, затем удваиваем её до MaxDelay;
// любой другой код не 2xx - сразу NonRetryableError.
// После MaxRetries неудачных попыток - RetriesExhaustedError без лишнего ожидания.
func (c *Client) Execute(ctx context.Context, req Request) (*resty.Response, error) {
	maxRetries := max(c.cfg.MaxRetries, 1)
	delay := c.cfg.InitialDelay
	maxDelay := c.cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}

	attempts := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, req)

		var (
			wait   time.Duration
			reason string
			last   error
		)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last = &ServerError{Err: err}
			reason = "transport_error"
			wait = delay
			delay = min(2*delay, maxDelay)
		case resp.IsSuccess():
			c.logAttempt(req, attempts+1, resp.StatusCode(), auditlog.StatusSuccess, 0, "")
			return resp, nil
		case resp.StatusCode() == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header().Get("Retry-After"), delay)
			last = &RateLimitedError{RetryAfter: retryAfter}
			reason = "rate_limited"
			wait = retryAfter
			delay = min(2*retryAfter, maxDelay)
		case resp.StatusCode() >= http.StatusInternalServerError:
			last = &ServerError{Status: resp.StatusCode(), Body: resp.String()}
			reason = "server_error"
			wait = delay
			delay = min(2*delay, maxDelay)
		default:
			err := &NonRetryableError{Status: resp.StatusCode(), Body: resp.String()}
			c.logAttempt(req, attempts+1, resp.StatusCode(), auditlog.StatusFailed, 0, err.Error())
			return nil, err
		}

		attempts++
		status := StatusOf(last)
		if attempts >= maxRetries {
			err := &RetriesExhaustedError{Attempts: attempts, Last: last}
			c.logAttempt(req, attempts, status, auditlog.StatusFailed, 0, err.Error())
			c.zaplog.Error("api retries exhausted",
				zap.String("endpoint", req.Name),
				zap.Int("attempts", attempts),
				zap.Error(last))
			return nil, err
		}

		metrics.APIRetriesTotal.WithLabelValues(reason).Inc()
		c.logAttempt(req, attempts, status, auditlog.StatusRetry, wait, last.Error())
		c.zaplog.Warn("api request retry",
			zap.String("endpoint", req.Name),
			zap.String("reason", reason),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait))

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Do выполняет запрос и разбирает JSON-ответ в out (если out не nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", req.Name, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (*resty.Response, error) {
	r := c.http.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	metrics.APIRequestDuration.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())

	status := "transport"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	metrics.APIRequestsTotal.WithLabelValues(req.Name, status).Inc()

	return resp, err
}

type attemptPayload struct {
	Attempt int    `json:"attempt"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
	WaitMS  int64  `json:"wait_ms,omitempty"`
}

func (c *Client) logAttempt(req Request, attempt, status int, result string, wait time.Duration, msg string) {
	c.audit.Log(auditlog.Entry{
		StoreID:    c.store.ID,
		Type:       "api_" + req.Name,
		ResourceID: req.Path,
		Status:     result,
		Message:    msg,
		Payload: attemptPayload{
			Attempt: attempt,
			Method:  req.Method,
			Path:    req.Path,
			Status:  status,
			WaitMS:  wait.Milliseconds(),
		},
	})
}

// Retry-After в секундах; при отсутствии - текущая задержка.
func parseRetryAfter(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
