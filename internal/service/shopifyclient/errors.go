package shopifyclient

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAuth             = errors.New("shopify: store credentials unavailable")
	ErrRateLimited      = errors.New("shopify: rate limited")
	ErrServer           = errors.New("shopify: server error")
	ErrNonRetryable     = errors.New("shopify: non-retryable response")
	ErrRetriesExhausted = errors.New("shopify: max retries reached")
	ErrCursorLoop       = errors.New("shopify: pagination cursor repeated")
)

// AuthError - магазин не найден или токен не расшифровывается.
type AuthError struct {
	StoreCode string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("shopify: store %q: %v", e.StoreCode, e.Err)
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuth, e.Err} }

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("shopify: rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// ServerError - 5xx или сбой транспорта (Status == 0).
type ServerError struct {
	Status int
	Body   string
	Err    error
}

func (e *ServerError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("shopify: transport: %v", e.Err)
	}
	return fmt.Sprintf("shopify: server error %d: %s", e.Status, e.Body)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// NonRetryableError - любой ответ вне 2xx, 429 и 5xx.
type NonRetryableError struct {
	Status int
	Body   string
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("shopify: non-retryable status %d: %s", e.Status, e.Body)
}

func (e *NonRetryableError) Unwrap() error { return ErrNonRetryable }

type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("shopify: max retries reached after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error { return []error{ErrRetriesExhausted, e.Last} }

// StatusOf возвращает HTTP-код из ошибки клиента, 0 если его нет.
func StatusOf(err error) int {
	var nr *NonRetryableError
	if errors.As(err, &nr) {
		return nr.Status
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	if errors.Is(err, ErrRateLimited) {
		return 429
	}
	return 0
}
