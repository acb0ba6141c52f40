package shopifyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const MaxPageSize = 250

// <https://shop/admin/api/.../products.json?limit=250&page_info=abc>; rel="next"
var linkPartRe = regexp.MustCompile(`^\s*<([^>]+)>\s*;\s*rel="?([a-z]+)"?`)

// NextPageInfo достаёт курсор следующей страницы из заголовка Link.
func NextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		m := linkPartRe.FindStringSubmatch(part)
		if m == nil || m[2] != "next" {
			continue
		}
		u, err := url.Parse(m[1])
		if err != nil {
			return ""
		}
		return u.Query().Get("page_info")
	}
	return ""
}

// Walk лениво обходит список endpoint. key - имя массива в ответе ("products").
// Фильтры query уходят только в первый запрос, дальше - limit и page_info.
func Walk[T any](ctx context.Context, c *Client, endpoint string, query url.Values, key string, pageSize int) iter.Seq2[T, error] {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	limit := strconv.Itoa(pageSize)

	return func(yield func(T, error) bool) {
		var zero T

		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", limit)

		seen := make(map[string]struct{})
		for page := 1; ; page++ {
			resp, err := c.Execute(ctx, Request{
				Name:   key + "_page",
				Method: http.MethodGet,
				Path:   endpoint,
				Query:  q,
			})
			if err != nil {
				yield(zero, err)
				return
			}

			var body map[string]json.RawMessage
			if err := json.Unmarshal(resp.Body(), &body); err != nil {
				yield(zero, fmt.Errorf("decode %s page %d: %w", key, page, err))
				return
			}
			var items []T
			if raw, ok := body[key]; ok {
				if err := json.Unmarshal(raw, &items); err != nil {
					yield(zero, fmt.Errorf("decode %s page %d: %w", key, page, err))
					return
				}
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			next := NextPageInfo(resp.Header().Get("Link"))
			if next == "" {
				return
			}
			if _, ok := seen[next]; ok {
				yield(zero, ErrCursorLoop)
				return
			}
			seen[next] = struct{}{}

			q = url.Values{}
			q.Set("limit", limit)
			q.Set("page_info", next)
		}
	}
}

// Drain собирает все элементы Walk. Пустой список - не ошибка.
func Drain[T any](ctx context.Context, c *Client, endpoint string, query url.Values, key string, pageSize int) ([]T, error) {
	items := []T{}
	for item, err := range Walk[T](ctx, c, endpoint, query, key, pageSize) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
