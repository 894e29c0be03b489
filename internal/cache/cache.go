// Package cache хранит отрендеренные страницы с ограниченным временем жизни.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Page - закэшированный ответ.
type Page struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache - хранилище страниц. Промах - это (nil, nil).
// Set с ttl <= 0 ничего не сохраняет.
type Cache interface {
	Get(ctx context.Context, key string) (*Page, error)
	Set(ctx context.Context, key string, page *Page, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Key собирает ключ из имени представления и параметров запроса.
func Key(view string, parts ...string) string {
	if len(parts) == 0 {
		return view
	}
	return fmt.Sprintf("%s:%s", view, strings.Join(parts, ":"))
}
