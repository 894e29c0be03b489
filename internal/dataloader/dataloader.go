package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID  *dataloader.Loader
	GroupByID *dataloader.Loader
}

// NewLoaders создает лоадеры на один запрос.
func NewLoaders(store storage.Storage) *Loaders {
	return &Loaders{
		UserByID:  dataloader.NewBatchedLoader(batchByID(store.GetUsersByIDs), dataloader.WithWait(time.Millisecond*1)),
		GroupByID: dataloader.NewBatchedLoader(batchByID(store.GetGroupsByIDs), dataloader.WithWait(time.Millisecond*1)),
	}
}

// batchByID превращает пакетный метод хранилища в батч-функцию лоадера.
func batchByID[T any](fetch func(context.Context, []uint64) (map[uint64]*T, error)) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]uint64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseUint(k.String(), 10, 64)
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("bad key %q: %w", k.String(), err)}
				continue
			}
			ids[i] = id
		}

		// Один запрос к хранилищу на весь батч
		found, err := fetch(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результаты в том же порядке, что и ключи
		for i, id := range ids {
			if results[i] != nil {
				continue
			}
			item, ok := found[id]
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("id %d: %w", id, storage.ErrNotFound)}
				continue
			}
			results[i] = &dataloader.Result{Data: item}
		}
		return results
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLoaders кладет лоадеры в контекст.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, key, loaders)
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

func idKey(id uint64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatUint(id, 10))
}

// Users загружает пользователей по id одним батчем.
func Users(ctx context.Context, ids []uint64) (map[uint64]*domain.User, error) {
	return loadMany[domain.User](ctx, For(ctx).UserByID, ids)
}

// Groups загружает группы по id одним батчем.
func Groups(ctx context.Context, ids []uint64) (map[uint64]*domain.Group, error) {
	return loadMany[domain.Group](ctx, For(ctx).GroupByID, ids)
}

func loadMany[T any](ctx context.Context, loader *dataloader.Loader, ids []uint64) (map[uint64]*T, error) {
	// Сначала ставим все ключи в очередь, потом ждем: так они попадут в один батч
	thunks := make(map[uint64]dataloader.Thunk, len(ids))
	for _, id := range ids {
		if _, ok := thunks[id]; !ok {
			thunks[id] = loader.Load(ctx, idKey(id))
		}
	}

	out := make(map[uint64]*T, len(thunks))
	for id, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		item, ok := data.(*T)
		if !ok {
			return nil, fmt.Errorf("unexpected loader result %T", data)
		}
		out[id] = item
	}
	return out, nil
}
