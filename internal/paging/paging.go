// Package paging разбивает упорядоченную выборку на страницы фиксированного размера.
//
// Номер страницы приходит из запроса строкой и никогда не приводит к ошибке:
// нечисловое или пустое значение дает первую страницу, номер вне диапазона - последнюю.
package paging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source - перезапускаемая упорядоченная выборка. Порядок задает сам источник.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Page - одна страница выборки.
type Page[T any] struct {
	Items    []T `json:"items"`
	Number   int `json:"number"`
	PerPage  int `json:"perPage"`
	Count    int `json:"count"`
	NumPages int `json:"numPages"`
}

func (p *Page[T]) Len() int { return len(p.Items) }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

func (p *Page[T]) NextNumber() int { return p.Number + 1 }

func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

// StartIndex - порядковый номер (с 1) первого элемента страницы, 0 для пустой выборки.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return p.PerPage*(p.Number-1) + 1
}

// EndIndex - порядковый номер последнего элемента страницы.
func (p *Page[T]) EndIndex() int {
	if p.Number == p.NumPages {
		return p.Count
	}
	return p.Number * p.PerPage
}

// PageRange возвращает номера всех страниц, 1..NumPages.
func (p *Page[T]) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// NumPages считает число страниц. Пустая выборка - одна пустая страница.
func NumPages(count, perPage int) int {
	if count <= 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// ResolveNumber превращает сырое значение параметра page в номер существующей страницы.
func ResolveNumber(raw string, numPages int) int {
	n, ok := parseNumber(raw)
	if !ok {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}

// parseNumber принимает только целые числа. Слишком большие по модулю
// значения считаются валидными и потом уводят на последнюю страницу.
func parseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	return 0, false
}

// GetPage возвращает страницу raw из источника src размером perPage.
func GetPage[T any](ctx context.Context, src Source[T], perPage int, raw string) (*Page[T], error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("pagination error: page size must be positive, got %d", perPage)
	}

	count, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("pagination error: %w", err)
	}

	numPages := NumPages(count, perPage)
	number := ResolveNumber(raw, numPages)

	var items []T
	if count > 0 {
		items, err = src.Slice(ctx, (number-1)*perPage, perPage)
		if err != nil {
			return nil, fmt.Errorf("pagination error: %w", err)
		}
	}
	if items == nil {
		items = make([]T, 0)
	}

	return &Page[T]{
		Items:    items,
		Number:   number,
		PerPage:  perPage,
		Count:    count,
		NumPages: numPages,
	}, nil
}
