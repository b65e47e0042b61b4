// Package paginator reveals a category's products in fixed-size pages from
// a set fetched once and cached in memory.
package paginator

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/models"
)

const (
	DefaultPageSize = 6
	// AllKey caches the unfiltered catalog, loaded with a nil category.
	AllKey = "all"
)

type Source interface {
	ReadProductsByCategory(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error)
}

func Key(categoryID *uuid.UUID) string {
	if categoryID == nil {
		return AllKey
	}
	return categoryID.String()
}

type Paginator struct {
	src      Source
	pageSize int

	mu     sync.Mutex
	cache  map[string][]models.Product
	shown  map[string]int
	search string
}

func New(src Source, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		src:      src,
		pageSize: pageSize,
		cache:    make(map[string][]models.Product),
		shown:    make(map[string]int),
	}
}

func (p *Paginator) PageSize() int { return p.pageSize }

// LoadCategory makes sure the category's full set is cached and resets its
// window to the first page. A cached set is reused without a fetch.
func (p *Paginator) LoadCategory(ctx context.Context, categoryID *uuid.UUID) error {
	key := Key(categoryID)

	if err := p.ensure(ctx, key, categoryID); err != nil {
		return err
	}

	p.mu.Lock()
	p.shown[key] = p.pageSize
	p.mu.Unlock()
	return nil
}

// LoadMore grows the window by one page. It only fetches when the category
// has never been loaded, in which case the window becomes the first page.
func (p *Paginator) LoadMore(ctx context.Context, categoryID *uuid.UUID) error {
	key := Key(categoryID)

	if err := p.ensure(ctx, key, categoryID); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.filteredLocked(key))
	shown := p.shown[key]
	if shown >= total {
		return nil
	}
	p.shown[key] = shown + p.pageSize
	return nil
}

// Displayed returns the first min(window, len(filtered set)) products.
func (p *Paginator) Displayed(categoryID *uuid.UUID) []models.Product {
	key := Key(categoryID)

	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.filteredLocked(key)
	n := min(p.shown[key], len(items))
	out := make([]models.Product, n)
	copy(out, items[:n])
	return out
}

func (p *Paginator) HasMore(categoryID *uuid.UUID) bool {
	key := Key(categoryID)

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.shown[key] < len(p.filteredLocked(key))
}

// Total is the size of the filtered set, zero when not loaded.
func (p *Paginator) Total(categoryID *uuid.UUID) int {
	key := Key(categoryID)

	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.filteredLocked(key))
}

// SetSearch filters every cached set by title or brand and restarts each
// window at the first page. Empty text clears the filter.
func (p *Paginator) SetSearch(text string) {
	text = strings.TrimSpace(text)

	p.mu.Lock()
	defer p.mu.Unlock()

	if text == p.search {
		return
	}
	p.search = text
	for key := range p.shown {
		p.shown[key] = p.pageSize
	}
}

func (p *Paginator) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// Invalidate drops the cached set of a category and of the whole catalog.
// Windows are kept so the next load shows the same number of items.
func (p *Paginator) Invalidate(categoryID *uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.cache, Key(categoryID))
	delete(p.cache, AllKey)
}

func (p *Paginator) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.cache)
}

func (p *Paginator) ensure(ctx context.Context, key string, categoryID *uuid.UUID) error {
	p.mu.Lock()
	_, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return nil
	}

	items, err := p.src.ReadProductsByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.Product{}
	}

	p.mu.Lock()
	p.cache[key] = items
	p.mu.Unlock()
	return nil
}

func (p *Paginator) filteredLocked(key string) []models.Product {
	items := p.cache[key]
	if p.search == "" {
		return items
	}

	fold := cases.Fold()
	needle := fold.String(p.search)

	out := make([]models.Product, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(it.Title), needle) || strings.Contains(fold.String(it.Brand), needle) {
			out = append(out, it)
		}
	}
	return out
}
