package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/realtime"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/transport"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrSearchUnavailable = errors.New("search unavailable")
	ErrImagesUnavailable = errors.New("image storage unavailable")
)

type Store interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, categoryID *uuid.UUID, offset, limit int) (int64, []models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ReadProductsByCategory(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error)
	CreateProduct(ctx context.Context, prod *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type Searcher interface {
	Put(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type Images interface {
	PublicURL(path string) string
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
	Delete(ctx context.Context, path string) error
}

type ChangeNotifier interface {
	Notify(ctx context.Context, c realtime.Change) error
}

type CatalogService struct {
	Repo    Store
	Search  Searcher
	Images  Images
	Events  events.Publisher
	Changes ChangeNotifier
	// Local is invalidated directly, so this instance does not depend on
	// its own notification round trip.
	Local realtime.Invalidator
}

type Page struct {
	Total int64
	Items []ProductView
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product: %w", ErrNotFound)
	}
	return err
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID, viewer *session.Session) (ProductView, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return ProductView{}, notFound(err)
	}
	return s.view(*p, viewer), nil
}

func (s *CatalogService) GetProducts(ctx context.Context, categoryID *uuid.UUID, offset, limit int, viewer *session.Session) (Page, error) {
	total, items, err := s.Repo.GetProducts(ctx, categoryID, offset, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Total: total, Items: s.views(items, viewer)}, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int, viewer *session.Session) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, fmt.Errorf("query required: %w", ErrValidation)
	}
	if s.Search == nil {
		return Page{}, ErrSearchUnavailable
	}

	total, ids, err := s.Search.Search(ctx, query, offset, limit)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	items, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return Page{}, err
	}
	return Page{Total: total, Items: s.views(items, viewer)}, nil
}

// Views renders already loaded products, as the paginator returns them.
func (s *CatalogService) Views(items []models.Product, viewer *session.Session) []ProductView {
	return s.views(items, viewer)
}

func (s *CatalogService) validateCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.Repo.CategoryExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown category %s: %w", id, ErrValidation)
	}
	return nil
}

func validatePrice(name string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%s cannot be negative: %w", name, ErrValidation)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title required: %w", ErrValidation)
	}
	if err := validatePrice("price", req.Price); err != nil {
		return nil, err
	}
	if req.OldPrice != nil {
		if err := validatePrice("old_price", *req.OldPrice); err != nil {
			return nil, err
		}
	}
	if req.StockQuantity < 0 {
		return nil, fmt.Errorf("stock_quantity cannot be negative: %w", ErrValidation)
	}
	if req.MaxPurchase != nil && *req.MaxPurchase <= 0 {
		return nil, fmt.Errorf("max_purchase must be positive: %w", ErrValidation)
	}
	if err := s.validateCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	prod := &models.Product{
		ID:            uuid.New(),
		Title:         title,
		Description:   req.Description,
		Brand:         strings.TrimSpace(req.Brand),
		Price:         req.Price,
		OldPrice:      req.OldPrice,
		StockQuantity: req.StockQuantity,
		VIPOnly:       req.VIPOnly,
		MaxPurchase:   req.MaxPurchase,
		IsNew:         req.IsNew,
		IsDiscounted:  req.OldPrice != nil && req.OldPrice.GreaterThan(req.Price),
		CategoryID:    req.CategoryID,
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.afterChange(ctx, realtime.Change{Op: realtime.OpCreated, ProductID: prod.ID, CategoryID: prod.CategoryID}, prod)
	return prod, nil
}

// PatchProduct updates the fields present in req. A max_purchase of zero
// removes the limit.
func (s *CatalogService) PatchProduct(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	current, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	fields := map[string]any{}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, fmt.Errorf("title required: %w", ErrValidation)
		}
		fields["title"] = t
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Brand != nil {
		fields["brand"] = strings.TrimSpace(*req.Brand)
	}

	price, oldPrice := current.Price, current.OldPrice
	if req.Price != nil {
		if err := validatePrice("price", *req.Price); err != nil {
			return nil, err
		}
		price = *req.Price
		fields["price"] = price
	}
	if req.OldPrice != nil {
		if err := validatePrice("old_price", *req.OldPrice); err != nil {
			return nil, err
		}
		if req.OldPrice.IsZero() {
			oldPrice = nil
			fields["old_price"] = nil
		} else {
			oldPrice = req.OldPrice
			fields["old_price"] = *req.OldPrice
		}
	}
	if req.Price != nil || req.OldPrice != nil {
		fields["is_discounted"] = oldPrice != nil && oldPrice.GreaterThan(price)
	}

	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, fmt.Errorf("stock_quantity cannot be negative: %w", ErrValidation)
		}
		fields["stock_quantity"] = *req.StockQuantity
	}
	if req.MaxPurchase != nil {
		switch {
		case *req.MaxPurchase < 0:
			return nil, fmt.Errorf("max_purchase cannot be negative: %w", ErrValidation)
		case *req.MaxPurchase == 0:
			fields["max_purchase"] = nil
		default:
			fields["max_purchase"] = *req.MaxPurchase
		}
	}
	if req.VIPOnly != nil {
		fields["vip_only"] = *req.VIPOnly
	}
	if req.IsNew != nil {
		fields["is_new"] = *req.IsNew
	}
	if req.CategoryID != nil {
		if *req.CategoryID == uuid.Nil {
			fields["category_id"] = nil
		} else {
			if err := s.validateCategory(ctx, req.CategoryID); err != nil {
				return nil, err
			}
			fields["category_id"] = *req.CategoryID
		}
	}

	prod, err := s.Repo.UpdateProduct(ctx, id, fields)
	if err != nil {
		return nil, notFound(err)
	}

	change := realtime.Change{Op: realtime.OpUpdated, ProductID: id, CategoryID: prod.CategoryID}
	if !sameCategory(current.CategoryID, prod.CategoryID) {
		change.PrevCategoryID = current.CategoryID
	}
	s.afterChange(ctx, change, prod)
	return prod, nil
}

func sameCategory(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	current, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err)
	}

	if current.ImagePath != "" && s.Images != nil {
		if err := s.Images.Delete(ctx, current.ImagePath); err != nil {
			logging.FromContext(ctx).Warn("product_image_delete_failed", "product_id", id, "error", err)
		}
	}

	s.afterChange(ctx, realtime.Change{Op: realtime.OpDeleted, ProductID: id, CategoryID: current.CategoryID}, nil)
	return nil
}

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadImage stores a new product image and replaces the previous one.
func (s *CatalogService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.Reader) (*models.Product, error) {
	if s.Images == nil {
		return nil, ErrImagesUnavailable
	}
	ext, ok := imageExt[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported image type %q: %w", contentType, ErrValidation)
	}

	current, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	path := fmt.Sprintf("products/%s/%s.%s", id, uuid.NewString(), ext)
	if err := s.Images.Put(ctx, path, body, contentType); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImagesUnavailable, err)
	}

	prod, err := s.Repo.UpdateProduct(ctx, id, map[string]any{"image_path": path})
	if err != nil {
		return nil, notFound(err)
	}

	if current.ImagePath != "" {
		if err := s.Images.Delete(ctx, current.ImagePath); err != nil {
			logging.FromContext(ctx).Warn("product_image_delete_failed", "product_id", id, "error", err)
		}
	}

	s.afterChange(ctx, realtime.Change{Op: realtime.OpUpdated, ProductID: id, CategoryID: prod.CategoryID}, prod)
	return prod, nil
}

// afterChange propagates a committed product change to the search index,
// the caches and the event stream. Failures are logged only.
func (s *CatalogService) afterChange(ctx context.Context, c realtime.Change, prod *models.Product) {
	l := logging.FromContext(ctx).With("product_id", c.ProductID, "op", c.Op)

	if s.Search != nil {
		var err error
		if prod != nil {
			err = s.Search.Put(ctx, *prod)
		} else {
			err = s.Search.Delete(ctx, c.ProductID)
		}
		if err != nil {
			l.Warn("search_index_failed", "error", err)
		}
	}

	if s.Local != nil {
		realtime.Apply(s.Local, c)
	}
	if s.Changes != nil {
		if err := s.Changes.Notify(ctx, c); err != nil {
			l.Warn("catalog_notify_failed", "error", err)
		}
	}

	if s.Events != nil {
		payload := map[string]any{"product_id": c.ProductID, "category_id": c.CategoryID}
		if prod != nil {
			payload["title"] = prod.Title
			payload["stock_quantity"] = prod.StockQuantity
			payload["price"] = prod.Price
		}
		if err := s.Events.Publish(ctx, events.TopicProduct, c.ProductID.String(), "product_"+string(c.Op), payload); err != nil {
			l.Warn("product_event_publish_failed", "error", err)
		}
	}
}
