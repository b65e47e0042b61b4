package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
)

var ErrEmptyCart = errors.New("cart is empty")

const (
	ReasonGone       = "PRODUCT_GONE"
	ReasonVIPOnly    = "VIP_ONLY"
	ReasonOutOfStock = "OUT_OF_STOCK"
)

// LineError names the cart line that stopped a checkout.
type LineError struct {
	ProductID uuid.UUID
	Title     string
	Reason    string
	Available int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Reason)
}

type GormRepo struct {
	DB *gorm.DB
}

// PlaceOrder turns the user's cart into an order in one transaction: stock
// is decremented only if every line still fits, and the cart is emptied.
func (r *GormRepo) PlaceOrder(ctx context.Context, userID uuid.UUID, vip bool) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines []models.CartLine
		if err := tx.Where("user_id = ?", userID).Order("product_id").Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		o := &models.Order{ID: uuid.New(), UserID: userID, Status: models.StatusNew, Total: decimal.Zero}
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return &LineError{ProductID: l.ProductID, Reason: ReasonGone}
			}
			if p.VIPOnly && !vip {
				return &LineError{ProductID: p.ID, Title: p.Title, Reason: ReasonVIPOnly}
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", p.ID, l.Quantity).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", l.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &LineError{ProductID: p.ID, Title: p.Title, Reason: ReasonOutOfStock, Available: p.StockQuantity}
			}

			line := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			o.Items = append(o.Items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Title:     p.Title,
				Quantity:  l.Quantity,
				UnitPrice: p.Price,
				LineTotal: line,
			})
			o.Total = o.Total.Add(line)
		}

		if err := tx.Create(o).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Where("id = ?", id).
		Take(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// Transition moves an order from one status to another only if it is still
// in the expected status. Cancelling puts the items back in stock.
func (r *GormRepo) Transition(ctx context.Context, id uuid.UUID, from, to string) (*models.Order, error) {
	var out *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var o models.Order
		if err := tx.Preload("Items").Where("id = ?", id).Take(&o).Error; err != nil {
			return err
		}

		if to == models.StatusCancelled {
			for _, it := range o.Items {
				err := tx.Model(&models.Product{}).
					Where("id = ?", it.ProductID).
					Update("stock_quantity", gorm.Expr("stock_quantity + ?", it.Quantity)).Error
				if err != nil {
					return err
				}
			}
		}
		out = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
