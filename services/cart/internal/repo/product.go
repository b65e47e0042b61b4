package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/services/cart/internal/models"
)

func (r *GormRepo) ReadProductLimits(ctx context.Context, productID uuid.UUID) (*models.ProductLimits, error) {
	var p models.ProductLimits
	if err := r.DB.WithContext(ctx).Where("id = ?", productID).Take(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ReadProductsLimits(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductLimits, error) {
	out := make(map[uuid.UUID]models.ProductLimits, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ProductLimits
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
