package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/services/cart/internal/models"
)

func (r *GormRepo) ReadCartLine(ctx context.Context, userID, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Take(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *GormRepo) InsertCartLine(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	line := models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateCartLine sets the quantity only if the stored version still equals
// expectedVersion, bumping the version on success.
func (r *GormRepo) UpdateCartLine(ctx context.Context, userID, productID uuid.UUID, quantity int, expectedVersion int64) (*models.CartLine, error) {
	now := time.Now().UTC()
	res := r.DB.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND product_id = ? AND version = ?", userID, productID, expectedVersion).
		Updates(map[string]any{
			"quantity":   quantity,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleVersion
	}
	return &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Version:   expectedVersion + 1,
		UpdatedAt: now,
	}, nil
}

func (r *GormRepo) DeleteCartLine(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) CountCartLines(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.CartLine{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GormRepo) ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}
