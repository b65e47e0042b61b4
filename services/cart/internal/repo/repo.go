package repo

import (
	"errors"

	"gorm.io/gorm"
)

// ErrStaleVersion is returned when a conditional update matched no row
// because the line changed since it was read.
var ErrStaleVersion = errors.New("stale cart line version")

type GormRepo struct {
	DB *gorm.DB
}
