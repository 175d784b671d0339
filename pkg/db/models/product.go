package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a shared catalog entry. Price is stored as a decimal string so
// list items can snapshot it without float drift. Stock is mutated only by
// checkout finalization.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Price     string    `gorm:"type:numeric(10,2);not null;default:'0.00'"`
	Barcode   string    `gorm:"type:text;not null;uniqueIndex"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
