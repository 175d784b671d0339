package models

import (
	"time"

	"github.com/google/uuid"
)

// ListItem is one entry on a shopping list. Price and BarCode are snapshots
// taken from the catalog when the item is added; Name is unique per list
// case-insensitively.
type ListItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ListID    uuid.UUID `gorm:"column:list_id;type:uuid;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	Checked   bool      `gorm:"column:checked;not null;default:false"`
	Price     string    `gorm:"type:numeric(10,2);not null;default:'0.00'"`
	BarCode   string    `gorm:"column:bar_code;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
