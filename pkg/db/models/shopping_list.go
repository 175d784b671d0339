package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
)

// ShoppingList owns a user's items and carries the derived device mirror.
// ToPick/Picked and State are a write-only projection recomputed from the
// item set; the items remain authoritative.
type ShoppingList struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Name      string              `gorm:"type:text;not null"`
	State     enums.ListState     `gorm:"column:state;type:text;not null;default:'scanning'"`
	ToPick    []types.MirrorEntry `gorm:"column:to_pick;type:jsonb;serializer:json;not null;default:'[]'"`
	Picked    []types.MirrorEntry `gorm:"column:picked;type:jsonb;serializer:json;not null;default:'[]'"`
	Items     []ListItem          `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
