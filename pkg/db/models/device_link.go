package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceLink is the single-row pointer telling the shelf display which user
// and list to follow. Cleared on logout.
type DeviceLink struct {
	ID           int        `gorm:"primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid"`
	ActiveListID *uuid.UUID `gorm:"column:active_list_id;type:uuid"`
	DisplayName  *string    `gorm:"column:display_name"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the singleton on the singular table name.
func (DeviceLink) TableName() string {
	return "device_link"
}
