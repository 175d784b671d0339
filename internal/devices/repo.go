package devices

import (
	"context"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"gorm.io/gorm"
)

// deviceLinkID is the singleton row key; one shelf display per installation.
const deviceLinkID = 1

// Repository persists the single device link row.
type Repository interface {
	Get(ctx context.Context) (*models.DeviceLink, error)
	Save(ctx context.Context, link *models.DeviceLink) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a device link repository.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context) (*models.DeviceLink, error) {
	var link models.DeviceLink
	err := r.db.WithContext(ctx).Where("id = ?", deviceLinkID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) Save(ctx context.Context, link *models.DeviceLink) error {
	link.ID = deviceLinkID
	return r.db.WithContext(ctx).Save(link).Error
}
