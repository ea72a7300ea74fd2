package repository

import (
	"context"

	"vendora/internal/domain/entity"
)

type VendorRepository interface {
	GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error)
}
