package usecase

import (
	"context"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
)

type VendorUseCase struct {
	vendorRepo repository.VendorRepository
}

func NewVendorUseCase(vendorRepo repository.VendorRepository) *VendorUseCase {
	return &VendorUseCase{vendorRepo: vendorRepo}
}

func (uc *VendorUseCase) GetVendor(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	return uc.vendorRepo.GetByID(ctx, vendorID)
}
