package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/errors"
)

type firestoreVendorRepository struct {
	client *firestore.Client
}

func NewFirestoreVendorRepository(client *firestore.Client) repository.VendorRepository {
	return &firestoreVendorRepository{
		client: client,
	}
}

func (r *firestoreVendorRepository) GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	if vendorID == "" {
		return nil, errors.BadRequest("Vendor id is required", nil)
	}

	doc, err := r.client.Collection("vendors").Doc(vendorID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Vendor", err)
		}
		return nil, errors.Internal("Failed to get vendor", err)
	}

	var vendor entity.Vendor
	if err := doc.DataTo(&vendor); err != nil {
		return nil, errors.Internal("Failed to parse vendor data", err)
	}
	if vendor.ID == "" {
		vendor.ID = doc.Ref.ID
	}
	return &vendor, nil
}
