package handler

import (
	"github.com/labstack/echo/v4"

	"vendora/internal/usecase"
	"vendora/pkg/response"
)

type VendorHandler struct {
	vendorUseCase *usecase.VendorUseCase
}

func NewVendorHandler(vendorUseCase *usecase.VendorUseCase) *VendorHandler {
	return &VendorHandler{
		vendorUseCase: vendorUseCase,
	}
}

// GetVendor resolves a vendor by id, including its owning user id.
func (h *VendorHandler) GetVendor(c echo.Context) error {
	vendor, err := h.vendorUseCase.GetVendor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, vendor)
}
