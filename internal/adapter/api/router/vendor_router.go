package router

import (
	"github.com/labstack/echo/v4"

	"vendora/internal/adapter/api/handler"
	"vendora/internal/adapter/api/middleware"
)

func SetupVendorRouter(e *echo.Echo, vendorHandler *handler.VendorHandler, authMiddleware *middleware.AuthMiddleware) {
	vendors := e.Group("/v1/vendors")
	vendors.Use(authMiddleware.Authenticate)

	vendors.GET("/:id", vendorHandler.GetVendor)
}
