package router

import (
	"github.com/labstack/echo/v4"

	"vendora/internal/adapter/api/handler"
)

func Setup(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
}
