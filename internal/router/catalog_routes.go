package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/handler"
)

// RegisterCatalog registers item and customer management.
func RegisterCatalog(g *echo.Group, items *handler.ItemHandler, customers *handler.CustomerHandler) {
	g.POST("/items", items.Create)
	g.GET("/items", items.List)
	g.GET("/items/:id", items.Get)
	g.PATCH("/items/:id", items.Update)
	g.PUT("/items/:id", items.Update)
	g.DELETE("/items/:id", items.Delete)
	g.PUT("/items/:id/pricing", items.PutPricing)
	g.GET("/items/:id/pricing", items.GetPricing)
	g.GET("/items/:id/availability", items.Availability)
	g.GET("/items/:id/bookings", items.ListBookings)

	g.POST("/customers", customers.Create)
	g.GET("/customers", customers.List)
	g.GET("/customers/:id", customers.Get)
	g.PATCH("/customers/:id", customers.Update)
	g.PUT("/customers/:id", customers.Update)
	g.DELETE("/customers/:id", customers.Delete)
}
