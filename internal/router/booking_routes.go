package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/handler"
)

// RegisterBookings registers the booking lifecycle and quote endpoints.
func RegisterBookings(g *echo.Group, b *handler.BookingHandler) {
	g.POST("/bookings", b.Reserve)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.POST("/bookings/:id/confirm", b.Confirm)
	g.POST("/bookings/:id/start", b.Start)
	g.POST("/bookings/:id/finish", b.Finish)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.PUT("/bookings/:id/dates", b.Reschedule)
	g.GET("/bookings/:id/invoice", b.Invoice)

	g.POST("/quotes", b.Quote)
}

// RegisterInvoices registers invoice reads and payment.
func RegisterInvoices(g *echo.Group, i *handler.InvoiceHandler) {
	g.GET("/invoices", i.List)
	g.GET("/invoices/:id", i.Get)
	g.POST("/invoices/:id/pay", i.Pay)
}
