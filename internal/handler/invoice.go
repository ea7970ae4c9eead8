package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
)

// InvoiceHandler serves invoices. Invoices are minted only by booking
// confirmation; this handler reads them and records payment.
type InvoiceHandler struct {
	Invoices *repository.InvoiceRepo
}

// NewInvoiceHandler panics if invoices is nil.
func NewInvoiceHandler(invoices *repository.InvoiceRepo) *InvoiceHandler {
	if invoices == nil {
		panic("nil repository passed to NewInvoiceHandler")
	}
	return &InvoiceHandler{Invoices: invoices}
}

func (h *InvoiceHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	inv, err := h.Invoices.Get(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

// List handles GET /v1/invoices?status=UNPAID|PAID.
func (h *InvoiceHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var f repository.InvoiceFilter
	switch s := model.PaymentStatus(c.QueryParam("status")); s {
	case "":
	case model.PaymentUnpaid, model.PaymentPaid:
		f.Status = s
	default:
		return writeError(c, invalid("invalid status"))
	}
	if f.IDs, err = queryIDs(c, "ids"); err != nil {
		return writeError(c, err)
	}
	if f.Limit, f.Offset, err = paging(c); err != nil {
		return writeError(c, err)
	}
	list, err := h.Invoices.List(c.Request().Context(), tid, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Pay handles POST /v1/invoices/:id/pay. Paying twice keeps the first
// payment time.
func (h *InvoiceHandler) Pay(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	inv, err := h.Invoices.MarkPaid(c.Request().Context(), tid, id, time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}
