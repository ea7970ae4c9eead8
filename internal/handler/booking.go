package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// BookingHandler exposes the booking writer and booking reads.
type BookingHandler struct {
	Writer   *booking.Writer
	Bookings *repository.BookingRepo
	Invoices *repository.InvoiceRepo
}

// NewBookingHandler panics if any dependency is nil.
func NewBookingHandler(w *booking.Writer, bookings *repository.BookingRepo, invoices *repository.InvoiceRepo) *BookingHandler {
	if w == nil || bookings == nil || invoices == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Writer: w, Bookings: bookings, Invoices: invoices}
}

type reserveRequest struct {
	ItemID     uint64           `json:"item_id" validate:"required"`
	CustomerID uint64           `json:"customer_id" validate:"required"`
	StartDate  model.Date       `json:"start_date"`
	EndDate    model.Date       `json:"end_date"`
	Price      *decimal.Decimal `json:"price"`
	Deposit    decimal.Decimal  `json:"deposit"`
	Notes      string           `json:"notes" validate:"max=2000"`
}

// Reserve handles POST /v1/bookings.
func (h *BookingHandler) Reserve(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var body reserveRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	b, err := h.Writer.Reserve(c.Request().Context(), tid, booking.ReserveInput{
		ItemID:     body.ItemID,
		CustomerID: body.CustomerID,
		Range:      booking.Range{Start: body.StartDate, End: body.EndDate},
		Price:      body.Price,
		Deposit:    body.Deposit,
		Notes:      body.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Confirm handles POST /v1/bookings/:id/confirm. Repeating it returns the
// same invoice.
func (h *BookingHandler) Confirm(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, inv, err := h.Writer.Confirm(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b, "invoice": inv})
}

func (h *BookingHandler) Cancel(c echo.Context) error { return h.transition(c, h.Writer.Cancel) }
func (h *BookingHandler) Start(c echo.Context) error  { return h.transition(c, h.Writer.Start) }
func (h *BookingHandler) Finish(c echo.Context) error { return h.transition(c, h.Writer.Finish) }

func (h *BookingHandler) transition(c echo.Context, fn func(context.Context, tenant.ID, uint64) (*model.Booking, error)) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, err := fn(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type rescheduleRequest struct {
	StartDate model.Date       `json:"start_date"`
	EndDate   model.Date       `json:"end_date"`
	Price     *decimal.Decimal `json:"price"`
}

// Reschedule handles PUT /v1/bookings/:id/dates.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body rescheduleRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	r := booking.Range{Start: body.StartDate, End: body.EndDate}
	b, err := h.Writer.Reschedule(c.Request().Context(), tid, id, r, body.Price)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Bookings.Get(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// List handles GET /v1/bookings?item_id&customer_id&status&from&to.
func (h *BookingHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Bookings.List(c.Request().Context(), tid, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func bookingFilter(c echo.Context) (repository.BookingFilter, error) {
	var (
		f   repository.BookingFilter
		err error
	)
	if f.ItemID, err = queryUint(c, "item_id"); err != nil {
		return f, err
	}
	if f.CustomerID, err = queryUint(c, "customer_id"); err != nil {
		return f, err
	}
	if s := model.BookingStatus(c.QueryParam("status")); s != "" {
		if !s.Valid() {
			return f, invalid("invalid status")
		}
		f.Status = s
	}
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.IDs, err = queryIDs(c, "ids"); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = paging(c)
	return f, err
}

// Invoice handles GET /v1/bookings/:id/invoice.
func (h *BookingHandler) Invoice(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	inv, err := h.Invoices.GetByBooking(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

type quoteRequest struct {
	ItemID    uint64     `json:"item_id" validate:"required"`
	StartDate model.Date `json:"start_date"`
	EndDate   model.Date `json:"end_date"`
}

// Quote handles POST /v1/quotes. Nothing is reserved.
func (h *BookingHandler) Quote(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var body quoteRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	r := booking.Range{Start: body.StartDate, End: body.EndDate}
	q, err := h.Writer.Quote(c.Request().Context(), tid, body.ItemID, r)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item_id":    body.ItemID,
		"start_date": r.Start,
		"end_date":   r.End,
		"days":       q.Duration.Days,
		"quote":      q,
	})
}
