package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/pricing"
	"github.com/iliyamo/rentdesk/internal/repository"
)

// ItemHandler manages rentable items, their pricing plans and calendars.
type ItemHandler struct {
	Items    *repository.ItemRepo
	Plans    *repository.PricingPlanRepo
	Bookings *repository.BookingRepo
	Resolver *booking.Resolver
}

// NewItemHandler panics if any dependency is nil.
func NewItemHandler(items *repository.ItemRepo, plans *repository.PricingPlanRepo, bookings *repository.BookingRepo, resolver *booking.Resolver) *ItemHandler {
	if items == nil || plans == nil || bookings == nil || resolver == nil {
		panic("nil dependency passed to NewItemHandler")
	}
	return &ItemHandler{Items: items, Plans: plans, Bookings: bookings, Resolver: resolver}
}

type itemRequest struct {
	Type       model.ItemType   `json:"type" validate:"required"`
	Name       string           `json:"name" validate:"required,max=200"`
	BasePrice  decimal.Decimal  `json:"base_price"`
	Status     model.ItemStatus `json:"status"`
	Attributes model.Attributes `json:"attributes"`
	Photos     model.StringList `json:"photos" validate:"max=50,dive,max=500"`
}

// Create handles POST /v1/items.
func (h *ItemHandler) Create(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var body itemRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	body.Name = strings.TrimSpace(body.Name)
	if !body.Type.Valid() {
		return writeError(c, invalid("invalid type"))
	}
	if body.Status != "" && !body.Status.Valid() {
		return writeError(c, invalid("invalid status"))
	}
	if body.BasePrice.IsNegative() {
		return writeError(c, booking.ErrInvalidPrice)
	}
	it := &model.Item{
		Type:       body.Type,
		Name:       body.Name,
		BasePrice:  body.BasePrice,
		Status:     body.Status,
		Attributes: body.Attributes,
		Photos:     body.Photos,
	}
	if err := h.Items.Create(c.Request().Context(), tid, it); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *ItemHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	it, err := h.Items.Get(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// List handles GET /v1/items?type&status&ids&free_from&free_to.
func (h *ItemHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var f repository.ItemFilter
	if t := model.ItemType(c.QueryParam("type")); t != "" {
		if !t.Valid() {
			return writeError(c, invalid("invalid type"))
		}
		f.Type = t
	}
	if s := model.ItemStatus(c.QueryParam("status")); s != "" {
		if !s.Valid() {
			return writeError(c, invalid("invalid status"))
		}
		f.Status = s
	}
	if f.IDs, err = queryIDs(c, "ids"); err != nil {
		return writeError(c, err)
	}
	if f.FreeFrom, err = queryDate(c, "free_from"); err != nil {
		return writeError(c, err)
	}
	if f.FreeTo, err = queryDate(c, "free_to"); err != nil {
		return writeError(c, err)
	}
	if !f.FreeFrom.IsZero() || !f.FreeTo.IsZero() {
		if err := (booking.Range{Start: f.FreeFrom, End: f.FreeTo}).Validate(); err != nil {
			return writeError(c, err)
		}
	}
	if f.Limit, f.Offset, err = paging(c); err != nil {
		return writeError(c, err)
	}
	items, err := h.Items.List(c.Request().Context(), tid, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

type itemPatchRequest struct {
	Type       *model.ItemType   `json:"type"`
	Name       *string           `json:"name" validate:"omitempty,min=1,max=200"`
	BasePrice  *decimal.Decimal  `json:"base_price"`
	Status     *model.ItemStatus `json:"status"`
	Attributes *model.Attributes `json:"attributes"`
	Photos     *model.StringList `json:"photos" validate:"omitempty,max=50,dive,max=500"`
}

// Update handles PATCH /v1/items/:id. Absent fields are left unchanged.
func (h *ItemHandler) Update(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body itemPatchRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	switch {
	case body.Type != nil && !body.Type.Valid():
		return writeError(c, invalid("invalid type"))
	case body.Status != nil && !body.Status.Valid():
		return writeError(c, invalid("invalid status"))
	case body.BasePrice != nil && body.BasePrice.IsNegative():
		return writeError(c, booking.ErrInvalidPrice)
	}
	it, err := h.Items.Update(c.Request().Context(), tid, id, repository.ItemPatch{
		Type:       body.Type,
		Name:       body.Name,
		BasePrice:  body.BasePrice,
		Status:     body.Status,
		Attributes: body.Attributes,
		Photos:     body.Photos,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// Delete handles DELETE /v1/items/:id; booked items answer 409.
func (h *ItemHandler) Delete(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Items.Delete(c.Request().Context(), tid, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type pricingRequest struct {
	Tiers               []pricing.Tier  `json:"tiers" validate:"max=50"`
	MonthlyRate         decimal.Decimal `json:"monthly_rate"`
	AnnualRate          decimal.Decimal `json:"annual_rate"`
	MonthThreshold      int             `json:"month_threshold" validate:"min=0"`
	YearThreshold       int             `json:"year_threshold" validate:"min=0"`
	LowSeasonMultiplier decimal.Decimal `json:"low_season_multiplier"`
	LowSeasonMonths     []time.Month    `json:"low_season_months" validate:"max=12"`
	Scale               int32           `json:"scale"`
}

// PutPricing handles PUT /v1/items/:id/pricing.
func (h *ItemHandler) PutPricing(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body pricingRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	plan := &model.PricingPlan{
		ItemID:              id,
		Tiers:               model.TierList(body.Tiers),
		MonthlyRate:         body.MonthlyRate,
		AnnualRate:          body.AnnualRate,
		MonthThreshold:      body.MonthThreshold,
		YearThreshold:       body.YearThreshold,
		LowSeasonMultiplier: body.LowSeasonMultiplier,
		LowSeasonMonths:     model.MonthList(body.LowSeasonMonths),
		Scale:               body.Scale,
	}
	if err := plan.Plan().Validate(); err != nil {
		return writeError(c, err)
	}
	if err := h.Plans.Put(c.Request().Context(), tid, plan); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *ItemHandler) GetPricing(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	plan, err := h.Plans.Get(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// Availability handles GET /v1/items/:id/availability?start&end.
func (h *ItemHandler) Availability(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var r booking.Range
	if r.Start, err = queryDate(c, "start"); err != nil {
		return writeError(c, err)
	}
	if r.End, err = queryDate(c, "end"); err != nil {
		return writeError(c, err)
	}
	a, err := h.Resolver.Check(c.Request().Context(), tid, id, r)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item_id":    a.ItemID,
		"start_date": r.Start,
		"end_date":   r.End,
		"available":  a.Available,
		"conflicts":  conflictViews(a.Conflicts),
	})
}

// ListBookings handles GET /v1/items/:id/bookings with the booking list filters.
func (h *ItemHandler) ListBookings(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.Items.Get(c.Request().Context(), tid, id); err != nil {
		return writeError(c, err)
	}
	f, err := bookingFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	f.ItemID = id
	list, err := h.Bookings.List(c.Request().Context(), tid, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
