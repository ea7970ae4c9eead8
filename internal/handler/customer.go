package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
)

// CustomerHandler manages a tenant's customers.
type CustomerHandler struct {
	Customers *repository.CustomerRepo
}

// NewCustomerHandler panics if customers is nil.
func NewCustomerHandler(customers *repository.CustomerRepo) *CustomerHandler {
	if customers == nil {
		panic("nil repository passed to NewCustomerHandler")
	}
	return &CustomerHandler{Customers: customers}
}

type customerRequest struct {
	NaturalKey string `json:"natural_key" validate:"required,max=100"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email,max=200"`
	Phone      string `json:"phone" validate:"max=50"`
}

// Create handles POST /v1/customers; a reused natural key answers 409.
func (h *CustomerHandler) Create(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	var body customerRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	cust := &model.Customer{
		NaturalKey: strings.TrimSpace(body.NaturalKey),
		Name:       strings.TrimSpace(body.Name),
		Email:      strings.TrimSpace(body.Email),
		Phone:      strings.TrimSpace(body.Phone),
	}
	if err := h.Customers.Create(c.Request().Context(), tid, cust); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

func (h *CustomerHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	cust, err := h.Customers.Get(c.Request().Context(), tid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// List handles GET /v1/customers?q&ids.
func (h *CustomerHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	f := repository.CustomerFilter{Search: c.QueryParam("q")}
	if f.IDs, err = queryIDs(c, "ids"); err != nil {
		return writeError(c, err)
	}
	if f.Limit, f.Offset, err = paging(c); err != nil {
		return writeError(c, err)
	}
	list, err := h.Customers.List(c.Request().Context(), tid, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type customerPatchRequest struct {
	NaturalKey *string `json:"natural_key" validate:"omitempty,min=1,max=100"`
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email      *string `json:"email" validate:"omitempty,email,max=200"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
}

func (h *CustomerHandler) Update(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body customerPatchRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	cust, err := h.Customers.Update(c.Request().Context(), tid, id, repository.CustomerPatch{
		NaturalKey: body.NaturalKey,
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Delete handles DELETE /v1/customers/:id; customers with bookings answer 409.
func (h *CustomerHandler) Delete(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Customers.Delete(c.Request().Context(), tid, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
