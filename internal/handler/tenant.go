package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/sequence"
)

// AdminTokenHeader carries the operator token for tenant onboarding.
const AdminTokenHeader = "X-Admin-Token"

// TenantHandler onboards tenants and describes the current one.
type TenantHandler struct {
	Tenants    *repository.TenantRepo
	AdminToken string
}

// NewTenantHandler panics if tenants is nil. An empty adminToken disables
// onboarding over HTTP.
func NewTenantHandler(tenants *repository.TenantRepo, adminToken string) *TenantHandler {
	if tenants == nil {
		panic("nil repository passed to NewTenantHandler")
	}
	return &TenantHandler{Tenants: tenants, AdminToken: adminToken}
}

type tenantRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Subdomain        string `json:"subdomain" validate:"required,hostname_rfc1123,max=63"`
	Currency         string `json:"currency" validate:"omitempty,iso4217"`
	InvoicePrefix    string `json:"invoice_prefix"`
	PaymentTermsDays int    `json:"payment_terms_days" validate:"min=0,max=365"`
}

// Create handles POST /v1/tenants.
func (h *TenantHandler) Create(c echo.Context) error {
	given := c.Request().Header.Get(AdminTokenHeader)
	if h.AdminToken == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.AdminToken)) != 1 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body tenantRequest
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	if strings.Contains(body.Subdomain, ".") {
		return writeError(c, invalid("subdomain must be a single label"))
	}
	t := &model.Tenant{
		Name:             strings.TrimSpace(body.Name),
		Subdomain:        body.Subdomain,
		Currency:         strings.ToUpper(body.Currency),
		PaymentTermsDays: body.PaymentTermsDays,
	}
	if body.InvoicePrefix != "" {
		p, err := sequence.NormalizePrefix(body.InvoicePrefix)
		if err != nil {
			return writeError(c, err)
		}
		t.InvoicePrefix = p
	}
	if err := h.Tenants.Create(c.Request().Context(), t); err != nil {
		return writeError(c, err)
	}
	logger.FromEcho(c).Info("tenant created", zap.Uint64("tenant_id", uint64(t.ID)), zap.String("subdomain", t.Subdomain))
	return c.JSON(http.StatusCreated, t)
}

// Current handles GET /v1/tenant.
func (h *TenantHandler) Current(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return writeError(c, err)
	}
	t, err := h.Tenants.GetByID(c.Request().Context(), tid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
