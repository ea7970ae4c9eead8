package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/pricing"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/sequence"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// badRequest is a client error whose message is safe to return verbatim.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalid(msg string) error { return badRequest{msg: msg} }

// tenantID returns the tenant bound by the TenantContext middleware.
func tenantID(c echo.Context) (tenant.ID, error) {
	return tenant.FromContext(c.Request().Context())
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("invalid " + name)
	}
	return id, nil
}

// bind decodes the body into dst and runs struct validation.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return invalid("invalid request body")
	}
	return c.Validate(dst)
}

func queryUint(c echo.Context, name string) (uint64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, invalid("invalid " + name)
	}
	return n, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, invalid("invalid " + name)
	}
	return n, nil
}

func queryDate(c echo.Context, name string) (model.Date, error) {
	s := c.QueryParam(name)
	if s == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, invalid(name + ": " + err.Error())
	}
	return d, nil
}

// queryIDs parses a comma separated id list such as ?ids=3,7,9.
func queryIDs(c echo.Context, name string) ([]uint64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	var ids []uint64
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || n == 0 {
			return nil, invalid("invalid " + name)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func paging(c echo.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(c, "offset")
	return limit, offset, err
}

type conflictView struct {
	ID        uint64              `json:"id"`
	StartDate model.Date          `json:"start_date"`
	EndDate   model.Date          `json:"end_date"`
	Status    model.BookingStatus `json:"status"`
}

func conflictViews(bs []model.Booking) []conflictView {
	out := make([]conflictView, 0, len(bs))
	for _, b := range bs {
		out = append(out, conflictView{ID: b.ID, StartDate: b.StartDate, EndDate: b.EndDate, Status: b.Status})
	}
	return out
}

// writeError maps domain errors onto HTTP responses. Unknown errors become
// a bare 500 and are logged with the request logger.
func writeError(c echo.Context, err error) error {
	var (
		br         badRequest
		verrs      validator.ValidationErrors
		conflict   *booking.ConflictError
		transition *booking.TransitionError
	)
	switch {
	case errors.As(err, &br):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": br.msg})
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrors(verrs)})
	case errors.Is(err, tenant.ErrTenantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrInvalidRange),
		errors.Is(err, booking.ErrInvalidPrice),
		errors.Is(err, pricing.ErrInvalidDuration),
		errors.Is(err, pricing.ErrInvalidPlan),
		errors.Is(err, pricing.ErrNoTier),
		errors.Is(err, sequence.ErrInvalidPrefix):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "conflicts": conflictViews(conflict.Conflicts)})
	case errors.Is(err, booking.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry later"})
	case errors.As(err, &transition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid transition", "from": transition.From, "to": transition.To})
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrItemUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInUse):
		return c.JSON(http.StatusConflict, echo.Map{"error": "in use"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	}
	logger.FromEcho(c).Error("request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
