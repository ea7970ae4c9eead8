package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/model"
	"github.com/iliyamo/rentdesk/internal/pricing"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

func TestWriteError(t *testing.T) {
	conflict := &booking.ConflictError{Conflicts: []model.Booking{{
		ID: 4, StartDate: model.NewDate(2025, 3, 1), EndDate: model.NewDate(2025, 3, 4), Status: model.BookingPending,
	}}}
	cases := []struct {
		err  error
		code int
	}{
		{invalid("bad"), http.StatusBadRequest},
		{tenant.ErrTenantNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound},
		{booking.ErrInvalidRange, http.StatusBadRequest},
		{fmt.Errorf("x: %w", pricing.ErrInvalidDuration), http.StatusBadRequest},
		{conflict, http.StatusConflict},
		{fmt.Errorf("wait: %w", booking.ErrBusy), http.StatusServiceUnavailable},
		{&booking.TransitionError{From: model.BookingCompleted, To: model.BookingCancelled}, http.StatusConflict},
		{booking.ErrItemUnavailable, http.StatusConflict},
		{repository.ErrInUse, http.StatusConflict},
		{repository.ErrDuplicate, http.StatusConflict},
		{booking.ErrDuplicateInvoice, http.StatusInternalServerError},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := writeError(c, tc.err); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.code {
			t.Errorf("%v: got %d, want %d", tc.err, rec.Code, tc.code)
		}
		if rec.Code == http.StatusInternalServerError && rec.Body.String() != "{\"error\":\"internal error\"}\n" {
			t.Errorf("internal detail leaked: %s", rec.Body.String())
		}
		if tc.err == error(conflict) {
			var body struct {
				Conflicts []conflictView `json:"conflicts"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Conflicts) != 1 || body.Conflicts[0].ID != 4 {
				t.Errorf("conflict body %s", rec.Body.String())
			}
		}
		if tc.code == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
			t.Error("busy without Retry-After")
		}
	}
}

func TestValidatorUsesJSONNames(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := c.Validate(&customerRequest{Name: "x", Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	_ = writeError(c, err)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Fields["natural_key"] != "required" || body.Fields["email"] != "email" {
		t.Fatalf("fields %v", body.Fields)
	}
}
