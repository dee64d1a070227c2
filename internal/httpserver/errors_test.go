package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/paystack"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    int
		status  string
		message string
	}{
		{"validation", apperr.Validation("Invalid amount"), http.StatusBadRequest, "fail", "Invalid amount"},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("No product found with that ID")), http.StatusNotFound, "fail", "No product found with that ID"},
		{"forbidden", apperr.Forbidden("nope"), http.StatusForbidden, "fail", "nope"},
		{"conflict", apperr.Conflict("stale"), http.StatusConflict, "fail", "stale"},
		{"internal with message", apperr.Internal("mail down"), http.StatusInternalServerError, "error", "mail down"},
		{"gateway", &paystack.Error{StatusCode: 400, Message: "Invalid key"}, http.StatusBadGateway, "error", "Invalid key"},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "fail", "No document found with that ID"},
		{"duplicate", gorm.ErrDuplicatedKey, http.StatusConflict, "fail", "Duplicate field value. Please use another value!"},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "fail", "slow down"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "error", internalMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"status":%q,"message":%q}`, tt.status, tt.message), rec.Body.String())
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/nothing-here", "", nil)
	requireStatus(t, http.StatusNotFound, rec)
	env := decode(t, rec)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "Can't find /api/v1/nothing-here on this server!", env.Message)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	requireStatus(t, http.StatusOK, h.do(t, http.MethodGet, "/health/live", "", nil))
	requireStatus(t, http.StatusOK, h.do(t, http.MethodGet, "/health/ready", "", nil))
}
