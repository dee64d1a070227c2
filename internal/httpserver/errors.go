package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const internalMessage = "Something went very wrong!"

var kindStatus = []struct {
	kind error
	code int
}{
	{apperr.ErrValidation, http.StatusBadRequest},
	{apperr.ErrUnauthorized, http.StatusUnauthorized},
	{apperr.ErrForbidden, http.StatusForbidden},
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrConflict, http.StatusConflict},
	{apperr.ErrInternal, http.StatusInternalServerError},
}

// classify maps an error returned by a handler to a status code and a
// client-facing message.
func classify(c echo.Context, err error) (int, string) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		for _, ks := range kindStatus {
			if errors.Is(ae.Kind, ks.kind) {
				return ks.code, ae.Message
			}
		}
	}

	var pe *paystack.Error
	if errors.As(err, &pe) {
		return http.StatusBadGateway, pe.Message
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "No document found with that ID"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, "Duplicate field value. Please use another value!"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusConflict, "The record is still referenced by other records"
	case errors.Is(err, echo.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request().URL.Path)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, msg
	}

	return http.StatusInternalServerError, internalMessage
}

// ErrorHandler renders every error as {"status": "fail"|"error", "message": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := classify(c, err)
	status := "fail"
	if code >= http.StatusInternalServerError {
		status = "error"
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"status": status, "message": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
