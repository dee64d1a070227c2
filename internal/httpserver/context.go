package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	ctxToken = "jwt_token"
	ctxUser  = "current_user"
)

// CurrentUser returns the user loaded by Protect, or nil on public routes.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(ctxUser).(*models.User)
	return u
}

func actorID(c echo.Context) uuid.UUID {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return uuid.Nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// bindBody decodes the JSON body into dst. Multipart requests carry the JSON
// document in the "data" form field next to the files.
func bindBody(c echo.Context, dst any) error {
	if isMultipart(c) {
		raw := c.FormValue("data")
		if raw == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return apperr.Validation("Invalid data field: %v", err)
		}
		return nil
	}
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid %s: %s", name, raw)
	}
	return id, nil
}

func success(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"status": "success", "data": data})
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": msg})
}
