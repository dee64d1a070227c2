package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type UserHandler struct {
	Users   *service.UserService
	Uploads *Uploader
	// Admin serves the user management endpoints.
	Admin *Resource[models.User, *models.User]
}

func (h *UserHandler) GetMe(c echo.Context) error {
	return success(c, http.StatusOK, CurrentUser(c))
}

// UpdateMe changes the profile of the logged in user. A "photo" file replaces
// the profile picture.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	fields := map[string]any{}
	if err := bindBody(c, &fields); err != nil {
		return err
	}
	u := CurrentUser(c)

	if h.Uploads != nil {
		photo, ok, err := h.Uploads.UserPhoto(c, u.ID)
		if err != nil {
			return err
		}
		if ok {
			fields["photo"] = photo
		}
	}

	updated, err := h.Users.UpdateMe(c.Request().Context(), u, fields)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, updated)
}

func (h *UserHandler) DeleteMe(c echo.Context) error {
	if err := h.Users.DeleteMe(c.Request().Context(), CurrentUser(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
