package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type AuthHandler struct {
	Auth *service.AuthService
	// Secure marks the session cookie as HTTPS only.
	Secure bool
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordInput struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type emailInput struct {
	Email string `json:"email"`
}

// sendSession writes the token both as the jwt cookie and in the body.
func (h *AuthHandler) sendSession(c echo.Context, code int, s *service.Session) error {
	c.SetCookie(tokens.CreateCookie(s.Token, s.Expires, h.Secure))
	return c.JSON(code, echo.Map{
		"status": "success",
		"token":  s.Token,
		"data":   echo.Map{"user": s.User},
	})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var in service.SignupInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.Signup(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"status":  "success",
		"message": "Token sent to email! Please activate your account.",
		"data":    echo.Map{"user": u},
	})
}

func (h *AuthHandler) Activate(c echo.Context) error {
	s, err := h.Auth.Activate(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) ResendActivation(c echo.Context) error {
	var in emailInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	if err := h.Auth.ResendActivation(c.Request().Context(), in.Email); err != nil {
		return err
	}
	return message(c, "Token sent to email!")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var in credentials
	if err := bindBody(c, &in); err != nil {
		return err
	}
	s, err := h.Auth.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(tokens.DeleteCookie(h.Secure))
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var in emailInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	if err := h.Auth.ForgotPassword(c.Request().Context(), in.Email); err != nil {
		return err
	}
	return message(c, "Token sent to email!")
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var in passwordInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	s, err := h.Auth.ResetPassword(c.Request().Context(), c.Param("token"), in.Password, in.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var in passwordInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	s, err := h.Auth.UpdatePassword(c.Request().Context(), CurrentUser(c), in.PasswordCurrent, in.Password, in.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}
