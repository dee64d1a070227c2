package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/x", ok)
	e.POST("/x", ok)
	return e
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	e := newEcho()

	tests := []struct {
		name   string
		method string
		setup  func(r *http.Request)
		want   int
	}{
		{"safe method passes", http.MethodGet, func(r *http.Request) {}, http.StatusOK},
		{"anonymous post passes", http.MethodPost, func(r *http.Request) {}, http.StatusOK},
		{"bearer post passes", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "jwt", Value: "t"})
			r.Header.Set(echo.HeaderAuthorization, "Bearer t")
		}, http.StatusOK},
		{"cookie post without token", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "jwt", Value: "t"})
		}, http.StatusForbidden},
		{"cookie post with matching token", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "jwt", Value: "t"})
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
			r.Header.Set("X-CSRF-Token", "abc")
		}, http.StatusOK},
		{"cookie post with wrong token", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "jwt", Value: "t"})
			r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
			r.Header.Set("X-CSRF-Token", "abd")
		}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
