package httpserver

import (
	"log/slog"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

const (
	jsonBodyLimit      = "10K"
	multipartBodyLimit = "60M"
)

type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// Production enables HSTS and secure cookies.
	Production bool
	// TrustProxy reads the client address from X-Forwarded-For, skipping
	// private and loopback hops. Otherwise the peer address is used.
	TrustProxy bool
}

func ipExtractor(trustProxy bool) echo.IPExtractor {
	if trustProxy {
		return echo.ExtractIPFromXFFHeader()
	}
	return echo.ExtractIPDirect()
}

// bodyLimit allows larger bodies only for image uploads.
func bodyLimit() echo.MiddlewareFunc {
	small := middleware.BodyLimit(jsonBodyLimit)
	large := middleware.BodyLimit(multipartBodyLimit)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		s, l := small(next), large(next)
		return func(c echo.Context) error {
			if isMultipart(c) {
				return l(c)
			}
			return s(c)
		}
	}
}

// New builds the echo instance with the shared middleware stack and routes.
func New(opts Options, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.IPExtractor = ipExtractor(opts.TrustProxy)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	secure := middleware.DefaultSecureConfig
	if opts.Production {
		secure.HSTSMaxAge = 31536000
	}

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = opts.Production
	csrfCfg.EnforceSameOrigin = opts.Production

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     origins,
			AllowCredentials: !slices.Contains(origins, "*"),
		}),
		middleware.SecureWithConfig(secure),
		bodyLimit(),
		csrf.Middleware(csrfCfg),
	)

	d.SecureCookies = opts.Production
	Register(e, d)
	return e
}
