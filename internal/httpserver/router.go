package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
	// SecureCookies marks cookies as HTTPS only.
	SecureCookies bool

	Auth     *service.AuthService
	Users    *service.UserService
	Carts    *service.CartService
	Orders   *service.OrderService
	Reviews  *service.ReviewService
	Products *service.ProductService
	Payments *service.PaymentService

	// Uploads is nil when image uploads are disabled.
	Uploads *Uploader
	// Limiter is nil when no Redis is configured.
	Limiter *ratelimit.Limiter
	// StaticDir serves stored images under /img when set.
	StaticDir string
}

func (d *Deps) gormRepo() *repo.GormRepo {
	return &repo.GormRepo{DB: d.DB}
}

func Register(e *echo.Echo, d *Deps) {
	r := d.gormRepo()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "error", "message": "database unavailable"})
		}
		return c.NoContent(http.StatusOK)
	})
	if d.StaticDir != "" {
		e.Static("/img", d.StaticDir)
	}

	v1 := e.Group("/api/v1")
	if d.Limiter != nil {
		v1.Use(ratelimit.Middleware(d.Limiter))
	}

	protect := Protect(d.JWTSecret, r)
	staff := RestrictTo(models.RoleAdmin, models.RoleEditor)
	admin := RestrictTo(models.RoleAdmin)
	customer := RestrictTo(models.RoleUser)

	// users
	auth := &AuthHandler{Auth: d.Auth, Secure: d.SecureCookies}
	users := &UserHandler{
		Users:   d.Users,
		Uploads: d.Uploads,
		Admin: &Resource[models.User, *models.User]{
			Name: "user",
			Repo: repo.NewRepo[models.User](d.DB),
			Spec: query.MustSpec(d.DB, &models.User{}),
		},
	}

	u := v1.Group("/users")
	u.POST("/signup", auth.Signup)
	u.POST("/login", auth.Login)
	u.GET("/logout", auth.Logout)
	u.POST("/forgot-password", auth.ForgotPassword)
	u.PATCH("/reset-password/:token", auth.ResetPassword)
	u.POST("/resend-activation", auth.ResendActivation)
	u.PATCH("/activate/:token", auth.Activate)

	u.PATCH("/update-my-password", auth.UpdatePassword, protect)
	u.GET("/me", users.GetMe, protect)
	u.PATCH("/me", users.UpdateMe, protect)
	u.DELETE("/me", users.DeleteMe, protect)

	u.GET("", users.Admin.List, protect, staff)
	u.GET("/:id", users.Admin.Get, protect, staff)
	u.PATCH("/:id", users.Admin.Update, protect, admin)
	u.DELETE("/:id", users.Admin.Delete, protect, admin)

	// categories
	categories := NewCategoryResource(d.DB, d.Uploads)
	cg := v1.Group("/categories")
	cg.GET("", categories.List)
	cg.GET("/:id", categories.Get)
	cg.POST("", categories.Create, protect, staff)
	cg.PATCH("/:id", categories.Update, protect, staff)
	cg.DELETE("/:id", categories.Delete, protect, staff)

	// products and their reviews
	products := &ProductHandler{
		Products:   d.Products,
		Repo:       r,
		Uploads:    d.Uploads,
		Resource:   NewProductResource(d.DB, d.Products, d.Uploads),
		Categories: categories,
	}
	reviews := &ReviewHandler{Resource: NewReviewResource(d.DB, r, d.Reviews)}

	p := v1.Group("/products")
	p.GET("", products.Resource.List)
	p.GET("/search", products.Search)
	p.GET("/export", products.Export, protect, staff)
	p.POST("/reindex", products.Reindex, protect, admin)
	p.GET("/slug/:slug", products.BySlug)
	p.GET("/category/:slug", products.ByCategory)
	p.GET("/:id", products.Resource.Get)
	p.POST("", products.Resource.Create, protect, staff)
	p.PATCH("/:id", products.Resource.Update, protect, staff)
	p.DELETE("/:id", products.Resource.Delete, protect, staff)
	p.GET("/:id/reviews", reviews.ForProduct)
	p.POST("/:id/reviews", reviews.Resource.Create, protect, customer)

	rv := v1.Group("/reviews", protect)
	rv.GET("", reviews.Resource.List)
	rv.GET("/:id", reviews.Resource.Get)
	rv.PATCH("/:id", reviews.Resource.Update)
	rv.DELETE("/:id", reviews.Resource.Delete)

	// carts
	carts := &CartHandler{Carts: d.Carts}
	ct := v1.Group("/carts", protect, customer)
	ct.GET("", carts.Get)
	ct.DELETE("", carts.Empty)
	ct.POST("/items", carts.AddItem)
	ct.PATCH("/items", carts.UpdateItems)
	ct.DELETE("/items/:productId", carts.RemoveItem)

	// orders
	adminOrders, myOrders := NewOrderResources(d.DB)
	orders := &OrderHandler{Orders: d.Orders, Admin: adminOrders, Mine: myOrders}
	o := v1.Group("/orders", protect)
	o.GET("", orders.Admin.List, admin)
	o.POST("", orders.Checkout, customer)
	o.GET("/me", orders.Mine.List, customer)
	o.GET("/me/:id", orders.Mine.Get, customer)
	o.GET("/:id", orders.Admin.Get, admin)
	o.PATCH("/:id", orders.Admin.Update, admin)
	o.DELETE("/:id", orders.Admin.Delete, admin)

	// payments
	adminPayments, myPayments := NewPaymentResources(d.DB)
	payments := &PaymentHandler{Payments: d.Payments, Admin: adminPayments, Mine: myPayments}
	pm := v1.Group("/payments", protect)
	pm.GET("", payments.Admin.List, staff)
	pm.GET("/gateway", payments.GatewayList, staff)
	pm.GET("/gateway/:id", payments.GatewayGet, staff)
	pm.POST("", payments.Initialize, customer)
	pm.GET("/verify/:reference", payments.Verify, customer)
	pm.GET("/me", payments.Mine.List, customer)
	pm.GET("/me/:paymentId", payments.MineByGatewayID, customer)
	pm.GET("/:id", payments.Admin.Get, staff)
}
