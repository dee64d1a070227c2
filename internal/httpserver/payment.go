package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

type PaymentHandler struct {
	Payments *service.PaymentService
	// Admin lists every recorded payment, Mine only the caller's.
	Admin *Resource[models.Payment, *models.Payment]
	Mine  *Resource[models.Payment, *models.Payment]
}

func NewPaymentResources(db *gorm.DB) (admin, mine *Resource[models.Payment, *models.Payment]) {
	spec := query.MustSpec(db, &models.Payment{})
	admin = &Resource[models.Payment, *models.Payment]{
		Name: "payment",
		Repo: repo.NewRepo[models.Payment](db),
		Spec: spec,
	}
	mine = &Resource[models.Payment, *models.Payment]{
		Name:  "payment",
		Repo:  admin.Repo,
		Spec:  spec,
		Scope: ownedBy,
	}
	return admin, mine
}

func gatewayID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %s: %s", name, raw)
	}
	return id, nil
}

// Initialize starts a gateway transaction and returns its checkout URL.
func (h *PaymentHandler) Initialize(c echo.Context) error {
	var in service.InitializeInput
	if err := bindBody(c, &in); err != nil {
		return err
	}
	auth, err := h.Payments.Initialize(c.Request().Context(), CurrentUser(c), in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, auth)
}

// Verify records the gateway state of reference. The first verification
// answers 201, later ones 200.
func (h *PaymentHandler) Verify(c echo.Context) error {
	p, res, err := h.Payments.Verify(c.Request().Context(), CurrentUser(c), c.Param("reference"))
	if err != nil {
		return err
	}
	code := http.StatusOK
	if res == repo.PaymentCreated {
		code = http.StatusCreated
	}
	return success(c, code, p)
}

func (h *PaymentHandler) GatewayList(c echo.Context) error {
	params := paystack.ListParams{
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "limit", query.DefaultLimit),
		Status:  c.QueryParam("status"),
	}
	txs, meta, err := h.Payments.GatewayTransactions(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"count":  len(txs),
		"data":   txs,
		"meta":   meta,
	})
}

func (h *PaymentHandler) GatewayGet(c echo.Context) error {
	id, err := gatewayID(c, "id")
	if err != nil {
		return err
	}
	tx, err := h.Payments.GatewayTransaction(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, tx)
}

// MineByGatewayID returns one of the caller's payments by its gateway id.
func (h *PaymentHandler) MineByGatewayID(c echo.Context) error {
	id, err := gatewayID(c, "paymentId")
	if err != nil {
		return err
	}
	p, err := h.Payments.Mine(c.Request().Context(), CurrentUser(c).ID, id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, p)
}
