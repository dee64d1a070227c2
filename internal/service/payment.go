package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// Gateway is the payment processor API. *paystack.Client implements it.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	ListTransactions(ctx context.Context, p paystack.ListParams) ([]paystack.Transaction, *paystack.ListMeta, error)
	FetchTransaction(ctx context.Context, id int64) (*paystack.Transaction, error)
}

type PaymentService struct {
	Repo    *repo.GormRepo
	Gateway Gateway
	Events  events.Publisher
}

var errNotPayer = apperr.Forbidden("This transaction was not made by your account")

type InitializeInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Metadata    any             `json:"metadata,omitempty"`
	CallbackURL string          `json:"callback_url,omitempty"`
}

// Initialize starts a gateway transaction for the user's email. Amount is in
// the major currency unit.
func (s *PaymentService) Initialize(ctx context.Context, u *models.User, in InitializeInput) (*paystack.Authorization, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("Invalid amount")
	}
	req := paystack.InitializeRequest{
		Email:       u.Email,
		Amount:      paystack.ToMinor(in.Amount),
		CallbackURL: in.CallbackURL,
	}
	meta := map[string]any{"user_id": u.ID.String()}
	if in.Metadata != nil {
		meta["data"] = in.Metadata
	}
	req.Metadata = meta

	auth, err := s.Gateway.InitializeTransaction(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("payment_initialize_error", "status", 502, "user_id", u.ID, "error", err)
		return nil, err
	}
	return auth, nil
}

// Verify asks the gateway for the transaction state and records it. The
// local payment is created once and later only updated when the status
// changed.
func (s *PaymentService) Verify(ctx context.Context, u *models.User, reference string) (*models.Payment, repo.UpsertResult, error) {
	if reference == "" {
		return nil, repo.PaymentUnchanged, apperr.Validation("Please provide a payment reference")
	}
	tx, err := s.Gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		logging.FromContext(ctx).Warn("payment_verify_error", "status", 502, "reference", reference, "error", err)
		return nil, repo.PaymentUnchanged, err
	}
	if !paidBy(tx, u) {
		logging.FromContext(ctx).Warn("payment_verify_error", "status", 403, "reason", "not payer",
			"reference", reference, "user_id", u.ID)
		return nil, repo.PaymentUnchanged, errNotPayer
	}

	p := &models.Payment{
		UserID:     u.ID,
		GatewayID:  tx.ID,
		CustomerID: tx.Customer.ID,
		Amount:     tx.Major(),
		Currency:   tx.Currency,
		Reference:  tx.Reference,
		Status:     tx.Status,
		PaidAt:     tx.PaidAt,
	}
	if !tx.CreatedAt.IsZero() {
		p.CreatedAt = tx.CreatedAt.UTC()
	}

	res, err := s.Repo.UpsertPayment(ctx, p)
	if err != nil {
		return nil, res, err
	}

	if res != repo.PaymentUnchanged {
		publish(ctx, s.Events, events.TopicPayment, u.ID.String(),
			events.NewEvent("payment."+p.Status, "payment", p.ID.String(), u.ID.String(), map[string]any{
				"reference": p.Reference,
				"amount":    p.Amount,
			}))
	}
	return p, res, nil
}

// paidBy reports whether u made the transaction. The gateway customer email
// must be the user's, and a user_id in the metadata must name the user.
func paidBy(tx *paystack.Transaction, u *models.User) bool {
	if tx.Customer.Email == "" || !strings.EqualFold(tx.Customer.Email, u.Email) {
		return false
	}
	var meta struct {
		UserID string `json:"user_id"`
	}
	if len(tx.Metadata) > 0 && json.Unmarshal(tx.Metadata, &meta) == nil && meta.UserID != "" {
		return meta.UserID == u.ID.String()
	}
	return true
}

func (s *PaymentService) GatewayTransactions(ctx context.Context, params paystack.ListParams) ([]paystack.Transaction, *paystack.ListMeta, error) {
	return s.Gateway.ListTransactions(ctx, params)
}

func (s *PaymentService) GatewayTransaction(ctx context.Context, id int64) (*paystack.Transaction, error) {
	return s.Gateway.FetchTransaction(ctx, id)
}

// Mine returns one of the user's recorded payments by gateway id.
func (s *PaymentService) Mine(ctx context.Context, userID uuid.UUID, gatewayID int64) (*models.Payment, error) {
	p, err := s.Repo.PaymentByGatewayID(ctx, userID, gatewayID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No transaction found")
	}
	return p, err
}
