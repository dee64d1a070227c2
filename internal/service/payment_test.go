package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func newPaymentService(t *testing.T, status string) (*PaymentService, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{tx: &paystack.Transaction{
		ID:        4099260516,
		Status:    status,
		Amount:    250000,
		Currency:  "NGN",
		CreatedAt: time.Date(2024, 8, 22, 9, 14, 24, 0, time.UTC),
		Customer:  paystack.Customer{ID: 181873746, Email: "ada@example.com"},
	}}
	return &PaymentService{Repo: newRepo(t), Gateway: gw, Events: &recordingPublisher{}}, gw
}

func TestPaymentService_VerifyIsIdempotent(t *testing.T) {
	svc, gw := newPaymentService(t, models.PaymentPending)
	ctx := context.Background()
	u := testutil.CreateUser(t, svc.Repo.DB, models.RoleUser)
	gw.tx.Customer.Email = u.Email

	first, res, err := svc.Verify(ctx, u, "ref-42")
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentCreated, res)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, int64(181873746), first.CustomerID)

	again, res, err := svc.Verify(ctx, u, "ref-42")
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentUnchanged, res)
	assert.Equal(t, first.ID, again.ID)

	gw.tx.Status = models.PaymentSuccess
	updated, res, err := svc.Verify(ctx, u, "ref-42")
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentUpdated, res)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, models.PaymentSuccess, updated.Status)

	var n int64
	require.NoError(t, svc.Repo.DB.Model(&models.Payment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	mine, err := svc.Mine(ctx, u.ID, gw.tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, mine.Status)

	_, err = svc.Mine(ctx, u.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPaymentService_Initialize(t *testing.T) {
	svc, gw := newPaymentService(t, models.PaymentPending)
	ctx := context.Background()
	u := testutil.CreateUser(t, svc.Repo.DB, models.RoleUser)

	_, err := svc.Initialize(ctx, u, InitializeInput{Amount: decimal.Zero})
	require.ErrorIs(t, err, apperr.ErrValidation)

	auth, err := svc.Initialize(ctx, u, InitializeInput{
		Amount:      decimal.RequireFromString("1500.50"),
		Metadata:    map[string]any{"cart": "x"},
		CallbackURL: "https://shop.test/paid",
	})
	require.NoError(t, err)
	assert.Equal(t, "ref-init", auth.Reference)

	require.Len(t, gw.initialized, 1)
	assert.Equal(t, int64(150050), gw.initialized[0].Amount)
	assert.Equal(t, u.Email, gw.initialized[0].Email)
	assert.Equal(t, "https://shop.test/paid", gw.initialized[0].CallbackURL)
	assert.Equal(t, map[string]any{"user_id": u.ID.String(), "data": map[string]any{"cart": "x"}}, gw.initialized[0].Metadata)

	_, err = svc.Initialize(ctx, u, InitializeInput{Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user_id": u.ID.String()}, gw.initialized[1].Metadata)
}

func TestPaymentService_VerifyRejectsOtherPayers(t *testing.T) {
	svc, gw := newPaymentService(t, models.PaymentSuccess)
	ctx := context.Background()
	payer := testutil.CreateUser(t, svc.Repo.DB, models.RoleUser)
	other := testutil.CreateUser(t, svc.Repo.DB, models.RoleUser)
	gw.tx.Customer.Email = payer.Email

	_, _, err := svc.Verify(ctx, other, "ref-taken")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	var n int64
	require.NoError(t, svc.Repo.DB.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)

	p, res, err := svc.Verify(ctx, payer, "ref-taken")
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentCreated, res)
	assert.Equal(t, payer.ID, p.UserID)

	_, _, err = svc.Verify(ctx, other, "ref-taken")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	t.Run("metadata names another user", func(t *testing.T) {
		gw.tx.ID++
		gw.tx.Metadata = json.RawMessage(`{"user_id":"` + other.ID.String() + `"}`)
		t.Cleanup(func() { gw.tx.Metadata = nil })

		_, _, err := svc.Verify(ctx, payer, "ref-meta")
		require.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("no customer email", func(t *testing.T) {
		gw.tx.ID++
		gw.tx.Customer.Email = ""
		t.Cleanup(func() { gw.tx.Customer.Email = payer.Email })

		_, _, err := svc.Verify(ctx, payer, "ref-anon")
		require.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestUpsertPayment_KeepsOwner(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, r.DB, models.RoleUser)
	other := testutil.CreateUser(t, r.DB, models.RoleUser)

	p := &models.Payment{UserID: owner.ID, GatewayID: 77, Amount: decimal.NewFromInt(10), Reference: "ref-77", Status: models.PaymentPending}
	res, err := r.UpsertPayment(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentCreated, res)

	claim := &models.Payment{UserID: other.ID, GatewayID: 77, Amount: decimal.NewFromInt(10), Reference: "ref-77", Status: models.PaymentSuccess}
	_, err = r.UpsertPayment(ctx, claim)
	require.ErrorIs(t, err, repo.ErrForeignPayment)
	assert.Equal(t, other.ID, claim.UserID)

	var stored models.Payment
	require.NoError(t, r.DB.Where("gateway_id = ?", 77).First(&stored).Error)
	assert.Equal(t, owner.ID, stored.UserID)
	assert.Equal(t, models.PaymentPending, stored.Status)
}

func TestPaymentService_GatewayErrorsPassThrough(t *testing.T) {
	svc, gw := newPaymentService(t, models.PaymentPending)
	gw.err = &paystack.Error{StatusCode: 400, Message: "Transaction reference not found"}
	u := testutil.CreateUser(t, svc.Repo.DB, models.RoleUser)

	_, _, err := svc.Verify(context.Background(), u, "missing")
	var perr *paystack.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Transaction reference not found", perr.Message)
}
