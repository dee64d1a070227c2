package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type checkoutFixture struct {
	carts   *CartService
	orders  *OrderService
	user    *models.User
	product *models.Product
}

func newCheckoutFixture(t *testing.T, price string, stock, qty int) *checkoutFixture {
	t.Helper()
	r := newRepo(t)
	f := &checkoutFixture{
		carts:  &CartService{Repo: r},
		orders: &OrderService{Repo: r, Events: &recordingPublisher{}},
	}
	f.user = testutil.CreateUser(t, r.DB, models.RoleUser)
	f.product = testutil.CreateProduct(t, r.DB, price, stock)
	_, err := f.carts.AddItem(context.Background(), f.user.ID, AddItemInput{ProductID: f.product.ID, Qty: qty})
	require.NoError(t, err)
	return f
}

func checkoutInput(ref string) CheckoutInput {
	return CheckoutInput{
		ShippingAddress:  "12 Marina Road",
		City:             "Lagos",
		Phone:            "+2348012345678",
		PaymentReference: ref,
	}
}

func TestOrderService_CheckoutSnapshotsCart(t *testing.T) {
	f := newCheckoutFixture(t, "20", 5, 2)
	ctx := context.Background()
	db := f.orders.Repo.DB
	testutil.CreatePayment(t, db, f.user.ID, "ref-1", "40", models.PaymentSuccess)

	order, err := f.orders.Checkout(ctx, f.user, checkoutInput("ref-1"))
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 2, order.TotalQty)
	assert.True(t, order.TotalCost.Equal(decimal.NewFromInt(40)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, f.product.Title, order.Items[0].Title)

	var stock int
	require.NoError(t, db.Model(&models.Product{}).Select("stock").Where("id = ?", f.product.ID).Scan(&stock).Error)
	assert.Equal(t, 3, stock)

	_, err = f.orders.Repo.GetCart(ctx, f.user.ID)
	require.Error(t, err, "cart is removed after checkout")

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", f.product.ID).
		UpdateColumn("price", decimal.NewFromInt(99)).Error)

	var stored models.Order
	require.NoError(t, db.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	assert.True(t, stored.TotalCost.Equal(decimal.NewFromInt(40)))
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].Price.Equal(decimal.NewFromInt(20)))
}

func TestOrderService_CheckoutUsesProfileShipping(t *testing.T) {
	f := newCheckoutFixture(t, "5", 5, 1)
	db := f.orders.Repo.DB
	f.user.ShippingAddress = "1 Profile Street"
	f.user.Phone = "+2348000000000"
	testutil.CreatePayment(t, db, f.user.ID, "ref-profile", "5", models.PaymentSuccess)

	order, err := f.orders.Checkout(context.Background(), f.user, CheckoutInput{PaymentReference: "ref-profile"})
	require.NoError(t, err)
	assert.Equal(t, "1 Profile Street", order.ShippingAddress)
	assert.Equal(t, "+2348000000000", order.Phone)
}

func TestOrderService_CheckoutRejections(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		stock   int
		qty     int
		payment func(t *testing.T, f *checkoutFixture)
		kind    error
	}{
		{
			name: "no payment", price: "10", stock: 5, qty: 1,
			payment: func(*testing.T, *checkoutFixture) {},
			kind:    apperr.ErrValidation,
		},
		{
			name: "payment not successful", price: "10", stock: 5, qty: 1,
			payment: func(t *testing.T, f *checkoutFixture) {
				testutil.CreatePayment(t, f.orders.Repo.DB, f.user.ID, "ref", "10", models.PaymentPending)
			},
			kind: apperr.ErrValidation,
		},
		{
			name: "payment of another user", price: "10", stock: 5, qty: 1,
			payment: func(t *testing.T, f *checkoutFixture) {
				other := testutil.CreateUser(t, f.orders.Repo.DB, models.RoleUser)
				testutil.CreatePayment(t, f.orders.Repo.DB, other.ID, "ref", "10", models.PaymentSuccess)
			},
			kind: apperr.ErrValidation,
		},
		{
			name: "amount too small", price: "10", stock: 5, qty: 2,
			payment: func(t *testing.T, f *checkoutFixture) {
				testutil.CreatePayment(t, f.orders.Repo.DB, f.user.ID, "ref", "19.99", models.PaymentSuccess)
			},
			kind: apperr.ErrValidation,
		},
		{
			name: "not enough stock", price: "10", stock: 1, qty: 2,
			payment: func(t *testing.T, f *checkoutFixture) {
				testutil.CreatePayment(t, f.orders.Repo.DB, f.user.ID, "ref", "20", models.PaymentSuccess)
			},
			kind: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, tt.price, tt.stock, tt.qty)
			tt.payment(t, f)

			_, err := f.orders.Checkout(context.Background(), f.user, checkoutInput("ref"))
			require.ErrorIs(t, err, tt.kind)

			cart, err := f.orders.Repo.GetCart(context.Background(), f.user.ID)
			require.NoError(t, err, "cart survives a failed checkout")
			assert.Len(t, cart.Items, 1)

			var stock int
			require.NoError(t, f.orders.Repo.DB.Model(&models.Product{}).Select("stock").
				Where("id = ?", f.product.ID).Scan(&stock).Error)
			assert.Equal(t, tt.stock, stock)
		})
	}
}

func TestOrderService_CheckoutEmptyCart(t *testing.T) {
	r := newRepo(t)
	svc := &OrderService{Repo: r}
	u := testutil.CreateUser(t, r.DB, models.RoleUser)
	testutil.CreatePayment(t, r.DB, u.ID, "ref", "10", models.PaymentSuccess)

	_, err := svc.Checkout(context.Background(), u, checkoutInput("ref"))
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOrderService_CheckoutRequiresReference(t *testing.T) {
	f := newCheckoutFixture(t, "10", 5, 1)
	_, err := f.orders.Checkout(context.Background(), f.user, checkoutInput(""))
	require.ErrorIs(t, err, apperr.ErrValidation)
}
