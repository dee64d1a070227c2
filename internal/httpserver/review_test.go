package httpserver

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestReviewLifecycle(t *testing.T) {
	h := newHarness(t)
	author := testutil.CreateUser(t, h.db, models.RoleUser)
	stranger := testutil.CreateUser(t, h.db, models.RoleUser)
	admin := testutil.CreateUser(t, h.db, models.RoleAdmin)
	product := testutil.CreateProduct(t, h.db, "30", 2)
	productURL := "/api/v1/products/" + product.ID.String()

	rec := h.do(t, http.MethodPost, productURL+"/reviews", tokenFor(t, author), map[string]any{
		"rating":     4,
		"review":     "Works well",
		"user_id":    stranger.ID,
		"product_id": uuid.New(),
	})
	requireStatus(t, http.StatusCreated, rec)
	var review models.Review
	decodeData(t, rec, &review)
	assert.Equal(t, author.ID, review.UserID)
	assert.Equal(t, product.ID, review.ProductID)

	var p models.Product
	decodeData(t, h.do(t, http.MethodGet, productURL, "", nil), &p)
	assert.Equal(t, 1, p.RatingsQuantity)
	assert.InDelta(t, 4.0, p.RatingsAverage, 0.001)

	rec = h.do(t, http.MethodGet, productURL+"/reviews", "", nil)
	requireStatus(t, http.StatusOK, rec)
	assert.Equal(t, 1, decode(t, rec).Count)

	reviewURL := "/api/v1/reviews/" + review.ID.String()
	requireStatus(t, http.StatusForbidden, h.do(t, http.MethodPatch, reviewURL, tokenFor(t, stranger), map[string]any{"rating": 1}))

	rec = h.do(t, http.MethodPatch, reviewURL, tokenFor(t, author), map[string]any{"rating": 2})
	requireStatus(t, http.StatusOK, rec)
	decodeData(t, h.do(t, http.MethodGet, productURL, "", nil), &p)
	assert.InDelta(t, 2.0, p.RatingsAverage, 0.001)

	requireStatus(t, http.StatusNoContent, h.do(t, http.MethodDelete, reviewURL, tokenFor(t, admin), nil))
	decodeData(t, h.do(t, http.MethodGet, productURL, "", nil), &p)
	assert.Equal(t, 0, p.RatingsQuantity)
	assert.InDelta(t, models.DefaultRatingsAverage, p.RatingsAverage, 0.001)
}

func TestReviewCreate_Rejections(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.db, models.RoleUser)
	editor := testutil.CreateUser(t, h.db, models.RoleEditor)
	product := testutil.CreateProduct(t, h.db, "30", 2)

	body := map[string]any{"rating": 5, "review": "Great"}

	rec := h.do(t, http.MethodPost, "/api/v1/products/"+uuid.NewString()+"/reviews", tokenFor(t, user), body)
	requireStatus(t, http.StatusNotFound, rec)

	rec = h.do(t, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/reviews", tokenFor(t, editor), body)
	requireStatus(t, http.StatusForbidden, rec)

	rec = h.do(t, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/reviews", tokenFor(t, user), map[string]any{"rating": 9, "review": "?"})
	requireStatus(t, http.StatusBadRequest, rec)
	require.Equal(t, "Rating must be between 1 and 5", decode(t, rec).Message)
}
