// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/hash"
)

const Password = "test12345"

var seq atomic.Int64

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func next() int64 { return seq.Add(1) }

// CreateUser stores an activated user whose password is Password.
func CreateUser(t *testing.T, gdb *gorm.DB, role string) *models.User {
	t.Helper()

	pw, err := hash.HashPassword(Password)
	require.NoError(t, err)

	n := next()
	u := &models.User{
		FirstName:        "Test",
		LastName:         fmt.Sprintf("User%d", n),
		Email:            fmt.Sprintf("user%d@example.com", n),
		Role:             role,
		PasswordHash:     pw,
		AccountActivated: true,
		Active:           true,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func CreateProduct(t *testing.T, gdb *gorm.DB, price string, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		Title:       fmt.Sprintf("Product %d", next()),
		Description: "test product",
		Price:       decimal.RequireFromString(price),
		Images:      []string{"product.jpeg"},
		Stock:       stock,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func CreateCategory(t *testing.T, gdb *gorm.DB, title string) *models.Category {
	t.Helper()

	c := &models.Category{Title: title, Thumbnail: "category.jpeg"}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func CreatePayment(t *testing.T, gdb *gorm.DB, userID uuid.UUID, reference, amount, status string) *models.Payment {
	t.Helper()

	now := time.Now().UTC()
	p := &models.Payment{
		UserID:    userID,
		GatewayID: next(),
		Amount:    decimal.RequireFromString(amount),
		Reference: reference,
		Status:    status,
		PaidAt:    &now,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}
