package query_test

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestParse_ExcludesControlKeysAndDoesNotMutate(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	spec := query.MustSpec(gdb, &models.Product{})

	values := url.Values{
		"page":                 {"2"},
		"limit":                {"5"},
		"sort":                 {"-price,title"},
		"fields":               {"title,price"},
		"stock[gte]":           {"1"},
		"price[lt]":            {"50"},
		"available":            {"true"},
		"ratings_average[lte]": {"4.5"},
	}
	before := url.Values{}
	for k, v := range values {
		before[k] = append([]string(nil), v...)
	}

	f, err := spec.Parse(values)
	require.NoError(t, err)
	assert.Equal(t, before, values)

	cols := map[string]string{}
	for _, flt := range f.Filters {
		cols[flt.Column] = flt.Op
	}
	assert.Equal(t, map[string]string{
		"stock":           "gte",
		"price":           "lt",
		"available":       "eq",
		"ratings_average": "lte",
	}, cols)

	assert.Equal(t, []query.Order{{Column: "price", Desc: true}, {Column: "title"}}, f.Orders)
	assert.Equal(t, []string{"id", "title", "price"}, f.Columns)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 5, f.Offset)
}

func TestParse_Defaults(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	spec := query.MustSpec(gdb, &models.Product{})

	f, err := spec.Parse(url.Values{"limit": {"1000"}})
	require.NoError(t, err)
	assert.Empty(t, f.Filters)
	assert.Equal(t, []query.Order{{Column: "created_at", Desc: true}}, f.Orders)
	assert.Nil(t, f.Columns)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, query.MaxLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
}

func TestParse_Rejects(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	spec := query.MustSpec(gdb, &models.User{})

	for name, v := range map[string]url.Values{
		"unknown field":      {"nope": {"1"}},
		"hidden field":       {"password_hash": {"x"}},
		"unknown operator":   {"created_at[ne]": {"2024-01-01"}},
		"bad value":          {"account_activated": {"maybe"}},
		"unknown sort":       {"sort": {"-secret"}},
		"unknown projection": {"fields": {"first_name,password_hash"}},
		"page past last":     {"page": {strconv.Itoa(query.MaxPage(query.DefaultLimit) + 1)}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := spec.Parse(v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestApply_FiltersSortsAndPaginates(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	for _, price := range []string{"5", "15", "25", "35", "45"} {
		testutil.CreateProduct(t, gdb, price, 3)
	}
	testutil.CreateProduct(t, gdb, "55", 0)

	spec := query.MustSpec(gdb, &models.Product{})
	f, err := spec.Parse(url.Values{
		"price[gte]": {"15"},
		"stock[gt]":  {"0"},
		"sort":       {"-price"},
		"limit":      {"2"},
		"page":       {"1"},
	})
	require.NoError(t, err)

	var total int64
	require.NoError(t, f.Filter(gdb.Model(&models.Product{})).Count(&total).Error)
	assert.Equal(t, int64(4), total)

	var page1 []models.Product
	require.NoError(t, f.Apply(gdb.Model(&models.Product{})).Find(&page1).Error)
	require.Len(t, page1, 2)
	assert.True(t, page1[0].Price.Equal(decimal.NewFromInt(45)))
	assert.True(t, page1[1].Price.Equal(decimal.NewFromInt(35)))

	f2, err := spec.Parse(url.Values{"price[gte]": {"15"}, "stock[gt]": {"0"}, "sort": {"-price"}, "limit": {"2"}, "page": {"3"}})
	require.NoError(t, err)
	var page3 []models.Product
	require.NoError(t, f2.Apply(gdb.Model(&models.Product{})).Find(&page3).Error)
	assert.Empty(t, page3)
}

func TestApply_ProjectionAndIn(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	a := testutil.CreateProduct(t, gdb, "10", 1)
	b := testutil.CreateProduct(t, gdb, "20", 1)
	testutil.CreateProduct(t, gdb, "30", 1)

	spec := query.MustSpec(gdb, &models.Product{})
	f, err := spec.Parse(url.Values{"title": {a.Title, b.Title}, "fields": {"title"}, "sort": {"price"}})
	require.NoError(t, err)

	var got []models.Product
	require.NoError(t, f.Apply(gdb.Model(&models.Product{})).Find(&got).Error)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, a.Title, got[0].Title)
	assert.Empty(t, got[0].Description)
}

func TestCalculate(t *testing.T) {
	off, lim := query.Calculate(3, 20)
	assert.Equal(t, 40, off)
	assert.Equal(t, 20, lim)

	off, lim = query.Calculate(0, 0)
	assert.Equal(t, 0, off)
	assert.Equal(t, query.DefaultLimit, lim)

	last := query.MaxPage(100)
	off, _ = query.Calculate(last, 100)
	assert.Equal(t, (last-1)*100, off)
	assert.Positive(t, off)

	off, _ = query.Calculate(math.MaxInt, 100)
	assert.Equal(t, (last-1)*100, off)
}

func TestParse_LastPage(t *testing.T) {
	gdb := testutil.InitTestDB(t)
	spec := query.MustSpec(gdb, &models.Product{})

	last := query.MaxPage(10)
	f, err := spec.Parse(url.Values{"page": {strconv.Itoa(last)}, "limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, last, f.Page)
	assert.Equal(t, (last-1)*10, f.Offset)

	_, err = spec.Parse(url.Values{"page": {strconv.Itoa(last + 1)}, "limit": {"10"}})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestNewMeta(t *testing.T) {
	m := query.NewMeta(2, 10, 25)
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasPrev)
	assert.True(t, m.HasNext)

	m = query.NewMeta(1, 10, 0)
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNext)
}
