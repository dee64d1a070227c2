package httpserver

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductHandler struct {
	Products   *service.ProductService
	Repo       *repo.GormRepo
	Uploads    *Uploader
	Resource   *Resource[models.Product, *models.Product]
	Categories *Resource[models.Category, *models.Category]
}

// NewProductResource wires the product CRUD hooks: images come from the
// "images" upload, ratings are owned by reviews and categories are linked
// through category_ids.
func NewProductResource(db *gorm.DB, products *service.ProductService, uploads *Uploader) *Resource[models.Product, *models.Product] {
	return &Resource[models.Product, *models.Product]{
		Name:    "product",
		Repo:    repo.NewRepo[models.Product](db),
		Spec:    query.MustSpec(db, &models.Product{}),
		Preload: []string{"Categories"},
		Prepare: func(c echo.Context, rec, old *models.Product) error {
			if old == nil {
				rec.ID = uuid.New()
				rec.RatingsAverage = models.DefaultRatingsAverage
				rec.RatingsQuantity = 0
			} else {
				rec.RatingsAverage = old.RatingsAverage
				rec.RatingsQuantity = old.RatingsQuantity
			}
			rec.Categories = nil
			rec.Reviews = nil

			if uploads != nil {
				images, err := uploads.ProductImages(c, rec.ID)
				if err != nil {
					return err
				}
				if images != nil {
					rec.Images = images
				}
			}
			return nil
		},
		AfterWrite: func(c echo.Context, rec *models.Product, created bool) error {
			ctx := c.Request().Context()
			if err := products.Saved(ctx, rec, actorID(c), created); err != nil {
				return err
			}
			if rec.CategoryIDs == nil {
				return db.WithContext(ctx).Model(rec).Association("Categories").Find(&rec.Categories)
			}
			return nil
		},
		AfterDelete: func(c echo.Context, rec *models.Product) error {
			products.Deleted(c.Request().Context(), rec, actorID(c))
			return nil
		},
	}
}

func NewCategoryResource(db *gorm.DB, uploads *Uploader) *Resource[models.Category, *models.Category] {
	return &Resource[models.Category, *models.Category]{
		Name: "category",
		Repo: repo.NewRepo[models.Category](db),
		Spec: query.MustSpec(db, &models.Category{}),
		Prepare: func(c echo.Context, rec, _ *models.Category) error {
			if uploads == nil {
				return nil
			}
			thumb, ok, err := uploads.CategoryThumbnail(c)
			if err != nil {
				return err
			}
			if ok {
				rec.Thumbnail = thumb
			}
			return nil
		},
	}
}

// BySlug returns the product with its categories and reviews.
func (h *ProductHandler) BySlug(c echo.Context) error {
	p, err := h.Repo.ProductBySlug(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("No product found with that slug")
	}
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, p)
}

func (h *ProductHandler) ByCategory(c echo.Context) error {
	cat, err := h.Repo.CategoryBySlug(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("No category found with that slug")
	}
	if err != nil {
		return err
	}
	return h.Resource.ListWith(c, repo.InCategory(cat.ID))
}

func intQuery(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) Search(c echo.Context) error {
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	_, limit := query.Calculate(page, intQuery(c, "limit", query.DefaultLimit))
	if page > query.MaxPage(limit) {
		return apperr.Validation("Page %d is out of range", page)
	}

	total, docs, err := h.Products.Search(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"count":  len(docs),
		"data":   docs,
		"meta":   query.NewMeta(page, limit, total),
	})
}

// Export sends the catalog as an XLSX workbook.
func (h *ProductHandler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.Products.Export(c.Request().Context(), &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *ProductHandler) Reindex(c echo.Context) error {
	n, err := h.Products.Reindex(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"indexed": n})
}
