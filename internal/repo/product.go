package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := r.DB.WithContext(ctx).
		Preload("Categories").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		Where("slug = ?", slug).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// InCategory limits product queries to one category.
func InCategory(categoryID uuid.UUID) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Table("product_categories").
				Select("product_id").
				Where("category_id = ?", categoryID))
	}
}

// SetProductCategories replaces the product's categories with the given ids.
// Unknown ids are ignored.
func (r *GormRepo) SetProductCategories(ctx context.Context, p *models.Product, ids []uuid.UUID) error {
	var cats []models.Category
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error; err != nil {
			return err
		}
	}
	if err := r.DB.WithContext(ctx).Model(p).Association("Categories").Replace(cats); err != nil {
		return err
	}
	p.Categories = cats
	return nil
}

// SearchProducts matches the phrase against title and description.
func (r *GormRepo) SearchProducts(ctx context.Context, phrase string, offset, limit int) (int64, []models.Product, error) {
	like := "%" + strings.ToLower(phrase) + "%"
	q := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0)
	if err := q.Session(&gorm.Session{}).Order("ratings_average DESC").Order("title ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// AllProducts loads the full catalog with categories, ordered by title.
func (r *GormRepo) AllProducts(ctx context.Context) ([]models.Product, error) {
	items := make([]models.Product, 0)
	if err := r.DB.WithContext(ctx).Preload("Categories").Order("title ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
