// Package seed loads YAML fixtures into the database.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/hash"
)

type Category struct {
	Title     string `yaml:"title"`
	Thumbnail string `yaml:"thumbnail"`
}

// Product refers to its categories by title.
type Product struct {
	Title       string   `yaml:"title"`
	SKU         string   `yaml:"sku"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Discount    string   `yaml:"price_discount"`
	Stock       int      `yaml:"stock"`
	Images      []string `yaml:"images"`
	Categories  []string `yaml:"categories"`
}

type User struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Role      string `yaml:"role"`
	Password  string `yaml:"password"`
}

// Review refers to the product by title and the author by email.
type Review struct {
	Product string `yaml:"product"`
	User    string `yaml:"user"`
	Rating  int    `yaml:"rating"`
	Review  string `yaml:"review"`
}

type Fixtures struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
	Users      []User     `yaml:"users"`
	Reviews    []Review   `yaml:"reviews"`
}

// Merge appends the entries of other.
func (f *Fixtures) Merge(other *Fixtures) {
	f.Categories = append(f.Categories, other.Categories...)
	f.Products = append(f.Products, other.Products...)
	f.Users = append(f.Users, other.Users...)
	f.Reviews = append(f.Reviews, other.Reviews...)
}

func Decode(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// LoadFiles decodes and merges the given YAML files.
func LoadFiles(paths ...string) (*Fixtures, error) {
	all := &Fixtures{}
	for _, p := range paths {
		fh, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		f, err := Decode(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all.Merge(f)
	}
	return all, nil
}

// Stats counts the imported rows.
type Stats struct {
	Categories int
	Products   int
	Users      int
	Reviews    int
}

// Import stores every fixture in one transaction and refreshes the rating
// aggregates of reviewed products. Users are stored activated.
func Import(ctx context.Context, db *gorm.DB, f *Fixtures) (Stats, error) {
	var st Stats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats := make(map[string]*models.Category, len(f.Categories))
		for _, c := range f.Categories {
			rec := &models.Category{Title: c.Title, Thumbnail: c.Thumbnail}
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("category %q: %w", c.Title, err)
			}
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("category %q: %w", c.Title, err)
			}
			cats[c.Title] = rec
			st.Categories++
		}

		products := make(map[string]*models.Product, len(f.Products))
		for _, p := range f.Products {
			rec, err := newProduct(p)
			if err != nil {
				return err
			}
			if err := tx.Omit("Categories", "Reviews").Create(rec).Error; err != nil {
				return fmt.Errorf("product %q: %w", p.Title, err)
			}
			linked := make([]models.Category, 0, len(p.Categories))
			for _, title := range p.Categories {
				c, ok := cats[title]
				if !ok {
					return fmt.Errorf("product %q: unknown category %q", p.Title, title)
				}
				linked = append(linked, *c)
			}
			if len(linked) > 0 {
				if err := tx.Model(rec).Association("Categories").Append(linked); err != nil {
					return fmt.Errorf("product %q: %w", p.Title, err)
				}
			}
			products[p.Title] = rec
			st.Products++
		}

		users := make(map[string]*models.User, len(f.Users))
		for _, u := range f.Users {
			pw, err := hash.HashPassword(u.Password)
			if err != nil {
				return err
			}
			rec := &models.User{
				FirstName:        u.FirstName,
				LastName:         u.LastName,
				Email:            u.Email,
				Phone:            u.Phone,
				Role:             u.Role,
				PasswordHash:     pw,
				AccountActivated: true,
				Active:           true,
			}
			if rec.Role == "" {
				rec.Role = models.RoleUser
			}
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("user %q: %w", u.Email, err)
			}
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("user %q: %w", u.Email, err)
			}
			users[rec.Email] = rec
			st.Users++
		}

		r := &repo.GormRepo{DB: tx}
		reviewed := map[*models.Product]bool{}
		for _, rv := range f.Reviews {
			p, ok := products[rv.Product]
			if !ok {
				return fmt.Errorf("review: unknown product %q", rv.Product)
			}
			u, ok := users[rv.User]
			if !ok {
				return fmt.Errorf("review: unknown user %q", rv.User)
			}
			rec := &models.Review{ProductID: p.ID, UserID: u.ID, Rating: rv.Rating, Review: rv.Review}
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("review of %q: %w", rv.Product, err)
			}
			if err := tx.Omit("User").Create(rec).Error; err != nil {
				return fmt.Errorf("review of %q: %w", rv.Product, err)
			}
			reviewed[p] = true
			st.Reviews++
		}
		for p := range reviewed {
			if err := r.RecalculateRatings(ctx, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	return st, err
}

func newProduct(p Product) (*models.Product, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, fmt.Errorf("product %q: invalid price %q", p.Title, p.Price)
	}
	rec := &models.Product{
		Title:       p.Title,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       price,
		Stock:       p.Stock,
		Images:      p.Images,
	}
	if p.Discount != "" {
		d, err := decimal.NewFromString(p.Discount)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid discount %q", p.Title, p.Discount)
		}
		rec.PriceDiscount = &d
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("product %q: %w", p.Title, err)
	}
	return rec, nil
}

// Delete removes every row the service owns, dependents first.
func Delete(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_categories").Error; err != nil {
			return err
		}
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{
			&models.OrderItem{}, &models.Order{},
			&models.CartItem{}, &models.Cart{},
			&models.Payment{}, &models.Review{},
			&models.Product{}, &models.Category{}, &models.User{},
		} {
			if err := all.Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
