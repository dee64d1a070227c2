package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// Indexer is the product search index. *search.Index implements it.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, phrase string, from, size int) (int64, []search.Document, error)
}

type ProductService struct {
	Repo *repo.GormRepo
	// Index is nil when no search cluster is configured.
	Index  Indexer
	Events events.Publisher
}

const exportSheet = "Products"

// Saved links the requested categories and refreshes the search document.
func (s *ProductService) Saved(ctx context.Context, p *models.Product, actorID uuid.UUID, created bool) error {
	if p.CategoryIDs != nil {
		if err := s.Repo.SetProductCategories(ctx, p, p.CategoryIDs); err != nil {
			return fmt.Errorf("set categories: %w", err)
		}
	}
	s.index(ctx, p)

	typ := "product.updated"
	if created {
		typ = "product.created"
	}
	publish(ctx, s.Events, events.TopicProduct, p.ID.String(),
		events.NewEvent(typ, "product", p.ID.String(), actorID.String(), map[string]any{
			"title": p.Title,
			"price": p.Price,
			"stock": p.Stock,
		}))
	return nil
}

func (s *ProductService) Deleted(ctx context.Context, p *models.Product, actorID uuid.UUID) {
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, p.ID); err != nil {
			logging.FromContext(ctx).Warn("search_delete_error", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProduct, p.ID.String(),
		events.NewEvent("product.deleted", "product", p.ID.String(), actorID.String(), nil))
}

func (s *ProductService) index(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}

// Search queries the index and falls back to the database when the index is
// missing or failing.
func (s *ProductService) Search(ctx context.Context, phrase string, page, limit int) (int64, []search.Document, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return 0, nil, apperr.Validation("Please provide a search phrase")
	}
	offset, limit := query.Calculate(page, limit)

	if s.Index != nil {
		total, docs, err := s.Index.Search(ctx, phrase, offset, limit)
		if err == nil {
			return total, docs, nil
		}
		logging.FromContext(ctx).Warn("search_error", "reason", "falling back to database", "error", err)
	}

	total, products, err := s.Repo.SearchProducts(ctx, phrase, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	docs := make([]search.Document, 0, len(products))
	for i := range products {
		docs = append(docs, search.NewDocument(&products[i]))
	}
	return total, docs, nil
}

// Reindex writes every product to the search index.
func (s *ProductService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	products, err := s.Repo.AllProducts(ctx)
	if err != nil {
		return 0, err
	}
	for i := range products {
		if err := s.Index.IndexProduct(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

// Export writes the catalog as an XLSX workbook.
func (s *ProductService) Export(ctx context.Context, w io.Writer) error {
	products, err := s.Repo.AllProducts(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := []any{"ID", "SKU", "Title", "Slug", "Price", "Discount price", "Stock",
		"Available", "Rating", "Reviews", "Categories", "Created at"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range products {
		var discount any
		if p.PriceDiscount != nil {
			discount = p.PriceDiscount.InexactFloat64()
		}
		cats := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			cats = append(cats, c.Title)
		}
		row := []any{
			p.ID.String(), p.SKU, p.Title, p.Slug, p.Price.InexactFloat64(), discount, p.Stock,
			p.Stock > 0, p.RatingsAverage, p.RatingsQuantity, strings.Join(cats, ", "),
			p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
