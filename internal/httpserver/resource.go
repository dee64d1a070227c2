package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/query"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// Record is a pointer to an entity embedding models.Base.
type Record[T any] interface {
	*T
	Meta() *models.Base
}

// Resource serves the five CRUD endpoints for one entity. The optional hooks
// customize scoping, preparation and side effects per entity.
type Resource[T any, PT Record[T]] struct {
	Name    string
	Repo    *repo.Repo[T]
	Spec    *query.Spec
	Preload []string

	// Scope narrows every read, update and delete.
	Scope func(c echo.Context) (repo.Scope, error)
	// Prepare runs after binding and before validation. old is nil on create.
	Prepare func(c echo.Context, rec, old PT) error
	// Authorize runs on the loaded record before update and delete.
	Authorize func(c echo.Context, rec PT) error
	// AfterWrite runs after the record was persisted.
	AfterWrite  func(c echo.Context, rec PT, created bool) error
	AfterDelete func(c echo.Context, rec PT) error
}

func validate(rec any) error {
	if v, ok := rec.(models.Validator); ok {
		return v.Validate()
	}
	return nil
}

func chain(scopes ...repo.Scope) repo.Scope {
	var active []repo.Scope
	for _, s := range scopes {
		if s != nil {
			active = append(active, s)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(db *gorm.DB) *gorm.DB {
		for _, s := range active {
			db = s(db)
		}
		return db
	}
}

func (r *Resource[T, PT]) scope(c echo.Context) (repo.Scope, error) {
	if r.Scope == nil {
		return nil, nil
	}
	return r.Scope(c)
}

// Load fetches the record named by the :id parameter.
func (r *Resource[T, PT]) Load(c echo.Context) (PT, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	scope, err := r.scope(c)
	if err != nil {
		return nil, err
	}

	rec, err := r.Repo.Get(c.Request().Context(), id, scope, r.Preload...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No %s found with that ID", r.Name)
	}
	if err != nil {
		return nil, err
	}
	return PT(rec), nil
}

func (r *Resource[T, PT]) Create(c echo.Context) error {
	rec := PT(new(T))
	if err := bindBody(c, rec); err != nil {
		return err
	}
	*rec.Meta() = models.Base{}

	if r.Prepare != nil {
		if err := r.Prepare(c, rec, nil); err != nil {
			return err
		}
	}
	if err := validate(rec); err != nil {
		return err
	}
	if err := r.Repo.Create(c.Request().Context(), (*T)(rec)); err != nil {
		return err
	}
	if r.AfterWrite != nil {
		if err := r.AfterWrite(c, rec, true); err != nil {
			return err
		}
	}
	return success(c, http.StatusCreated, rec)
}

func (r *Resource[T, PT]) List(c echo.Context) error {
	return r.ListWith(c, nil)
}

// ListWith lists the records matching the query string and the extra scope.
func (r *Resource[T, PT]) ListWith(c echo.Context, extra repo.Scope) error {
	f, err := r.Spec.Parse(c.QueryParams())
	if err != nil {
		return err
	}
	scope, err := r.scope(c)
	if err != nil {
		return err
	}

	items, total, err := r.Repo.List(c.Request().Context(), f, chain(scope, extra), r.Preload...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"count":  len(items),
		"data":   items,
		"meta":   query.NewMeta(f.Page, f.Limit, total),
	})
}

func (r *Resource[T, PT]) Get(c echo.Context) error {
	rec, err := r.Load(c)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, rec)
}

// Update merges the body into the stored record. Identity and timestamps
// cannot be changed.
func (r *Resource[T, PT]) Update(c echo.Context) error {
	rec, err := r.Load(c)
	if err != nil {
		return err
	}
	if r.Authorize != nil {
		if err := r.Authorize(c, rec); err != nil {
			return err
		}
	}

	// old is loaded separately so binding cannot write through shared slices.
	old, err := r.Load(c)
	if err != nil {
		return err
	}
	base := *rec.Meta()
	if err := bindBody(c, rec); err != nil {
		return err
	}
	*rec.Meta() = base

	if r.Prepare != nil {
		if err := r.Prepare(c, rec, old); err != nil {
			return err
		}
	}
	if err := validate(rec); err != nil {
		return err
	}
	if err := r.Repo.Save(c.Request().Context(), (*T)(rec)); err != nil {
		return err
	}
	if r.AfterWrite != nil {
		if err := r.AfterWrite(c, rec, false); err != nil {
			return err
		}
	}
	return success(c, http.StatusOK, rec)
}

func (r *Resource[T, PT]) Delete(c echo.Context) error {
	rec, err := r.Load(c)
	if err != nil {
		return err
	}
	if r.Authorize != nil {
		if err := r.Authorize(c, rec); err != nil {
			return err
		}
	}
	if err := r.Repo.Delete(c.Request().Context(), rec.Meta().ID); err != nil {
		return err
	}
	if r.AfterDelete != nil {
		if err := r.AfterDelete(c, rec); err != nil {
			return err
		}
	}
	return c.NoContent(http.StatusNoContent)
}
