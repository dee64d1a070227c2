// Package query turns URL query parameters into gorm filters, ordering,
// projection and pagination.
//
//	GET /products?price[gte]=10&sort=-price,title&fields=title,price&page=2&limit=20
package query

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

const DefaultSort = "-created_at"

var (
	reserved   = map[string]bool{"page": true, "limit": true, "sort": true, "fields": true}
	opPattern  = regexp.MustCompile(`^([A-Za-z0-9_]+)\[([a-z]+)\]$`)
	operators  = map[string]bool{"gte": true, "gt": true, "lte": true, "lt": true}
	schemaSync = &sync.Map{}
)

type field struct {
	column string
	typ    reflect.Type
}

// Spec describes the queryable fields of one model, keyed by JSON name.
type Spec struct {
	fields map[string]field
}

// NewSpec derives the queryable fields from the model's gorm schema. Fields
// hidden from JSON and relations are excluded.
func NewSpec(db *gorm.DB, model any) (*Spec, error) {
	s, err := schema.Parse(model, schemaSync, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	out := &Spec{fields: make(map[string]field)}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.DBName
		}
		t := f.FieldType
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		out.fields[name] = field{column: f.DBName, typ: t}
	}
	return out, nil
}

// MustSpec panics on schema errors; use for static models at wiring time.
func MustSpec(db *gorm.DB, model any) *Spec {
	s, err := NewSpec(db, model)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the sorted queryable names.
func (s *Spec) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for k := range s.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Filter struct {
	Column string
	Op     string
	Values []any
}

type Order struct {
	Column string
	Desc   bool
}

// Features is the parsed, validated form of a query string.
type Features struct {
	Filters []Filter
	Orders  []Order
	Columns []string
	Page    int
	Limit   int
	Offset  int
}

// Parse validates values against the spec. It never modifies values.
func (s *Spec) Parse(values url.Values) (*Features, error) {
	f := &Features{}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		raw := values[key]
		name, op := key, "eq"
		if m := opPattern.FindStringSubmatch(key); m != nil {
			name, op = m[1], m[2]
			if !operators[op] {
				return nil, apperr.Validation("Unsupported operator %q on %s", op, name)
			}
		}
		fd, ok := s.fields[name]
		if !ok {
			return nil, apperr.Validation("Cannot filter by unknown field %q", name)
		}
		if fd.typ.Kind() == reflect.Slice && fd.typ.Elem().Kind() != reflect.Uint8 {
			return nil, apperr.Validation("Cannot filter by list field %q", name)
		}

		vals := make([]any, 0, len(raw))
		for _, r := range raw {
			v, err := convert(r, fd.typ)
			if err != nil {
				return nil, apperr.Validation("Invalid value %q for %s", r, name)
			}
			vals = append(vals, v)
		}
		if op != "eq" && len(vals) > 1 {
			vals = vals[len(vals)-1:]
		}
		f.Filters = append(f.Filters, Filter{Column: fd.column, Op: op, Values: vals})
	}

	sortExpr := values.Get("sort")
	if sortExpr == "" {
		sortExpr = DefaultSort
	}
	for _, part := range strings.Split(sortExpr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		fd, ok := s.fields[name]
		if !ok {
			return nil, apperr.Validation("Cannot sort by unknown field %q", name)
		}
		f.Orders = append(f.Orders, Order{Column: fd.column, Desc: desc})
	}

	if fields := values.Get("fields"); fields != "" {
		cols := []string{"id"}
		for _, name := range strings.Split(fields, ",") {
			name = strings.TrimSpace(name)
			if name == "" || name == "id" {
				continue
			}
			fd, ok := s.fields[name]
			if !ok {
				return nil, apperr.Validation("Cannot select unknown field %q", name)
			}
			cols = append(cols, fd.column)
		}
		f.Columns = cols
	}

	f.Page = parseIntDefault(values.Get("page"), 1)
	if f.Page < 1 {
		f.Page = 1
	}
	limit := parseIntDefault(values.Get("limit"), DefaultLimit)
	if f.Page > MaxPage(limit) {
		return nil, apperr.Validation("Page %d is out of range", f.Page)
	}
	f.Offset, f.Limit = Calculate(f.Page, limit)
	return f, nil
}

// Filter applies only the filter conditions, for counting.
func (f *Features) Filter(db *gorm.DB) *gorm.DB {
	for _, flt := range f.Filters {
		col := clause.Column{Name: flt.Column}
		var expr clause.Expression
		switch flt.Op {
		case "gte":
			expr = clause.Gte{Column: col, Value: flt.Values[0]}
		case "gt":
			expr = clause.Gt{Column: col, Value: flt.Values[0]}
		case "lte":
			expr = clause.Lte{Column: col, Value: flt.Values[0]}
		case "lt":
			expr = clause.Lt{Column: col, Value: flt.Values[0]}
		default:
			if len(flt.Values) == 1 {
				expr = clause.Eq{Column: col, Value: flt.Values[0]}
			} else {
				expr = clause.IN{Column: col, Values: flt.Values}
			}
		}
		db = db.Where(expr)
	}
	return db
}

// Apply adds filters, ordering, projection and pagination.
func (f *Features) Apply(db *gorm.DB) *gorm.DB {
	db = f.Filter(db)
	for _, o := range f.Orders {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if len(f.Columns) > 0 {
		db = db.Select(f.Columns)
	}
	return db.Offset(f.Offset).Limit(f.Limit)
}

var (
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

func convert(raw string, t reflect.Type) (any, error) {
	switch t {
	case uuidType:
		return uuid.Parse(raw)
	case decimalType:
		return decimal.NewFromString(raw)
	case timeType:
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC(), nil
		}
		ts, err := time.Parse("2006-01-02", raw)
		return ts.UTC(), err
	}

	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(raw, 10, 64)
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, 64)
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}
