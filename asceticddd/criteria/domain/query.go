package criteria

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/selector"
	"github.com/pkg/errors"
)

const MaxPageSize = 1000

type SortItem struct {
	Direction SortDirection `json:"direction" validate:"omitempty,oneof=1 2"`
	Selector  string        `json:"selector" validate:"selectorpath"`
}

type Pagination struct {
	Page int `json:"page" validate:"min=1"`
	Size int `json:"size" validate:"min=1,max=1000"`
}

// Bounds returns the slice bounds of the page within n items. Pages below
// the first read as the first; pages past the end, however large, are empty.
func (p *Pagination) Bounds(n int) (int, int) {
	if p == nil {
		return 0, n
	}
	if p.Size < 1 {
		return 0, 0
	}
	page := max(p.Page, 1)
	if page-1 > n/p.Size {
		return n, n
	}
	start := min((page-1)*p.Size, n)
	end := start + min(p.Size, n-start)
	return start, end
}

// Offset is the number of items before the page, saturating at math.MaxInt.
func (p *Pagination) Offset() int {
	if p == nil || p.Size < 1 || p.Page <= 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// QueryDocument is what a client sends: a condition plus the ordering,
// paging and navigation hints the data source applies around it.
type QueryDocument struct {
	Condition  *Condition  `json:"condition" validate:"required"`
	Sort       []SortItem  `json:"sort,omitempty" validate:"dive"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Includes   []string    `json:"includes,omitempty" validate:"dive,selectorpath"`
}

var queryValidate *validator.Validate

func init() {
	queryValidate = validator.New()
	_ = queryValidate.RegisterValidation("selectorpath", validateSelectorPath)
}

// validateSelectorPath checks the dotted shape only; resolution needs the
// entity type.
func validateSelectorPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if strings.TrimSpace(path) == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if strings.TrimSpace(seg) == "" {
			return false
		}
	}
	return true
}

func (d *QueryDocument) Validate() error {
	return queryValidate.Struct(d)
}

func DecodeQueryDocument(data []byte) (*QueryDocument, error) {
	doc := &QueryDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "decode query")
	}
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate query")
	}
	return doc, nil
}

func DecodeQueryDocumentYAML(data []byte) (*QueryDocument, error) {
	raw, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}
	return DecodeQueryDocument(raw)
}

// Query carries a criteria and the envelope fields that travel with it.
// Only the criteria takes part in the compiled predicate.
type Query[T any] struct {
	Criteria   *Criteria[T]
	Sort       []SortItem
	Pagination *Pagination
	Includes   []string
}

func NewQuery[T any](c *Criteria[T]) *Query[T] {
	return &Query[T]{Criteria: c}
}

func (q *Query[T]) OrderBy(path string, direction SortDirection) *Query[T] {
	q.Sort = append(q.Sort, SortItem{Direction: direction, Selector: path})
	return q
}

func (q *Query[T]) Page(page, size int) *Query[T] {
	q.Pagination = &Pagination{Page: page, Size: size}
	return q
}

func (q *Query[T]) Include(paths ...string) *Query[T] {
	q.Includes = append(q.Includes, paths...)
	return q
}

func (q *Query[T]) Document() *QueryDocument {
	doc := &QueryDocument{
		Sort:       q.Sort,
		Pagination: q.Pagination,
		Includes:   q.Includes,
	}
	if q.Criteria != nil {
		doc.Condition = q.Criteria.Condition()
	}
	return doc
}

// Validate checks the envelope and resolves every selector it names
// against T.
func (q *Query[T]) Validate() error {
	if err := q.Document().Validate(); err != nil {
		return err
	}
	var result error
	if err := q.Criteria.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	entity := reflect.TypeFor[T]()
	for _, s := range q.Sort {
		if _, err := selector.Resolve(entity, s.Selector); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "sort"))
		}
	}
	for _, inc := range q.Includes {
		if _, err := selector.Resolve(entity, inc); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "include"))
		}
	}
	return result
}

func QueryFromDocument[T any](doc *QueryDocument, opts ...Option) (*Query[T], error) {
	if doc == nil {
		return nil, errors.New("nil query document")
	}
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate query")
	}
	c, err := FromCondition[T](doc.Condition, opts...)
	if err != nil {
		return nil, err
	}
	q := &Query[T]{
		Criteria:   c,
		Sort:       doc.Sort,
		Pagination: doc.Pagination,
		Includes:   doc.Includes,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Ordering compares two entities of the same type. Nulls sort first.
type Ordering func(a, b reflect.Value) int

// CompileSort builds the ordering for items over entity. An empty list
// yields nil.
func CompileSort(entity reflect.Type, items []SortItem, opts ...Option) (Ordering, error) {
	if len(items) == 0 {
		return nil, nil
	}
	o := newOptions(opts)
	type key struct {
		path *selector.Path
		less operators.Comparison
		desc bool
	}
	keys := make([]key, 0, len(items))
	for _, item := range items {
		p, err := selector.Resolve(entity, item.Selector)
		if err != nil {
			return nil, errors.Wrap(err, "sort")
		}
		base := elemType(p.Type)
		var less operators.Comparison
		if base.Kind() == reflect.String {
			less = ordinal(LessThan)
		} else {
			less, err = o.registry.Resolve(operators.OperatorLt, base)
			if err != nil {
				return nil, errors.Wrapf(ErrUnsupportedOperator, "sort by %s: %v", item.Selector, err)
			}
		}
		keys = append(keys, key{path: p, less: less, desc: item.Direction == Descending})
	}

	return func(a, b reflect.Value) int {
		for _, k := range keys {
			n := compareBy(k.path, k.less, a, b)
			if k.desc {
				n = -n
			}
			if n != 0 {
				return n
			}
		}
		return 0
	}, nil
}

func compareBy(p *selector.Path, less operators.Comparison, a, b reflect.Value) int {
	av, aok := read(p, a)
	bv, bok := read(p, b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	l, r := av.Interface(), bv.Interface()
	if lt, err := less(l, r); err == nil && lt {
		return -1
	}
	if gt, err := less(r, l); err == nil && gt {
		return 1
	}
	return 0
}
