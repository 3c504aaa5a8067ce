package memory

import (
	"context"
	"reflect"
	"slices"

	"github.com/pkg/errors"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
)

// Page is one page of a filtered result. Total counts every match, not
// only the returned items.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Slice is an enumerable source over entities held in memory.
type Slice[T any] struct {
	items []T
	opts  []criteria.Option
}

func NewSlice[T any](items []T, opts ...criteria.Option) *Slice[T] {
	return &Slice[T]{items: items, opts: opts}
}

func (s *Slice[T]) Len() int {
	return len(s.items)
}

func (s *Slice[T]) EntityType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Where returns the entities c accepts, in source order.
func (s *Slice[T]) Where(c *criteria.Criteria[T]) ([]T, error) {
	p, err := c.Compile(s.opts...)
	if err != nil {
		return nil, err
	}
	return Filter(s.items, p), nil
}

func (s *Slice[T]) Find(q *criteria.Query[T]) (Page[T], error) {
	return Apply(s.items, q, s.opts...)
}

// FindDocument runs a decoded query document against the source.
func (s *Slice[T]) FindDocument(ctx context.Context, doc *criteria.QueryDocument) (Page[any], error) {
	if err := ctx.Err(); err != nil {
		return Page[any]{}, err
	}
	q, err := criteria.QueryFromDocument[T](doc, s.opts...)
	if err != nil {
		return Page[any]{}, err
	}
	page, err := s.Find(q)
	if err != nil {
		return Page[any]{}, err
	}
	return Erase(page), nil
}

func Filter[T any](items []T, p criteria.Predicate[T]) []T {
	out := make([]T, 0)
	for _, item := range items {
		if p(item) {
			out = append(out, item)
		}
	}
	return out
}

// Apply filters items by the query's criteria, then sorts and pages the
// matches. Sorting is stable, so equal keys keep source order.
func Apply[T any](items []T, q *criteria.Query[T], opts ...criteria.Option) (Page[T], error) {
	if q == nil || q.Criteria == nil {
		return Page[T]{}, errors.New("query has no criteria")
	}
	p, err := q.Criteria.Compile(opts...)
	if err != nil {
		return Page[T]{}, err
	}
	ordering, err := criteria.CompileSort(reflect.TypeFor[T](), q.Sort, opts...)
	if err != nil {
		return Page[T]{}, err
	}

	matches := Filter(items, p)
	if ordering != nil {
		slices.SortStableFunc(matches, func(a, b T) int {
			return ordering(reflect.ValueOf(a), reflect.ValueOf(b))
		})
	}
	start, end := q.Pagination.Bounds(len(matches))
	return Page[T]{Items: matches[start:end], Total: len(matches)}, nil
}

func Erase[T any](page Page[T]) Page[any] {
	items := make([]any, len(page.Items))
	for i, item := range page.Items {
		items[i] = item
	}
	return Page[any]{Items: items, Total: page.Total}
}
