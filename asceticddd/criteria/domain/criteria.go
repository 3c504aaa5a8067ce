package criteria

import (
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/selector"
	"github.com/pkg/errors"
)

// Tree is anything that owns a condition built for one entity type.
type Tree interface {
	Condition() *Condition
	EntityType() reflect.Type
	Err() error
}

// Criteria builds a condition tree for entity type T.
//
// A Criteria is owned by one goroutine while it is being built. Failed calls
// leave the tree untouched and record their error, see Err.
type Criteria[T any] struct {
	condition *Condition
	entity    reflect.Type
	coercer   *coercion.Coercer
	err       error
}

// True seeds an intersection: the root is always true and appended
// conditions narrow it.
func True[T any](opts ...Option) *Criteria[T] {
	return newCriteria[T](TrueCase, And, opts)
}

// False seeds a union: the root is always false and appended conditions
// widen it.
func False[T any](opts ...Option) *Criteria[T] {
	return newCriteria[T](FalseCase, Or, opts)
}

func newCriteria[T any](base BaseCase, connective Connective, opts []Option) *Criteria[T] {
	entity := reflect.TypeFor[T]()
	return &Criteria[T]{
		condition: NewCondition(TypeName(entity), NewBaseNode(base, connective)),
		entity:    entity,
		coercer:   newOptions(opts).coercer,
	}
}

// FromCondition binds a decoded condition to T. Selectors are not checked
// until the criteria is compiled or validated.
func FromCondition[T any](cond *Condition, opts ...Option) (*Criteria[T], error) {
	if cond == nil || cond.Tree == nil {
		return nil, errors.New("condition has no tree")
	}
	entity := reflect.TypeFor[T]()
	return &Criteria[T]{
		condition: cond,
		entity:    entity,
		coercer:   newOptions(opts).coercer,
	}, nil
}

func (c *Criteria[T]) Condition() *Condition {
	return c.condition
}

func (c *Criteria[T]) EntityType() reflect.Type {
	return c.entity
}

// Err returns every error recorded while building, or nil.
func (c *Criteria[T]) Err() error {
	return c.err
}

func (c *Criteria[T]) And(path string, operator Operator, value any) *Criteria[T] {
	return c.add(And, path, operator, value)
}

func (c *Criteria[T]) Or(path string, operator Operator, value any) *Criteria[T] {
	return c.add(Or, path, operator, value)
}

// AndBy is And with a typed accessor returning a field address:
//
//	c.AndBy(func(p *Product) any { return &p.Price }, criteria.GreaterThan, 10)
func (c *Criteria[T]) AndBy(accessor func(*T) any, operator Operator, value any) *Criteria[T] {
	return c.addBy(And, accessor, operator, value)
}

func (c *Criteria[T]) OrBy(accessor func(*T) any, operator Operator, value any) *Criteria[T] {
	return c.addBy(Or, accessor, operator, value)
}

// AndCriteria links the root of other under this root. The link is a
// reference: appending the same criteria twice shares its subtree.
func (c *Criteria[T]) AndCriteria(other Tree) *Criteria[T] {
	return c.link(And, other)
}

func (c *Criteria[T]) OrCriteria(other Tree) *Criteria[T] {
	return c.link(Or, other)
}

func (c *Criteria[T]) Compile(opts ...Option) (Predicate[T], error) {
	return Compile(c, opts...)
}

// Validate resolves every selector of the tree against T.
func (c *Criteria[T]) Validate() error {
	var result error
	_ = c.condition.Tree.Walk(func(n *ConditionNode) error {
		if n.IsBase() {
			return nil
		}
		if !n.operator.Valid() {
			result = multierror.Append(result, errors.Wrapf(ErrUnsupportedOperator, "node %s: %d", n.id, int(n.operator)))
			return nil
		}
		if _, err := selector.Resolve(c.entity, n.selector); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "node %s", n.id))
		}
		return nil
	})
	return result
}

func (c *Criteria[T]) addBy(connective Connective, accessor func(*T) any, operator Operator, value any) *Criteria[T] {
	path, err := selector.FromAccessor(accessor)
	if err != nil {
		c.record(err)
		return c
	}
	return c.add(connective, path, operator, value)
}

func (c *Criteria[T]) add(connective Connective, path string, operator Operator, value any) *Criteria[T] {
	node, err := c.leaf(connective, path, operator, value)
	if err != nil {
		c.record(errors.Wrapf(err, "%s %s", connective, strings.TrimSpace(path)))
		return c
	}
	c.condition.Tree.appendChild(node, connective)
	return c
}

func (c *Criteria[T]) leaf(connective Connective, path string, operator Operator, value any) (*ConditionNode, error) {
	if operator == None || !operator.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "operator %s", operator)
	}
	p, err := selector.Resolve(c.entity, path)
	if err != nil {
		return nil, err
	}

	var operand Operand
	switch operator {
	case IsNull, IsNotNull:
		operand, err = NewOperand(nil)
	case Contain, NotContain:
		// Membership operands are collections and are never coerced as scalars.
		if text, ok := value.(string); ok {
			operand = DecodedOperand(CollectionOperand, text)
		} else {
			operand, err = NewOperand(value)
		}
	default:
		if !isNil(value) && reflect.TypeOf(value) != p.Type {
			value, err = c.coercer.Coerce(p.Type, value)
			if err != nil {
				return nil, err
			}
		}
		operand, err = NewOperand(value)
	}
	if err != nil {
		return nil, err
	}
	return NewLeafNode(path, operator, operand, connective), nil
}

func (c *Criteria[T]) link(connective Connective, other Tree) *Criteria[T] {
	if other == nil || isNil(other) {
		return c
	}
	if other.EntityType() != c.entity {
		c.record(errors.Wrapf(ErrTypeMismatch, "%s %s into %s", connective, other.EntityType(), c.entity))
		return c
	}
	if err := other.Err(); err != nil {
		c.record(err)
	}
	cond := other.Condition()
	if cond == nil || cond.Tree == nil {
		return c
	}
	c.condition.Tree.appendChild(cond.Tree, connective)
	return c
}

func (c *Criteria[T]) record(err error) {
	c.err = multierror.Append(c.err, err)
}

// TypeName is the name a condition carries for diagnostics.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
