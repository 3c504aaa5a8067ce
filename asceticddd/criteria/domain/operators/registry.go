package operators

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("operator is not supported")

type Comparison func(left, right any) (bool, error)

type comparisonKey struct {
	typ reflect.Type
	op  Operator
}

// OperatorRegistry maps (type, operator) pairs to comparison functions.
// Lookups are resolved once per leaf at compile time, so the registry
// must not be mutated after it has been handed to a compiler.
type OperatorRegistry struct {
	comparisons map[comparisonKey]Comparison
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		comparisons: make(map[comparisonKey]Comparison),
	}
}

func RegisterComparison[T any](reg *OperatorRegistry, op Operator, fn func(a, b T) bool) {
	key := comparisonKey{
		typ: reflect.TypeFor[T](),
		op:  op,
	}
	reg.comparisons[key] = func(left, right any) (bool, error) {
		l, ok := left.(T)
		if !ok {
			return false, fmt.Errorf("left operand %T is not %s", left, key.typ)
		}
		r, ok := right.(T)
		if !ok {
			return false, fmt.Errorf("right operand %T is not %s", right, key.typ)
		}
		return fn(l, r), nil
	}
}

// Resolve returns the comparison for values of type t.
//
// Lookup order: exact registration, Value Object interfaces, registration of
// the underlying basic kind (so `type Status string` compares like string),
// and finally reflect.DeepEqual for equality operators.
func (r *OperatorRegistry) Resolve(op Operator, t reflect.Type) (Comparison, error) {
	if t == nil {
		return nil, errors.Wrapf(ErrUnsupported, "operator \"%s\" for untyped nil", op)
	}
	if fn, ok := r.comparisons[comparisonKey{typ: t, op: op}]; ok {
		return fn, nil
	}
	if fn := interfaceFallback(op, t); fn != nil {
		return fn, nil
	}
	if base := basicType(t); base != nil && base != t {
		if fn, ok := r.comparisons[comparisonKey{typ: base, op: op}]; ok {
			return converting(fn, base), nil
		}
	}
	switch op {
	case OperatorEq:
		return func(left, right any) (bool, error) {
			return reflect.DeepEqual(left, right), nil
		}, nil
	case OperatorNe:
		return func(left, right any) (bool, error) {
			return !reflect.DeepEqual(left, right), nil
		}, nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "operator \"%s\" for %s", op, t)
}

// Supports reports whether op can be applied to values of type t.
func (r *OperatorRegistry) Supports(op Operator, t reflect.Type) bool {
	if op == OperatorEq || op == OperatorNe {
		return t != nil
	}
	_, err := r.Resolve(op, t)
	return err == nil
}

// Compare applies op to two values of the same dynamic type.
// A nil operand never satisfies a comparison.
func (r *OperatorRegistry) Compare(left any, op Operator, right any) (bool, error) {
	if left == nil || right == nil {
		return false, nil
	}
	fn, err := r.Resolve(op, reflect.TypeOf(left))
	if err != nil {
		return false, err
	}
	return fn(left, right)
}

func converting(fn Comparison, base reflect.Type) Comparison {
	return func(left, right any) (bool, error) {
		lv := reflect.ValueOf(left)
		rv := reflect.ValueOf(right)
		if !lv.CanConvert(base) || !rv.CanConvert(base) {
			return false, fmt.Errorf("operands %T and %T are not convertible to %s", left, right, base)
		}
		return fn(lv.Convert(base).Interface(), rv.Convert(base).Interface())
	}
}

func basicType(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.TypeFor[int64]()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return reflect.TypeFor[uint64]()
	case reflect.Float32, reflect.Float64:
		return reflect.TypeFor[float64]()
	case reflect.String:
		return reflect.TypeFor[string]()
	case reflect.Bool:
		return reflect.TypeFor[bool]()
	}
	return nil
}

var (
	equalOperandType            = reflect.TypeFor[EqualOperand]()
	greaterThanOperandType      = reflect.TypeFor[GreaterThanOperand]()
	greaterThanEqualOperandType = reflect.TypeFor[GreaterThanEqualOperand]()
	lessThanOperandType         = reflect.TypeFor[LessThanOperand]()
	lessThanEqualOperandType    = reflect.TypeFor[LessThanEqualOperand]()
)

func interfaceFallback(op Operator, t reflect.Type) Comparison {
	switch op {
	case OperatorEq, OperatorNe:
		if !t.Implements(equalOperandType) {
			return nil
		}
		negate := op == OperatorNe
		return func(left, right any) (bool, error) {
			l, ok := left.(EqualOperand)
			if !ok {
				return false, fmt.Errorf("left operand %T does not implement EqualOperand", left)
			}
			r, ok := right.(EqualOperand)
			if !ok {
				return false, fmt.Errorf("right operand %T does not implement EqualOperand", right)
			}
			return l.Equal(r) != negate, nil
		}
	case OperatorGt:
		if !t.Implements(greaterThanOperandType) {
			return nil
		}
		return func(left, right any) (bool, error) {
			l, ok := left.(GreaterThanOperand)
			if !ok {
				return false, fmt.Errorf("left operand %T does not implement GreaterThanOperand", left)
			}
			r, ok := right.(GreaterThanOperand)
			if !ok {
				return false, fmt.Errorf("right operand %T does not implement GreaterThanOperand", right)
			}
			return l.GreaterThan(r), nil
		}
	case OperatorGte:
		if !t.Implements(greaterThanEqualOperandType) {
			return nil
		}
		return func(left, right any) (bool, error) {
			l, ok := left.(GreaterThanEqualOperand)
			if !ok {
				return false, fmt.Errorf("left operand %T does not implement GreaterThanEqualOperand", left)
			}
			r, ok := right.(GreaterThanEqualOperand)
			if !ok {
				return false, fmt.Errorf("right operand %T does not implement GreaterThanEqualOperand", right)
			}
			return l.GreaterThanEqual(r), nil
		}
	case OperatorLt:
		if !t.Implements(lessThanOperandType) {
			return nil
		}
		return func(left, right any) (bool, error) {
			l, ok := left.(LessThanOperand)
			if !ok {
				return false, fmt.Errorf("left operand %T does not implement LessThanOperand", left)
			}
			r, ok := right.(LessThanOperand)
			if !ok {
				return false, fmt.Errorf("right operand %T does not implement LessThanOperand", right)
			}
			return l.LessThan(r), nil
		}
	case OperatorLte:
		if !t.Implements(lessThanEqualOperandType) {
			return nil
		}
		return func(left, right any) (bool, error) {
			l, ok := left.(LessThanEqualOperand)
			if !ok {
				return false, fmt.Errorf("left operand %T does not implement LessThanEqualOperand", left)
			}
			r, ok := right.(LessThanEqualOperand)
			if !ok {
				return false, fmt.Errorf("right operand %T does not implement LessThanEqualOperand", right)
			}
			return l.LessThanEqual(r), nil
		}
	}
	return nil
}
