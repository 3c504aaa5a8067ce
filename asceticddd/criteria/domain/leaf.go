package criteria

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/selector"
	"github.com/pkg/errors"
)

var stringType = reflect.TypeFor[string]()

func never(reflect.Value) bool {
	return false
}

func (c *compiler) leaf(p *selector.Path, op Operator, operand Operand) (test, error) {
	if positive, ok := op.Negated(); ok {
		t, err := c.leaf(p, positive, operand)
		if err != nil {
			return nil, err
		}
		return func(v reflect.Value) bool {
			return !t(v)
		}, nil
	}

	switch op {
	case IsNull:
		return func(v reflect.Value) bool {
			_, ok := p.Get(v)
			return !ok
		}, nil
	case Equal:
		return c.equal(p, operand)
	case Like, StartsWith, EndsWith:
		return c.pattern(p, op, operand)
	case Contain:
		return c.contain(p, operand)
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return c.ordering(p, op, operand)
	}
	return nil, errors.Wrapf(ErrUnsupportedOperator, "%s", op)
}

func (c *compiler) equal(p *selector.Path, operand Operand) (test, error) {
	if operand.IsNull() {
		if !selector.Nullable(p.Type) {
			return never, nil
		}
		return func(v reflect.Value) bool {
			_, ok := p.Get(v)
			return !ok
		}, nil
	}
	base := elemType(p.Type)
	right, err := operand.Decode(base, c.coercer)
	if err != nil {
		return nil, err
	}
	eq, err := c.registry.Resolve(operators.OperatorEq, base)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "%v", err)
	}
	return func(v reflect.Value) bool {
		left, ok := read(p, v)
		if !ok {
			return false
		}
		res, err := eq(left.Interface(), right)
		return err == nil && res
	}, nil
}

func (c *compiler) pattern(p *selector.Path, op Operator, operand Operand) (test, error) {
	base := elemType(p.Type)
	render, err := renderer(base, op)
	if err != nil {
		return nil, err
	}
	if operand.IsNull() {
		return never, nil
	}
	right, err := c.patternText(base, render, operand)
	if err != nil {
		return nil, err
	}

	var match func(s, sub string) bool
	switch op {
	case StartsWith:
		match = strings.HasPrefix
	case EndsWith:
		match = strings.HasSuffix
	default:
		match = strings.Contains
	}
	return func(v reflect.Value) bool {
		left, ok := read(p, v)
		if !ok {
			return false
		}
		return match(render(left), right)
	}, nil
}

// patternText is the operand as text. Numeric operands are rendered like
// the field, so integers beyond float64 precision keep every digit.
func (c *compiler) patternText(base reflect.Type, render func(reflect.Value) string, operand Operand) (string, error) {
	if live, ok := operand.Live(); ok {
		if s, ok := live.(string); ok {
			return s, nil
		}
		if v := reflect.Indirect(reflect.ValueOf(live)); v.IsValid() && v.Kind() == base.Kind() {
			return render(v), nil
		}
	}
	if text, ok := integerText(base, operand.Text()); ok {
		return text, nil
	}
	v, err := operand.Decode(stringType, c.coercer)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// integerText reads a JSON integer literal for an integer field without
// going through float64.
func integerText(base reflect.Type, text string) (string, bool) {
	text = strings.TrimSpace(text)
	switch base.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, err := strconv.ParseUint(text, 10, 64); err == nil {
			return strconv.FormatUint(n, 10), true
		}
	}
	return "", false
}

// renderer returns the text a pattern operator is matched against. Numbers
// are rendered in invariant decimal form, trimmed on the side the operator
// looks at.
func renderer(t reflect.Type, op Operator) (func(reflect.Value) string, error) {
	trim := strings.TrimSpace
	switch op {
	case StartsWith:
		trim = func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }
	case EndsWith:
		trim = func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }
	}

	switch t.Kind() {
	case reflect.String:
		return func(v reflect.Value) string { return v.String() }, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v reflect.Value) string { return trim(strconv.FormatInt(v.Int(), 10)) }, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(v reflect.Value) string { return trim(strconv.FormatUint(v.Uint(), 10)) }, nil
	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		return func(v reflect.Value) string { return trim(strconv.FormatFloat(v.Float(), 'f', -1, bits)) }, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedOperator, "%s on %s", op, t)
}

func (c *compiler) contain(p *selector.Path, operand Operand) (test, error) {
	base := elemType(p.Type)
	items, err := operand.DecodeCollection(base, c.coercer)
	if err != nil {
		return nil, err
	}
	eq, err := c.registry.Resolve(operators.OperatorEq, base)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "%v", err)
	}
	values := make([]any, 0, items.Len())
	for i := range items.Len() {
		item := items.Index(i)
		for item.Kind() == reflect.Pointer && !item.IsNil() {
			item = item.Elem()
		}
		if selector.IsNull(item) {
			continue
		}
		values = append(values, item.Interface())
	}
	return func(v reflect.Value) bool {
		left, ok := read(p, v)
		if !ok {
			return false
		}
		l := left.Interface()
		for _, r := range values {
			if res, err := eq(l, r); err == nil && res {
				return true
			}
		}
		return false
	}, nil
}

var orderingOperators = map[Operator]operators.Operator{
	GreaterThan:        operators.OperatorGt,
	GreaterThanOrEqual: operators.OperatorGte,
	LessThan:           operators.OperatorLt,
	LessThanOrEqual:    operators.OperatorLte,
}

func (c *compiler) ordering(p *selector.Path, op Operator, operand Operand) (test, error) {
	base := elemType(p.Type)
	var cmp operators.Comparison
	if base.Kind() == reflect.String {
		cmp = ordinal(op)
	} else {
		var err error
		cmp, err = c.registry.Resolve(orderingOperators[op], base)
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedOperator, "%v", err)
		}
	}
	if operand.IsNull() {
		return never, nil
	}
	right, err := operand.Decode(base, c.coercer)
	if err != nil {
		return nil, err
	}
	return func(v reflect.Value) bool {
		left, ok := read(p, v)
		if !ok {
			return false
		}
		res, err := cmp(left.Interface(), right)
		return err == nil && res
	}, nil
}

// ordinal compares text by bytes, whatever the named string type is.
func ordinal(op Operator) operators.Comparison {
	return func(left, right any) (bool, error) {
		n := strings.Compare(reflect.ValueOf(left).String(), reflect.ValueOf(right).String())
		switch op {
		case GreaterThan:
			return n > 0, nil
		case GreaterThanOrEqual:
			return n >= 0, nil
		case LessThan:
			return n < 0, nil
		default:
			return n <= 0, nil
		}
	}
}

// read returns the non-null value at p with pointers removed.
func read(p *selector.Path, v reflect.Value) (reflect.Value, bool) {
	fv, ok := p.Get(v)
	if !ok {
		return fv, false
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return fv, false
		}
		fv = fv.Elem()
	}
	return fv, true
}

func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
