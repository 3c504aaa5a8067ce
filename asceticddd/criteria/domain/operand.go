package criteria

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
	"github.com/pkg/errors"
)

type OperandKind int

const (
	NullOperand OperandKind = iota
	TextOperand
	NumberOperand
	BoolOperand
	DateOperand
	CollectionOperand
	OtherOperand
)

var operandKindNames = []string{"Null", "Text", "Number", "Bool", "Date", "Collection", "Other"}

func (k OperandKind) String() string {
	if k < NullOperand || k > OtherOperand {
		return "OperandKind(" + strconv.Itoa(int(k)) + ")"
	}
	return operandKindNames[k]
}

func (k OperandKind) MarshalText() ([]byte, error) {
	if k < NullOperand || k > OtherOperand {
		return nil, errors.Errorf("invalid operand kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *OperandKind) UnmarshalText(text []byte) error {
	i, err := parseEnum(string(text), operandKindNames, 0)
	if err != nil {
		return errors.Wrap(err, "operand kind")
	}
	*k = OperandKind(i)
	return nil
}

func (k *OperandKind) UnmarshalJSON(data []byte) error {
	return unmarshalEnumJSON(data, k)
}

// Operand is the right-hand side of a leaf. Built operands carry the live
// value and its JSON text; decoded operands carry the text only, which is
// then authoritative.
type Operand struct {
	kind    OperandKind
	live    any
	hasLive bool
	text    string
}

const nullText = "null"

func NewOperand(value any) (Operand, error) {
	if isNil(value) {
		return Operand{kind: NullOperand, hasLive: true, text: nullText}, nil
	}
	text, err := json.Marshal(value)
	if err != nil {
		return Operand{}, errors.Wrapf(ErrCoercion, "operand %T: %v", value, err)
	}
	return Operand{
		kind:    kindOf(reflect.TypeOf(value)),
		live:    value,
		hasLive: true,
		text:    string(text),
	}, nil
}

// DecodedOperand restores an operand from its wire form.
func DecodedOperand(kind OperandKind, text string) Operand {
	if text == "" {
		text = nullText
	}
	return Operand{kind: kind, text: text}
}

func (o Operand) Kind() OperandKind {
	return o.kind
}

func (o Operand) Text() string {
	return o.text
}

func (o Operand) Live() (any, bool) {
	return o.live, o.hasLive
}

func (o Operand) IsNull() bool {
	if o.hasLive {
		return isNil(o.live)
	}
	return o.kind == NullOperand || bytes.Equal(bytes.TrimSpace([]byte(o.text)), []byte(nullText))
}

// Decode yields a value of exactly target: the live value when it already has
// that type, otherwise the text decoded into target.
func (o Operand) Decode(target reflect.Type, c *coercion.Coercer) (any, error) {
	if o.IsNull() {
		return nil, nil
	}
	if o.hasLive && reflect.TypeOf(o.live) == target {
		return o.live, nil
	}
	return c.DecodeJSON(target, []byte(o.text))
}

// DecodeCollection reads the operand as a collection of elem.
func (o Operand) DecodeCollection(elem reflect.Type, c *coercion.Coercer) (reflect.Value, error) {
	if o.hasLive && !isNil(o.live) {
		lv := reflect.ValueOf(o.live)
		if (lv.Kind() == reflect.Slice || lv.Kind() == reflect.Array) && lv.Type().Elem() == elem {
			return lv, nil
		}
	}
	if o.IsNull() {
		return reflect.MakeSlice(reflect.SliceOf(elem), 0, 0), nil
	}
	return c.DecodeCollection(elem, o.text)
}

// BaseValue reads a base-case operand.
func (o Operand) BaseValue() bool {
	if o.hasLive {
		if b, ok := o.live.(BaseCase); ok {
			return b.Bool()
		}
	}
	switch string(bytes.TrimSpace([]byte(o.text))) {
	case "1", "true", `"True"`, `"true"`:
		return true
	}
	return false
}

var timeType = reflect.TypeFor[time.Time]()

func kindOf(t reflect.Type) OperandKind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return DateOperand
	}
	switch t.Kind() {
	case reflect.String:
		return TextOperand
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return NumberOperand
	case reflect.Bool:
		return BoolOperand
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return TextOperand
		}
		return CollectionOperand
	}
	return OtherOperand
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}
