package coercion

import (
	"encoding"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrCoercion = errors.New("value cannot be coerced")

// FallbackObserver is told every time a value degrades to its type's
// fallback (minimum number, false) instead of failing.
type FallbackObserver interface {
	ObserveFallback(target reflect.Type)
}

type Coercer struct {
	dates    *DateParser
	logger   *slog.Logger
	observer FallbackObserver
}

type Option func(*Coercer)

func WithDateParser(p *DateParser) Option {
	return func(c *Coercer) {
		c.dates = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coercer) {
		c.logger = l
	}
}

func WithObserver(o FallbackObserver) Option {
	return func(c *Coercer) {
		c.observer = o
	}
}

func New(opts ...Option) *Coercer {
	c := &Coercer{}
	for _, opt := range opts {
		opt(c)
	}
	if c.dates == nil {
		c.dates = NewDateParser(time.UTC)
	}
	return c
}

var defaultCoercer = New()

func Default() *Coercer {
	return defaultCoercer
}

// With returns a copy of c with opts applied.
func (c *Coercer) With(opts ...Option) *Coercer {
	cp := *c
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (c *Coercer) Dates() *DateParser {
	return c.dates
}

func (c *Coercer) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

var (
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Coerce converts raw into a value of exactly target.
//
// Numbers that do not parse become the minimum value of the target type and
// booleans that do not parse become false. Both are reported as fallbacks,
// not errors. Dates fail with ErrUnparsableDate, everything else that cannot
// be converted fails with ErrCoercion.
func (c *Coercer) Coerce(target reflect.Type, raw any) (any, error) {
	if target == nil {
		return nil, errors.Wrap(ErrCoercion, "no target type")
	}
	raw = deref(raw)
	if raw != nil && reflect.TypeOf(raw) == target {
		return raw, nil
	}
	if raw == nil && nullable(target) {
		return reflect.Zero(target).Interface(), nil
	}

	if target.Kind() == reflect.Pointer {
		elem := target.Elem()
		if elem.Kind() == reflect.Bool && strings.TrimSpace(textOf(raw)) == "" {
			return reflect.Zero(target).Interface(), nil
		}
		v, err := c.Coerce(elem, raw)
		if err != nil {
			return nil, err
		}
		p := reflect.New(elem)
		p.Elem().Set(reflect.ValueOf(v))
		return p.Interface(), nil
	}

	v, err := c.coerceValue(target, raw)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (c *Coercer) coerceValue(target reflect.Type, raw any) (reflect.Value, error) {
	text := textOf(raw)
	out := reflect.New(target).Elem()

	switch {
	case target == timeType:
		t, err := c.dates.Parse(text)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Set(reflect.ValueOf(t))
		return out, nil
	case target == durationType:
		s := strings.TrimSpace(NormalizeDigits(text))
		if d, err := time.ParseDuration(s); err == nil {
			out.SetInt(int64(d))
			return out, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out.SetInt(n)
			return out, nil
		}
		out.SetInt(math.MinInt64)
		return c.fallback(target, text, out), nil
	case reflect.PointerTo(target).Implements(textUnmarshalerType):
		u := reflect.New(target)
		if err := u.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return reflect.Value{}, errors.Wrapf(ErrCoercion, "\"%s\" to %s: %v", text, target, err)
		}
		return u.Elem(), nil
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(NormalizeDigits(text)), 10, target.Bits())
		if err != nil {
			out.SetInt(minInt(target.Bits()))
			return c.fallback(target, text, out), nil
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(strings.TrimSpace(NormalizeDigits(text)), 10, target.Bits())
		if err != nil {
			out.SetUint(0)
			return c.fallback(target, text, out), nil
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(NormalizeDigits(text)), target.Bits())
		if err != nil {
			out.SetFloat(minFloat(target.Bits()))
			return c.fallback(target, text, out), nil
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Bool:
		b, ok := parseBool(NormalizeDigits(text))
		if !ok {
			out.SetBool(false)
			return c.fallback(target, text, out), nil
		}
		out.SetBool(b)
		return out, nil
	case reflect.String:
		out.SetString(text)
		return out, nil
	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 {
			if s, ok := raw.(string); ok {
				out.SetBytes([]byte(s))
				return out, nil
			}
			break
		}
		if s, ok := raw.(string); ok {
			return c.DecodeCollection(target.Elem(), s)
		}
		if items, ok := raw.([]any); ok {
			return c.coerceItems(target.Elem(), items)
		}
	}

	if raw != nil {
		rv := reflect.ValueOf(raw)
		if rv.Type().ConvertibleTo(target) {
			return rv.Convert(target), nil
		}
	}
	return reflect.Value{}, errors.Wrapf(ErrCoercion, "%T to %s", raw, target)
}

func (c *Coercer) fallback(target reflect.Type, text string, v reflect.Value) reflect.Value {
	c.log().Warn("coercion fallback",
		slog.String("type", target.String()),
		slog.String("text", text),
		slog.Any("value", v.Interface()),
	)
	if c.observer != nil {
		c.observer.ObserveFallback(target)
	}
	return v
}

func parseBool(text string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	switch s {
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// MinValue returns the fallback a failed numeric parse yields for t, and
// false when t is not numeric.
func MinValue(t reflect.Type) (any, bool) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(minInt(t.Bits()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
	case reflect.Float32, reflect.Float64:
		v.SetFloat(minFloat(t.Bits()))
	default:
		return nil, false
	}
	return v.Interface(), true
}

func minInt(bits int) int64 {
	return -1 << (bits - 1)
}

func minFloat(bits int) float64 {
	if bits == 32 {
		return -math.MaxFloat32
	}
	return -math.MaxFloat64
}

func textOf(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case encoding.TextMarshaler:
		if b, err := v.MarshalText(); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(raw)
}

func deref(raw any) any {
	rv := reflect.ValueOf(raw)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}
