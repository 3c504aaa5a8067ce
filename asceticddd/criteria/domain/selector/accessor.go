package selector

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// FromAccessor turns a typed accessor into a dotted path.
//
// The accessor must return the address of a field reachable from *T through
// value-embedded structs only, e.g.
//
//	func(p *Product) any { return &p.Address.City }
//
// Paths that cross pointers or call methods have to be written as strings.
func FromAccessor[T any](accessor func(*T) any) (path string, err error) {
	root := reflect.TypeFor[T]()
	if accessor == nil {
		return "", errors.Wrapf(ErrInvalidSelector, "nil accessor on %s", root)
	}
	if root.Kind() != reflect.Struct {
		return "", errors.Wrapf(ErrInvalidSelector, "%s is not a struct", root)
	}

	var zero T
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = errors.Wrapf(ErrInvalidSelector, "accessor on %s: %v", root, r)
		}
	}()
	res := accessor(&zero)

	rv := reflect.ValueOf(res)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return "", errors.Wrapf(ErrInvalidSelector, "accessor on %s must return a field address, got %T", root, res)
	}
	base := reflect.ValueOf(&zero).Pointer()
	addr := rv.Pointer()
	if addr < base || addr >= base+root.Size() {
		return "", errors.Wrapf(ErrInvalidSelector, "accessor on %s returned an address outside the entity", root)
	}
	return pathAt(root, addr-base, rv.Type().Elem())
}

func pathAt(t reflect.Type, offset uintptr, target reflect.Type) (string, error) {
	var names []string
	cur := t
	for {
		f, ok := fieldAt(cur, offset, target)
		if !ok {
			return "", errors.Wrapf(ErrInvalidSelector, "no exported %s field at offset %d of %s", target, offset, t)
		}
		names = append(names, f.Name)
		if f.Offset == offset && f.Type == target {
			return strings.Join(names, "."), nil
		}
		if f.Type.Kind() != reflect.Struct {
			return "", errors.Wrapf(ErrInvalidSelector, "%s.%s is not a struct", cur, f.Name)
		}
		offset -= f.Offset
		cur = f.Type
	}
}

// fieldAt picks the field covering offset. An exact type match at the
// offset wins over a struct that starts there.
func fieldAt(t reflect.Type, offset uintptr, target reflect.Type) (reflect.StructField, bool) {
	var container *reflect.StructField
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Offset == offset && f.Type == target {
			return f, true
		}
		if f.Type.Kind() == reflect.Struct && offset >= f.Offset && offset < f.Offset+f.Type.Size() {
			container = &f
		}
	}
	if container == nil {
		return reflect.StructField{}, false
	}
	return *container, true
}

// MustFromAccessor is FromAccessor for package-level selector tables.
func MustFromAccessor[T any](accessor func(*T) any) string {
	p, err := FromAccessor(accessor)
	if err != nil {
		panic(fmt.Sprintf("selector: %v", err))
	}
	return p
}
