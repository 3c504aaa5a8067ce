package selector

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var ErrInvalidSelector = errors.New("invalid selector")

type step struct {
	name     string
	index    []int
	method   int
	isMethod bool
	viaIface bool
}

// Path is a resolved chain of member accesses starting at Root.
// Type is the declared type of the last member, pointers included,
// so a *time.Time terminal stays nullable.
type Path struct {
	Root     reflect.Type
	Selector string
	Segments []string
	Type     reflect.Type
	steps    []step
}

type cacheKey struct {
	root reflect.Type
	path string
}

var cache sync.Map

// Resolve resolves a dotted path against root. A segment containing "("
// names a zero-argument, single-result method and must read exactly "Name()".
func Resolve(root reflect.Type, path string) (*Path, error) {
	key := cacheKey{root: root, path: path}
	if p, ok := cache.Load(key); ok {
		return p.(*Path), nil
	}
	p, err := resolve(root, path)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(key, p)
	return actual.(*Path), nil
}

func MustResolve(root reflect.Type, path string) *Path {
	p, err := Resolve(root, path)
	if err != nil {
		panic(err)
	}
	return p
}

func resolve(root reflect.Type, path string) (*Path, error) {
	if root == nil {
		return nil, errors.Wrapf(ErrInvalidSelector, "\"%s\" has no root type", path)
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.Wrapf(ErrInvalidSelector, "empty path on %s", root)
	}
	parts := strings.Split(path, ".")
	p := &Path{
		Root:     root,
		Selector: path,
		Segments: make([]string, 0, len(parts)),
		steps:    make([]step, 0, len(parts)),
	}
	cur := root
	for _, part := range parts {
		seg := strings.TrimSpace(part)
		if seg == "" {
			return nil, errors.Wrapf(ErrInvalidSelector, "empty segment in \"%s\"", path)
		}
		for cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
		}
		var (
			s   step
			err error
		)
		if strings.Contains(seg, "(") {
			s, cur, err = resolveMethod(cur, seg)
		} else {
			s, cur, err = resolveField(cur, seg)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "\"%s\"", path)
		}
		p.Segments = append(p.Segments, seg)
		p.steps = append(p.steps, s)
	}
	p.Type = cur
	return p, nil
}

func resolveField(t reflect.Type, name string) (step, reflect.Type, error) {
	if t.Kind() != reflect.Struct {
		return step{}, nil, errors.Wrapf(ErrInvalidSelector, "%s has no member %s", t, name)
	}
	f, ok := t.FieldByName(name)
	if !ok || !f.IsExported() {
		return step{}, nil, errors.Wrapf(ErrInvalidSelector, "%s has no member %s", t, name)
	}
	return step{name: name, index: f.Index}, f.Type, nil
}

func resolveMethod(t reflect.Type, call string) (step, reflect.Type, error) {
	name, ok := strings.CutSuffix(call, "()")
	if !ok || name == "" || strings.ContainsAny(name, "()") {
		return step{}, nil, errors.Wrapf(ErrInvalidSelector, "malformed call %s", call)
	}
	if t.Kind() == reflect.Interface {
		m, ok := t.MethodByName(name)
		if !ok || m.Type.NumIn() != 0 || m.Type.NumOut() != 1 {
			return step{}, nil, errors.Wrapf(ErrInvalidSelector, "%s has no method %s", t, call)
		}
		return step{name: name, method: m.Index, isMethod: true, viaIface: true}, m.Type.Out(0), nil
	}
	// The pointer method set is a superset of the value one.
	m, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
		return step{}, nil, errors.Wrapf(ErrInvalidSelector, "%s has no method %s", t, call)
	}
	return step{name: name, method: m.Index, isMethod: true}, m.Type.Out(0), nil
}

// Get reads the path from v. The second result is false when the value is
// null: a nil pointer or interface was met on the way, or the terminal value
// is a nil pointer, interface, slice or map.
func (p *Path) Get(v reflect.Value) (reflect.Value, bool) {
	for _, s := range p.steps {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if !v.IsValid() {
			return reflect.Value{}, false
		}
		switch {
		case s.isMethod && s.viaIface:
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Method(s.method).Call(nil)[0]
		case s.isMethod:
			var recv reflect.Value
			if v.CanAddr() {
				recv = v.Addr()
			} else {
				recv = reflect.New(v.Type())
				recv.Elem().Set(v)
			}
			v = recv.Method(s.method).Call(nil)[0]
		default:
			f, err := v.FieldByIndexErr(s.index)
			if err != nil {
				return reflect.Value{}, false
			}
			v = f
		}
	}
	if IsNull(v) {
		return v, false
	}
	return v, true
}

// GetFrom reads the path from an entity value or pointer.
func (p *Path) GetFrom(entity any) (any, bool) {
	v, ok := p.Get(reflect.ValueOf(entity))
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func (p *Path) String() string {
	return p.Selector
}

// Nullable reports whether values of t can be null.
func Nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

func IsNull(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	}
	return false
}
