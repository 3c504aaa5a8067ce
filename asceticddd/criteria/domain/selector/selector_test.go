package selector

import (
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedAt time.Time
}

type Address struct {
	Street string
	City   string
	Zip    *string
}

type Labeler interface {
	Label() string
}

type badge string

func (b badge) Label() string { return "#" + string(b) }

type Customer struct {
	Audit
	ID       uint64
	Name     string
	Address  Address
	Billing  *Address
	Tag      Labeler
	Nickname *string
	internal int
}

func (c Customer) FullName() string {
	return c.Name + " (" + c.Address.City + ")"
}

func (c *Customer) Normalize() string {
	return strings.ToUpper(strings.TrimSpace(c.Name))
}

func (c Customer) Pair() (string, error) {
	return c.Name, nil
}

func (c Customer) Greet(prefix string) string {
	return prefix + c.Name
}

var customerType = reflect.TypeFor[Customer]()

func TestResolve_Members(t *testing.T) {
	tests := []struct {
		path     string
		expected reflect.Type
	}{
		{"ID", reflect.TypeFor[uint64]()},
		{"Address.City", reflect.TypeFor[string]()},
		{"Billing.Zip", reflect.TypeFor[*string]()},
		{"CreatedAt", reflect.TypeFor[time.Time]()},
		{"Audit.CreatedAt", reflect.TypeFor[time.Time]()},
		{"FullName()", reflect.TypeFor[string]()},
		{"Normalize()", reflect.TypeFor[string]()},
		{"Tag.Label()", reflect.TypeFor[string]()},
		{" Address . City ", reflect.TypeFor[string]()},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := Resolve(customerType, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Type)
			assert.Equal(t, customerType, p.Root)
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	paths := []string{
		"",
		"   ",
		".ID",
		"ID.",
		"Address..City",
		"id",
		"Address.Country",
		"internal",
		"ID.Value",
		"FullName",
		"FullName(",
		"FullName(x)",
		"Pair()",
		"Greet()",
		"Missing()",
		"()",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			_, err := Resolve(customerType, path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSelector), "got %v", err)
		})
	}
}

func TestResolve_IsCached(t *testing.T) {
	p1, err := Resolve(customerType, "Address.City")
	require.NoError(t, err)
	p2, err := Resolve(customerType, "Address.City")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestResolve_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := Resolve(customerType, "Billing.City")
			if err != nil || p.Type.Kind() != reflect.String {
				t.Errorf("unexpected resolve result: %v %v", p, err)
			}
		}()
	}
	wg.Wait()
}

func TestPath_Get(t *testing.T) {
	zip := "1234"
	c := Customer{
		Audit:   Audit{CreatedAt: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		ID:      90,
		Name:    " ada ",
		Address: Address{City: "Tehran"},
		Billing: &Address{City: "Shiraz", Zip: &zip},
		Tag:     badge("vip"),
	}

	get := func(entity any, path string) (any, bool) {
		return MustResolve(customerType, path).GetFrom(entity)
	}

	v, ok := get(c, "ID")
	assert.True(t, ok)
	assert.Equal(t, uint64(90), v)

	v, ok = get(&c, "Billing.City")
	assert.True(t, ok)
	assert.Equal(t, "Shiraz", v)

	v, ok = get(c, "Billing.Zip")
	assert.True(t, ok)
	assert.Equal(t, &zip, v)

	v, ok = get(c, "Normalize()")
	assert.True(t, ok)
	assert.Equal(t, "ADA", v)

	v, ok = get(&c, "FullName()")
	assert.True(t, ok)
	assert.Equal(t, " ada  (Tehran)", v)

	v, ok = get(c, "Tag.Label()")
	assert.True(t, ok)
	assert.Equal(t, "#vip", v)

	v, ok = get(c, "CreatedAt")
	assert.True(t, ok)
	assert.Equal(t, 2020, v.(time.Time).Year())
}

func TestPath_GetNulls(t *testing.T) {
	c := Customer{Name: "x"}

	for _, path := range []string{"Billing.City", "Billing.Zip", "Nickname", "Tag.Label()", "Address.Zip"} {
		t.Run(path, func(t *testing.T) {
			v, ok := MustResolve(customerType, path).GetFrom(c)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}

	var nilCustomer *Customer
	_, ok := MustResolve(customerType, "Name").GetFrom(nilCustomer)
	assert.False(t, ok)
}

func TestNullable(t *testing.T) {
	assert.True(t, Nullable(reflect.TypeFor[*int]()))
	assert.True(t, Nullable(reflect.TypeFor[[]int]()))
	assert.True(t, Nullable(reflect.TypeFor[Labeler]()))
	assert.False(t, Nullable(reflect.TypeFor[int]()))
	assert.False(t, Nullable(reflect.TypeFor[time.Time]()))
}

func TestFromAccessor(t *testing.T) {
	tests := []struct {
		name     string
		accessor func(*Customer) any
		expected string
	}{
		{"top level", func(c *Customer) any { return &c.ID }, "ID"},
		{"first field of nested", func(c *Customer) any { return &c.Address.Street }, "Address.Street"},
		{"nested", func(c *Customer) any { return &c.Address.City }, "Address.City"},
		{"whole struct", func(c *Customer) any { return &c.Address }, "Address"},
		{"embedded", func(c *Customer) any { return &c.Audit.CreatedAt }, "Audit.CreatedAt"},
		{"pointer field itself", func(c *Customer) any { return &c.Billing }, "Billing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FromAccessor(tt.accessor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, path)

			_, err = Resolve(customerType, path)
			assert.NoError(t, err)
		})
	}
}

func TestFromAccessor_Invalid(t *testing.T) {
	outside := 0

	tests := []struct {
		name     string
		accessor func(*Customer) any
	}{
		{"nil accessor", nil},
		{"value instead of address", func(c *Customer) any { return c.ID }},
		{"nil result", func(c *Customer) any { return nil }},
		{"crosses nil pointer", func(c *Customer) any { return &c.Billing.City }},
		{"outside entity", func(c *Customer) any { return &outside }},
		{"unexported", func(c *Customer) any { return &c.internal }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAccessor(tt.accessor)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSelector), "got %v", err)
		})
	}
}
