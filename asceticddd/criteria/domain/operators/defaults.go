package operators

import (
	"cmp"
	"time"
)

func registerOrdered[T cmp.Ordered](reg *OperatorRegistry) {
	RegisterComparison(reg, OperatorEq, func(a, b T) bool { return a == b })
	RegisterComparison(reg, OperatorNe, func(a, b T) bool { return a != b })
	RegisterComparison(reg, OperatorGt, func(a, b T) bool { return a > b })
	RegisterComparison(reg, OperatorGte, func(a, b T) bool { return a >= b })
	RegisterComparison(reg, OperatorLt, func(a, b T) bool { return a < b })
	RegisterComparison(reg, OperatorLte, func(a, b T) bool { return a <= b })
}

// NewDefaultRegistry creates a registry covering the Go basic kinds,
// time.Time and time.Duration. Strings compare by byte order.
func NewDefaultRegistry() *OperatorRegistry {
	reg := NewOperatorRegistry()

	// bool
	RegisterComparison(reg, OperatorEq, func(a, b bool) bool { return a == b })
	RegisterComparison(reg, OperatorNe, func(a, b bool) bool { return a != b })

	registerOrdered[int](reg)
	registerOrdered[int8](reg)
	registerOrdered[int16](reg)
	registerOrdered[int32](reg)
	registerOrdered[int64](reg)
	registerOrdered[uint](reg)
	registerOrdered[uint8](reg)
	registerOrdered[uint16](reg)
	registerOrdered[uint32](reg)
	registerOrdered[uint64](reg)
	registerOrdered[float32](reg)
	registerOrdered[float64](reg)
	registerOrdered[string](reg)

	// time.Duration (interval)
	registerOrdered[time.Duration](reg)

	// time.Time (timestamp)
	RegisterComparison(reg, OperatorEq, func(a, b time.Time) bool { return a.Equal(b) })
	RegisterComparison(reg, OperatorNe, func(a, b time.Time) bool { return !a.Equal(b) })
	RegisterComparison(reg, OperatorGt, func(a, b time.Time) bool { return a.After(b) })
	RegisterComparison(reg, OperatorGte, func(a, b time.Time) bool { return !a.Before(b) })
	RegisterComparison(reg, OperatorLt, func(a, b time.Time) bool { return a.Before(b) })
	RegisterComparison(reg, OperatorLte, func(a, b time.Time) bool { return !a.After(b) })

	return reg
}
