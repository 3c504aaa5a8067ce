package criteria

import (
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/selector"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSelector     = selector.ErrInvalidSelector
	ErrCoercion            = coercion.ErrCoercion
	ErrUnparsableDate      = coercion.ErrUnparsableDate
	ErrTypeMismatch        = errors.New("entity type mismatch")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrCyclicTree          = errors.New("cyclic condition tree")
)
