package criteria

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/selector"
	"github.com/pkg/errors"
)

// Predicate is a compiled condition. It holds no mutable state and may be
// called from any number of goroutines.
type Predicate[T any] func(T) bool

// CompileObserver is told about every compilation, e.g. to export metrics.
// An observer that also implements coercion.FallbackObserver receives the
// coercion fallbacks of the compilations it observes.
type CompileObserver interface {
	ObserveCompile(entity string, nodes int, elapsed time.Duration, err error)
}

type options struct {
	logger   *slog.Logger
	coercer  *coercion.Coercer
	registry *operators.OperatorRegistry
	observer CompileObserver
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithCoercer(c *coercion.Coercer) Option {
	return func(o *options) {
		o.coercer = c
	}
}

func WithRegistry(r *operators.OperatorRegistry) Option {
	return func(o *options) {
		o.registry = r
	}
}

func WithObserver(obs CompileObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}

var defaultRegistry = operators.NewDefaultRegistry()

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = defaultRegistry
	}
	if o.coercer == nil {
		o.coercer = coercion.Default().With(coercion.WithLogger(o.logger))
	}
	if fo, ok := o.observer.(coercion.FallbackObserver); ok {
		o.coercer = o.coercer.With(coercion.WithObserver(fo))
	}
	return o
}

// Compile turns c into a predicate over T.
func Compile[T any](c *Criteria[T], opts ...Option) (Predicate[T], error) {
	if c == nil {
		return nil, errors.New("nil criteria")
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.coercer != nil {
		opts = append([]Option{WithCoercer(c.coercer)}, opts...)
	}
	test, err := compileCondition(c.entity, c.condition, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return func(entity T) bool {
		return test(reflect.ValueOf(entity))
	}, nil
}

// CompileType compiles cond for a type known only at run time. The
// predicate accepts values of t or pointers to them.
func CompileType(t reflect.Type, cond *Condition, opts ...Option) (func(any) bool, error) {
	if t == nil {
		return nil, errors.New("nil entity type")
	}
	test, err := compileCondition(t, cond, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return func(entity any) bool {
		return test(reflect.ValueOf(entity))
	}, nil
}

func compileCondition(entity reflect.Type, cond *Condition, o options) (test, error) {
	if cond == nil || cond.Tree == nil {
		return nil, errors.New("condition has no tree")
	}
	started := time.Now()
	c := &compiler{
		entity:  entity,
		options: o,
		visited: map[NodeID]struct{}{cond.Tree.id: {}},
	}
	result, err := c.compile(cond.Tree)
	elapsed := time.Since(started)

	if o.observer != nil {
		o.observer.ObserveCompile(TypeName(entity), c.nodes, elapsed, err)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s %s", TypeName(entity), cond.ID)
	}
	o.logger.Debug("criteria compiled",
		slog.String("entity", TypeName(entity)),
		slog.String("condition", cond.ID),
		slog.Int("nodes", c.nodes),
		slog.Duration("elapsed", elapsed),
	)
	return result, nil
}

type test func(reflect.Value) bool

// compiler is a single-use Visitor. visited holds the node ids already
// compiled in this pass, so a subtree linked twice contributes once and a
// cycle terminates.
type compiler struct {
	options
	entity  reflect.Type
	visited map[NodeID]struct{}
	current test
	nodes   int
}

func (c *compiler) compile(n *ConditionNode) (test, error) {
	if err := n.Accept(c); err != nil {
		return nil, err
	}
	own := c.current
	c.nodes++

	var parts []test
	for _, child := range n.children {
		if child == nil {
			continue
		}
		if _, ok := c.visited[child.id]; ok {
			continue
		}
		c.visited[child.id] = struct{}{}
		part, err := c.compile(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return fold(own, n.connective, parts), nil
}

func (c *compiler) VisitBase(n *ConditionNode) error {
	value := n.operand.BaseValue()
	c.current = func(reflect.Value) bool {
		return value
	}
	return nil
}

func (c *compiler) VisitLeaf(n *ConditionNode) error {
	p, err := selector.Resolve(c.entity, n.selector)
	if err != nil {
		return errors.Wrapf(err, "node %s", n.id)
	}
	t, err := c.leaf(p, n.operator, n.operand)
	if err != nil {
		return errors.Wrapf(err, "node %s %s %s", n.id, n.selector, n.operator)
	}
	c.current = t
	return nil
}

// fold combines a node's own test with its children using the node's
// connective, short-circuiting left to right.
func fold(own test, connective Connective, parts []test) test {
	if len(parts) == 0 || connective == NoConnective {
		return own
	}
	all := append([]test{own}, parts...)
	if connective == Or {
		return func(v reflect.Value) bool {
			for _, t := range all {
				if t(v) {
					return true
				}
			}
			return false
		}
	}
	return func(v reflect.Value) bool {
		for _, t := range all {
			if !t(v) {
				return false
			}
		}
		return true
	}
}
