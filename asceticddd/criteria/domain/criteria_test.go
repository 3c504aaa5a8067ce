package criteria

import (
	"math"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseCases(t *testing.T) {
	tc := True[Customer]()
	root := tc.Condition().Tree
	assert.Equal(t, None, root.Operator())
	assert.Equal(t, And, root.Connective())
	assert.Empty(t, root.Selector())
	assert.True(t, root.IsBase())
	assert.Equal(t, "Customer", tc.Condition().EntityTypeName)
	assert.NotEmpty(t, tc.Condition().ID)

	fc := False[Customer]()
	assert.Equal(t, Or, fc.Condition().Tree.Connective())
	assert.NotEqual(t, tc.Condition().Tree.ID(), fc.Condition().Tree.ID())

	for _, c := range customers(20) {
		pt, err := tc.Compile()
		require.NoError(t, err)
		assert.True(t, pt(c))

		pf, err := fc.Compile()
		require.NoError(t, err)
		assert.False(t, pf(c))
	}
}

func TestAppendSetsRootConnective(t *testing.T) {
	c := True[Customer]().
		And("Age", GreaterThan, 30).
		Or("Active", Equal, true)

	root := c.Condition().Tree
	require.Len(t, root.Children(), 2)
	assert.Equal(t, Or, root.Connective())

	c.And("Name", Equal, "x")
	assert.Equal(t, And, root.Connective())
	assert.Len(t, root.Children(), 3)

	leaf := root.Children()[0]
	assert.Equal(t, "Age", leaf.Selector())
	assert.Equal(t, GreaterThan, leaf.Operator())
	assert.NotEmpty(t, leaf.ID())
}

func TestAppendCoercesToFieldType(t *testing.T) {
	c := True[Customer]().
		And("Age", Equal, "42").
		And("ID", Equal, 7).
		And("BirthDate", GreaterThan, "1399/01/01").
		And("Verified", Equal, "true")
	require.NoError(t, c.Err())

	children := c.Condition().Tree.Children()

	live, ok := children[0].Operand().Live()
	require.True(t, ok)
	assert.Equal(t, 42, live)
	assert.Equal(t, "42", children[0].Operand().Text())
	assert.Equal(t, NumberOperand, children[0].Operand().Kind())

	live, _ = children[1].Operand().Live()
	assert.Equal(t, uint64(7), live)

	live, _ = children[2].Operand().Live()
	require.IsType(t, time.Time{}, live)
	assert.Equal(t, 2020, live.(time.Time).Year())
	assert.Equal(t, DateOperand, children[2].Operand().Kind())

	live, _ = children[3].Operand().Live()
	require.IsType(t, (*bool)(nil), live)
	assert.True(t, *live.(*bool))
}

func TestAppendFallbackIsNotAnError(t *testing.T) {
	c := True[Customer]().
		And("ID", Equal, "abc").
		And("Age", Equal, "abc").
		And("Active", Equal, "abc")
	require.NoError(t, c.Err())

	children := c.Condition().Tree.Children()
	live, _ := children[0].Operand().Live()
	assert.Equal(t, uint64(0), live)
	live, _ = children[1].Operand().Live()
	assert.Equal(t, math.MinInt, live)
	live, _ = children[2].Operand().Live()
	assert.Equal(t, false, live)
}

func TestAppendEmptyTextToNullableBool(t *testing.T) {
	c := True[Customer]().And("Verified", Equal, "")
	require.NoError(t, c.Err())

	operand := c.Condition().Tree.Children()[0].Operand()
	assert.True(t, operand.IsNull())
	assert.Equal(t, NullOperand, operand.Kind())
}

func TestAppendSkipsCoercionForMembership(t *testing.T) {
	c := True[Customer]().
		And("Age", Contain, []int{1, 2}).
		And("Name", Contain, `["a","b"]`)
	require.NoError(t, c.Err())

	children := c.Condition().Tree.Children()
	live, _ := children[0].Operand().Live()
	assert.Equal(t, []int{1, 2}, live)
	assert.Equal(t, CollectionOperand, children[0].Operand().Kind())

	_, hasLive := children[1].Operand().Live()
	assert.False(t, hasLive)
	assert.Equal(t, `["a","b"]`, children[1].Operand().Text())
}

func TestAppendInvalidSelector(t *testing.T) {
	c := True[Customer]().
		And("Age", GreaterThan, 30).
		And("Nope", Equal, 1).
		Or("Address..City", Equal, "x").
		And("", Equal, 1)

	assert.Len(t, c.Condition().Tree.Children(), 1)
	assert.Equal(t, And, c.Condition().Tree.Connective())

	err := c.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSelector))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)

	_, err = c.Compile()
	assert.True(t, errors.Is(err, ErrInvalidSelector))
}

func TestAppendUnparsableDate(t *testing.T) {
	c := True[Customer]().And("BirthDate", Equal, "someday")
	assert.True(t, errors.Is(c.Err(), ErrUnparsableDate))
	assert.Empty(t, c.Condition().Tree.Children())
}

func TestAppendCoercionError(t *testing.T) {
	c := True[Customer]().And("Address", Equal, "somewhere")
	assert.True(t, errors.Is(c.Err(), ErrCoercion))
	assert.Empty(t, c.Condition().Tree.Children())
}

func TestAppendInvalidOperator(t *testing.T) {
	c := True[Customer]().And("Age", None, 1).And("Age", Operator(99), 1)
	assert.True(t, errors.Is(c.Err(), ErrUnsupportedOperator))
	assert.Empty(t, c.Condition().Tree.Children())
}

func TestAppendByAccessor(t *testing.T) {
	c := False[Customer]().
		OrBy(func(c *Customer) any { return &c.Address.City }, Equal, "Tehran").
		AndBy(func(c *Customer) any { return &c.Age }, GreaterThanOrEqual, "18")
	require.NoError(t, c.Err())

	children := c.Condition().Tree.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "Address.City", children[0].Selector())
	assert.Equal(t, "Age", children[1].Selector())
	assert.Equal(t, And, c.Condition().Tree.Connective())

	c.AndBy(func(c *Customer) any { return c.Age }, Equal, 1)
	assert.True(t, errors.Is(c.Err(), ErrInvalidSelector))

	c = True[Customer]().AndBy(nil, Equal, 1)
	assert.True(t, errors.Is(c.Err(), ErrInvalidSelector))
}

func TestAppendCriteriaLinksByReference(t *testing.T) {
	sub := True[Customer]().And("Age", GreaterThan, 10)
	c := False[Customer]().OrCriteria(sub).AndCriteria(sub)
	require.NoError(t, c.Err())

	children := c.Condition().Tree.Children()
	require.Len(t, children, 2)
	assert.Same(t, sub.Condition().Tree, children[0])
	assert.Same(t, children[0], children[1])
	assert.Equal(t, And, c.Condition().Tree.Connective())

	// Later changes to sub are seen through the link.
	sub.And("Active", Equal, true)
	assert.Len(t, children[0].Children(), 2)
}

func TestAppendCriteriaNilIsNoop(t *testing.T) {
	var nilCriteria *Criteria[Customer]
	c := True[Customer]().AndCriteria(nil).OrCriteria(nilCriteria)
	require.NoError(t, c.Err())
	assert.Empty(t, c.Condition().Tree.Children())
	assert.Equal(t, And, c.Condition().Tree.Connective())
}

func TestAppendCriteriaTypeMismatch(t *testing.T) {
	other := True[Account]().And("ID", Equal, 1)
	c := True[Customer]().And("Age", Equal, 1).AndCriteria(other)

	assert.True(t, errors.Is(c.Err(), ErrTypeMismatch))
	assert.Len(t, c.Condition().Tree.Children(), 1)
}

func TestAppendCriteriaCarriesErrors(t *testing.T) {
	broken := True[Customer]().And("Nope", Equal, 1)
	c := True[Customer]().AndCriteria(broken)
	assert.True(t, errors.Is(c.Err(), ErrInvalidSelector))
}

func TestFromCondition(t *testing.T) {
	src := True[Customer]().And("Age", GreaterThan, 30)
	c, err := FromCondition[Customer](src.Condition())
	require.NoError(t, err)
	assert.Same(t, src.Condition(), c.Condition())

	_, err = FromCondition[Customer](nil)
	assert.Error(t, err)
	_, err = FromCondition[Customer](&Condition{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := True[Customer]().And("Age", GreaterThan, 30).And("Address.City", Equal, "x")
	assert.NoError(t, c.Validate())

	broken := RestoreNode("n1", Equal, And, "Missing", DecodedOperand(NumberOperand, "1"), nil)
	root := RestoreNode("root", None, And, "", DecodedOperand(NumberOperand, "1"), []*ConditionNode{
		broken,
		RestoreNode("n2", Equal, And, "Also.Missing", DecodedOperand(NumberOperand, "1"), nil),
		RestoreNode("n3", Operator(42), And, "Age", DecodedOperand(NumberOperand, "1"), nil),
	})
	c, err := FromCondition[Customer](&Condition{ID: "c", Tree: root})
	require.NoError(t, err)

	err = c.Validate()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)
	assert.True(t, errors.Is(err, ErrInvalidSelector))
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))
}

func TestEnumsText(t *testing.T) {
	for op := None; op <= IsNotNull; op++ {
		text, err := op.MarshalText()
		require.NoError(t, err)

		var back Operator
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, op, back)
	}

	op, err := ParseOperator("13")
	require.NoError(t, err)
	assert.Equal(t, Contain, op)

	op, err = ParseOperator("startswith")
	require.NoError(t, err)
	assert.Equal(t, StartsWith, op)

	_, err = ParseOperator("17")
	assert.Error(t, err)
	_, err = Operator(17).MarshalText()
	assert.Error(t, err)

	var conn Connective
	require.NoError(t, conn.UnmarshalText([]byte("3")))
	assert.Equal(t, NoConnective, conn)
	require.NoError(t, conn.UnmarshalText([]byte("or")))
	assert.Equal(t, Or, conn)
	assert.Error(t, conn.UnmarshalText([]byte("0")))

	var dir SortDirection
	require.NoError(t, dir.UnmarshalText([]byte("desc")))
	assert.Equal(t, Descending, dir)
	require.NoError(t, dir.UnmarshalText([]byte("1")))
	assert.Equal(t, Ascending, dir)

	positive, ok := NotStartsWith.Negated()
	assert.True(t, ok)
	assert.Equal(t, StartsWith, positive)
	_, ok = GreaterThan.Negated()
	assert.False(t, ok)
}
