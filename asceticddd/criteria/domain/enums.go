package criteria

import (
	"encoding"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Operator int

const (
	None Operator = iota
	Equal
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	Like
	NotLike
	StartsWith
	NotStartsWith
	EndsWith
	NotEndsWith
	Contain
	NotContain
	IsNull
	IsNotNull
)

var operatorNames = []string{
	"None",
	"Equal",
	"NotEqual",
	"GreaterThan",
	"GreaterThanOrEqual",
	"LessThan",
	"LessThanOrEqual",
	"Like",
	"NotLike",
	"StartsWith",
	"NotStartsWith",
	"EndsWith",
	"NotEndsWith",
	"Contain",
	"NotContain",
	"IsNull",
	"IsNotNull",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return "Operator(" + strconv.Itoa(int(o)) + ")"
	}
	return operatorNames[o]
}

func (o Operator) Valid() bool {
	return o >= None && o <= IsNotNull
}

// Negated reports whether o is the Not form of another operator and returns
// that positive operator.
func (o Operator) Negated() (Operator, bool) {
	switch o {
	case NotEqual:
		return Equal, true
	case NotLike:
		return Like, true
	case NotStartsWith:
		return StartsWith, true
	case NotEndsWith:
		return EndsWith, true
	case NotContain:
		return Contain, true
	case IsNotNull:
		return IsNull, true
	}
	return o, false
}

func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, errors.Errorf("invalid operator %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *Operator) UnmarshalText(text []byte) error {
	i, err := parseEnum(string(text), operatorNames, 0)
	if err != nil {
		return errors.Wrap(err, "operator")
	}
	*o = Operator(i)
	return nil
}

func (o *Operator) UnmarshalJSON(data []byte) error {
	return unmarshalEnumJSON(data, o)
}

// ParseOperator accepts a name (case-insensitive) or an integer code.
func ParseOperator(s string) (Operator, error) {
	var o Operator
	err := o.UnmarshalText([]byte(s))
	return o, err
}

type Connective int

const (
	And Connective = iota + 1
	Or
	NoConnective
)

var connectiveNames = []string{"And", "Or", "None"}

func (c Connective) String() string {
	if c < And || c > NoConnective {
		return "Connective(" + strconv.Itoa(int(c)) + ")"
	}
	return connectiveNames[c-And]
}

func (c Connective) Valid() bool {
	return c >= And && c <= NoConnective
}

func (c Connective) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.Errorf("invalid connective %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Connective) UnmarshalText(text []byte) error {
	i, err := parseEnum(string(text), connectiveNames, int(And))
	if err != nil {
		return errors.Wrap(err, "connective")
	}
	*c = Connective(i)
	return nil
}

func (c *Connective) UnmarshalJSON(data []byte) error {
	return unmarshalEnumJSON(data, c)
}

type BaseCase int

const (
	FalseCase BaseCase = iota
	TrueCase
)

func (b BaseCase) Bool() bool {
	return b == TrueCase
}

func (b BaseCase) String() string {
	if b == TrueCase {
		return "True"
	}
	return "False"
}

type SortDirection int

const (
	Ascending SortDirection = iota + 1
	Descending
)

var sortDirectionNames = []string{"Ascending", "Descending"}

func (d SortDirection) String() string {
	if d < Ascending || d > Descending {
		return "SortDirection(" + strconv.Itoa(int(d)) + ")"
	}
	return sortDirectionNames[d-Ascending]
}

func (d SortDirection) MarshalText() ([]byte, error) {
	if d < Ascending || d > Descending {
		return nil, errors.Errorf("invalid sort direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *SortDirection) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	switch s {
	case "asc":
		*d = Ascending
		return nil
	case "desc":
		*d = Descending
		return nil
	}
	i, err := parseEnum(s, sortDirectionNames, int(Ascending))
	if err != nil {
		return errors.Wrap(err, "sort direction")
	}
	*d = SortDirection(i)
	return nil
}

func (d *SortDirection) UnmarshalJSON(data []byte) error {
	return unmarshalEnumJSON(data, d)
}

// unmarshalEnumJSON accepts both "Name" and bare integer codes.
func unmarshalEnumJSON(data []byte, u encoding.TextUnmarshaler) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	return u.UnmarshalText([]byte(s))
}

// parseEnum resolves a case-insensitive name or an integer code against
// names, whose first entry has the code first.
func parseEnum(s string, names []string, first int) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < first || n >= first+len(names) {
			return 0, errors.Errorf("code %d out of range", n)
		}
		return n, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return first + i, nil
		}
	}
	return 0, errors.Errorf("unknown name \"%s\"", s)
}
