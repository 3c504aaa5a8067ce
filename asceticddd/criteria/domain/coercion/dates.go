package coercion

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ptime "github.com/yaa110/go-persian-calendar"
)

var ErrUnparsableDate = errors.New("unparsable date")

type CalendarStrategy interface {
	Name() string
	Parse(text string, loc *time.Location) (time.Time, bool)
}

// DateParser tries its calendar strategies in order and returns the first
// successful parse.
type DateParser struct {
	strategies []CalendarStrategy
	loc        *time.Location
}

func NewDateParser(loc *time.Location, strategies ...CalendarStrategy) *DateParser {
	if loc == nil {
		loc = time.UTC
	}
	if len(strategies) == 0 {
		strategies = []CalendarStrategy{Gregorian{}, SolarHijri{}}
	}
	return &DateParser{strategies: strategies, loc: loc}
}

func (p *DateParser) Parse(text string) (time.Time, error) {
	normalized := strings.TrimSpace(NormalizeDigits(text))
	if normalized == "" {
		return time.Time{}, errors.Wrap(ErrUnparsableDate, "empty text")
	}
	for _, s := range p.strategies {
		if t, ok := s.Parse(normalized, p.loc); ok {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrUnparsableDate, "\"%s\"", text)
}

func (p *DateParser) Location() *time.Location {
	return p.loc
}

func (p *DateParser) Strategies() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// StrategyByName maps configuration names to strategies.
func StrategyByName(name string) (CalendarStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gregorian":
		return Gregorian{}, nil
	case "solar-hijri", "solarhijri", "persian", "jalali":
		return SolarHijri{}, nil
	}
	return nil, errors.Errorf("unknown calendar \"%s\"", name)
}

// Gregorian accepts RFC 3339 timestamps unconditionally and a handful of
// plain layouts when the year looks like a Christian era year.
type Gregorian struct{}

const minGregorianYear = 1700

var (
	rfc3339Layouts = []string{time.RFC3339Nano, time.RFC3339}
	plainLayouts   = []string{
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/01/02",
		"2006/01/02 15:04",
		"2006/01/02 15:04:05",
		"01/02/2006",
		"01/02/2006 15:04:05",
	}
)

func (Gregorian) Name() string { return "gregorian" }

func (Gregorian) Parse(text string, loc *time.Location) (time.Time, bool) {
	for _, layout := range rfc3339Layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	for _, layout := range plainLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err == nil && t.Year() >= minGregorianYear {
			return t, true
		}
	}
	return time.Time{}, false
}

// SolarHijri parses yyyy/mm/dd[ HH:MM[:SS]] in the Persian calendar.
type SolarHijri struct{}

var solarHijriPattern = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

func (SolarHijri) Name() string { return "solar-hijri" }

func (SolarHijri) Parse(text string, loc *time.Location) (time.Time, bool) {
	m := solarHijriPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	parts := make([]int, 6)
	for i, s := range m[1:] {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		parts[i] = n
	}
	year, month, day, hour, minute, sec := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	if year >= minGregorianYear || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	pt := ptime.Date(year, ptime.Month(month), day, hour, minute, sec, 0, loc)
	if pt.Year() != year || int(pt.Month()) != month || pt.Day() != day {
		return time.Time{}, false
	}
	return pt.Time(), true
}
