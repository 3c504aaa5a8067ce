package coercion

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	arabicIndicZero         = '٠'
	extendedArabicIndicZero = '۰'
	arabicDecimalSeparator  = '٫'
)

func latinDigit(r rune) rune {
	switch {
	case r >= arabicIndicZero && r <= arabicIndicZero+9:
		return '0' + (r - arabicIndicZero)
	case r >= extendedArabicIndicZero && r <= extendedArabicIndicZero+9:
		return '0' + (r - extendedArabicIndicZero)
	case r == arabicDecimalSeparator:
		return '.'
	}
	return r
}

// NormalizeDigits folds compatibility forms (fullwidth digits and the like)
// and Arabic-Indic numerals into ASCII so that strconv and time layouts can
// read them.
func NormalizeDigits(s string) string {
	// Transformers keep state, build a fresh chain per call.
	t := transform.Chain(norm.NFKC, runes.Map(latinDigit))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
