package record

import (
	"fmt"
	"regexp"
	"strconv"
)

// Kind classifies a field value.
type Kind int

const (
	KindWord Kind = iota
	KindInteger
	KindDecimal
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	default:
		return "word"
	}
}

var (
	integerRe = regexp.MustCompile(`^-*\d+$`)
	decimalRe = regexp.MustCompile(`^-*\d+\.\d+$`)
)

// Value is a raw field value as it appeared in the line.
type Value string

// Kind reports how the value reads. Digit-only tokens are integers even
// though the grammar would also accept them as words.
func (v Value) Kind() Kind {
	switch {
	case integerRe.MatchString(string(v)):
		return KindInteger
	case decimalRe.MatchString(string(v)):
		return KindDecimal
	default:
		return KindWord
	}
}

// Int converts an integer value. Values with repeated signs are valid
// record content but are not representable and return an error.
func (v Value) Int() (int64, error) {
	if v.Kind() != KindInteger {
		return 0, fmt.Errorf("value %q is a %s, not an integer", string(v), v.Kind())
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", string(v), err)
	}
	return n, nil
}

// Float converts an integer or decimal value.
func (v Value) Float() (float64, error) {
	if v.Kind() == KindWord {
		return 0, fmt.Errorf("value %q is a word, not a number", string(v))
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", string(v), err)
	}
	return f, nil
}
