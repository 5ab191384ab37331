package fix

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// fixNullInt is the FIX "null" sentinel value, normalized to an absent
// field on construction.
const fixNullInt = -2147483648

// timeLayoutMillis and timeLayoutSecs are the FIX UTCTimestamp format with
// and without millisecond precision. Second precision is produced when no
// sub-second component is present.
const (
	timeLayoutMillis = "20060102-15:04:05.000"
	timeLayoutSecs   = "20060102-15:04:05"
)

// Field is an atomic (tag, value) pair. The value is stored as its
// canonical wire text; typed views are derived on demand so that a Field
// compares equal across representations.
type Field struct {
	Tag  Tag
	text string
}

// NewField returns a Field with a literal text value.
func NewField(tag Tag, value string) Field {
	return Field{Tag: tag, text: value}
}

// NewIntField returns a Field encoding an integer. The FIX null sentinel
// -2147483648 normalizes to an absent field: ok is false and the Field
// must not be inserted into a FieldMap.
func NewIntField(tag Tag, value int64) (f Field, ok bool) {
	if value == fixNullInt {
		return Field{}, false
	}
	return Field{Tag: tag, text: strconv.FormatInt(value, 10)}, true
}

// NewBoolField returns a Field encoding Y or N.
func NewBoolField(tag Tag, value bool) Field {
	if value {
		return Field{Tag: tag, text: "Y"}
	}
	return Field{Tag: tag, text: "N"}
}

// NewDecimalField returns a Field with a preformatted decimal string, e.g.
// "12.50". The caller owns precision; this package never rounds a decimal
// it did not produce itself.
func NewDecimalField(tag Tag, value string) Field {
	return Field{Tag: tag, text: value}
}

// NewTimeField returns a Field encoding t as a FIX UTCTimestamp. Millisecond
// precision is used when t carries a sub-second component.
func NewTimeField(tag Tag, t time.Time) Field {
	t = t.UTC()
	if t.Nanosecond() != 0 {
		return Field{Tag: tag, text: t.Format(timeLayoutMillis)}
	}
	return Field{Tag: tag, text: t.Format(timeLayoutSecs)}
}

// IsZero reports whether f is the zero Field, as returned by a failed
// lookup.
func (f Field) IsZero() bool {
	return f.Tag == 0 && f.text == ""
}

// Text returns the value as text, and whether it is valid UTF-8.
func (f Field) Text() (string, bool) {
	return f.text, utf8.ValidString(f.text)
}

// Bytes returns the value as a byte slice copy.
func (f Field) Bytes() []byte {
	return []byte(f.text)
}

// Int returns the value parsed as a base-10 integer.
func (f Field) Int() (int64, error) {
	n, err := strconv.ParseInt(f.text, 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// Decimal returns the value parsed as a floating-point decimal. Callers
// needing exact fixed-point precision should use Text and a decimal
// library of their own choosing; this engine does not interpret amounts.
func (f Field) Decimal() (float64, error) {
	n, err := strconv.ParseFloat(f.text, 64)
	if err != nil {
		return 0, ErrNotDecimal
	}
	return n, nil
}

// Bool returns the value mapped from the FIX Y/N boolean convention.
func (f Field) Bool() (bool, error) {
	switch f.text {
	case "Y":
		return true, nil
	case "N":
		return false, nil
	default:
		return false, ErrNotBool
	}
}

// Time returns the value parsed as a FIX UTCTimestamp, accepting either
// millisecond or second precision.
func (f Field) Time() (time.Time, error) {
	if t, err := time.Parse(timeLayoutMillis, f.text); err == nil {
		return t, nil
	}
	if t, err := time.Parse(timeLayoutSecs, f.text); err == nil {
		return t, nil
	}
	return time.Time{}, ErrNotTime
}

// Equal compares the field's canonical text form against an integer,
// string or byte-slice value using the cross-representation equality
// rule the FIX Y/N and numeric conventions require.
func (f Field) Equal(v any) bool {
	switch x := v.(type) {
	case Field:
		return f.Tag == x.Tag && f.text == x.text
	case string:
		return f.text == x
	case []byte:
		return f.text == string(x)
	case int:
		return f.text == strconv.FormatInt(int64(x), 10)
	case int64:
		return f.text == strconv.FormatInt(x, 10)
	case bool:
		want := "N"
		if x {
			want = "Y"
		}
		return f.text == want
	default:
		return false
	}
}
