// Package fix provides the OSI presentation layer for FIX 4.4: the field
// and message model, and the tag=value wire codec.
package fix

import "errors"

// Decode failures. MalformedFraming, BodyLengthMismatch and
// CheckSumMismatch leave the codec unable to advance; the caller must
// resynchronize by scanning forward to the next "8=" marker.
var (
	// ErrIncomplete signals that the buffer does not yet contain a full
	// message. The caller should read more bytes and retry.
	ErrIncomplete = errors.New("fix: incomplete message, need more data")

	// ErrMalformedFraming signals a missing or garbled 8=, 9= or 10= field.
	ErrMalformedFraming = errors.New("fix: malformed framing")

	// ErrBodyLengthMismatch signals BodyLength does not match the actual
	// body octet count.
	ErrBodyLengthMismatch = errors.New("fix: body length mismatch")

	// ErrCheckSumMismatch signals CheckSum does not match the computed sum.
	ErrCheckSumMismatch = errors.New("fix: checksum mismatch")

	// ErrUnknownTag signals a tag absent from the data dictionary. Decode
	// has no strict mode and does not return it.
	ErrUnknownTag = errors.New("fix: unknown tag")

	// ErrGroupParse signals a repeating group that could not be matched
	// against its template: too few instances, or a malformed delimiter.
	ErrGroupParse = errors.New("fix: group parse error")

	// ErrMissingMsgType signals an attempt to encode a Message with no
	// tag 35.
	ErrMissingMsgType = errors.New("fix: message has no MsgType")
)

// Field and message mutation failures.
var (
	// ErrInvalidTag signals a tag number outside of [1, 9999], or a write
	// to an undeclared tag outside of the user-defined [5000, 9999] range.
	ErrInvalidTag = errors.New("fix: invalid tag")

	// ErrNoSuchField signals a lookup for an absent tag.
	ErrNoSuchField = errors.New("fix: no such field")

	// ErrNotInteger, ErrNotDecimal, ErrNotBool and ErrNotTime signal a
	// typed accessor call against a value of the wrong shape.
	ErrNotInteger = errors.New("fix: field value is not an integer")
	ErrNotDecimal = errors.New("fix: field value is not a decimal")
	ErrNotBool    = errors.New("fix: field value is not Y/N")
	ErrNotTime    = errors.New("fix: field value is not a UTCTimestamp")
)
