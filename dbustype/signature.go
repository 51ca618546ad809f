// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dbustype

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxNestingDepth is the maximum combined array+struct nesting depth a
// signature may contain, per the D-Bus specification. The reference
// implementation this generator is modeled on relies on its D-Bus library
// to enforce this limit; we enforce it explicitly here instead (see
// Open Question in DESIGN.md).
const MaxNestingDepth = 32

// TypeCode identifies the kind of type at the cursor's current position.
type TypeCode int

const (
	// End indicates the cursor has consumed the whole signature.
	End TypeCode = iota
	BasicByte
	BasicBool
	BasicInt16
	BasicUint16
	BasicInt32
	BasicUint32
	BasicInt64
	BasicUint64
	BasicDouble
	BasicString
	BasicObjectPath
	BasicSignature
	BasicUnixFD
	Variant
	Array
	Struct
	DictEntry
)

func (c TypeCode) String() string {
	switch c {
	case End:
		return "End"
	case BasicByte:
		return "Byte"
	case BasicBool:
		return "Bool"
	case BasicInt16:
		return "Int16"
	case BasicUint16:
		return "Uint16"
	case BasicInt32:
		return "Int32"
	case BasicUint32:
		return "Uint32"
	case BasicInt64:
		return "Int64"
	case BasicUint64:
		return "Uint64"
	case BasicDouble:
		return "Double"
	case BasicString:
		return "String"
	case BasicObjectPath:
		return "ObjectPath"
	case BasicSignature:
		return "Signature"
	case BasicUnixFD:
		return "UnixFD"
	case Variant:
		return "Variant"
	case Array:
		return "Array"
	case Struct:
		return "Struct"
	case DictEntry:
		return "DictEntry"
	}
	return "Unknown"
}

var basicTypeCodes = map[byte]TypeCode{
	'y': BasicByte,
	'b': BasicBool,
	'n': BasicInt16,
	'q': BasicUint16,
	'i': BasicInt32,
	'u': BasicUint32,
	'x': BasicInt64,
	't': BasicUint64,
	'd': BasicDouble,
	's': BasicString,
	'o': BasicObjectPath,
	'g': BasicSignature,
	'h': BasicUnixFD,
}

// IsBasic reports whether c is one of the fixed-size scalar or string-like
// basic types (i.e. valid as a dict-entry key).
func (c TypeCode) IsBasic() bool {
	_, ok := map[TypeCode]bool{
		BasicByte: true, BasicBool: true, BasicInt16: true, BasicUint16: true,
		BasicInt32: true, BasicUint32: true, BasicInt64: true, BasicUint64: true,
		BasicDouble: true, BasicString: true, BasicObjectPath: true,
		BasicSignature: true, BasicUnixFD: true,
	}[c]
	return ok
}

// SignatureError reports a malformed signature, including the byte offset
// of the offending character.
type SignatureError struct {
	Signature string
	Offset    int
	Reason    string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid signature %q at offset %d: %s", e.Signature, e.Offset, e.Reason)
}

// SignatureCursor is a stateful iterator over a D-Bus type signature, per
// spec.md §4.1. The zero value is not usable; construct with
// NewSignatureCursor.
type SignatureCursor struct {
	full  string // the whole signature string, for error offsets
	sig   string // unconsumed remainder
	pos   int    // offset of sig[0] within full
	depth int
}

// NewSignatureCursor constructs a cursor over sig. sig must consist of one
// or more complete types; the cursor starts at nesting depth 0.
func NewSignatureCursor(sig string) (*SignatureCursor, error) {
	c := &SignatureCursor{full: sig, sig: sig, pos: 0, depth: 0}
	if err := c.validate(sig, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func newChildCursor(full string, sig string, pos int, depth int) *SignatureCursor {
	return &SignatureCursor{full: full, sig: sig, pos: pos, depth: depth}
}

func (c *SignatureCursor) errorf(offset int, format string, args ...interface{}) error {
	return &SignatureError{Signature: c.full, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// validate walks sig from the start checking grammar and depth, without
// mutating the cursor. It is run once at construction time so that
// NewSignatureCursor fails fast on a malformed signature, as required by
// spec.md §4.1.
func (c *SignatureCursor) validate(sig string, depth int) error {
	if sig == "" {
		return c.errorf(c.pos, "empty signature")
	}
	rest := sig
	base := c.pos
	for rest != "" {
		consumed, err := validateOne(c, rest, base, depth)
		if err != nil {
			return err
		}
		rest = rest[consumed:]
		base += consumed
	}
	return nil
}

// validateOne validates a single complete type starting at rest, returning
// how many bytes it consumed.
func validateOne(c *SignatureCursor, rest string, base int, depth int) (int, error) {
	if depth > MaxNestingDepth {
		return 0, c.errorf(base, "nesting depth exceeds %d", MaxNestingDepth)
	}
	if rest == "" {
		return 0, c.errorf(base, "missing type")
	}
	ch := rest[0]
	if _, ok := basicTypeCodes[ch]; ok {
		return 1, nil
	}
	switch ch {
	case 'v':
		return 1, nil
	case 'a':
		if len(rest) < 2 {
			return 0, c.errorf(base, "array missing element type")
		}
		if rest[1] == '{' {
			return validateDict(c, rest, base, depth)
		}
		n, err := validateOne(c, rest[1:], base+1, depth+1)
		if err != nil {
			return 0, err
		}
		return 1 + n, nil
	case '(':
		return validateStruct(c, rest, base, depth)
	default:
		return 0, c.errorf(base, "unexpected character %q", ch)
	}
}

func validateStruct(c *SignatureCursor, rest string, base int, depth int) (int, error) {
	i := 1
	fields := 0
	for {
		if i >= len(rest) {
			return 0, c.errorf(base, "unterminated struct")
		}
		if rest[i] == ')' {
			if fields == 0 {
				return 0, c.errorf(base, "struct must have at least one field")
			}
			return i + 1, nil
		}
		n, err := validateOne(c, rest[i:], base+i, depth+1)
		if err != nil {
			return 0, err
		}
		i += n
		fields++
	}
}

func validateDict(c *SignatureCursor, rest string, base int, depth int) (int, error) {
	// rest[0] == 'a', rest[1] == '{'
	if len(rest) < 3 {
		return 0, c.errorf(base, "unterminated dict entry")
	}
	keyCh := rest[2]
	kc, ok := basicTypeCodes[keyCh]
	if !ok {
		return 0, c.errorf(base+2, "dict-entry key must be a basic type, got %q", keyCh)
	}
	_ = kc
	valN, err := validateOne(c, rest[3:], base+3, depth+2)
	if err != nil {
		return 0, err
	}
	end := 3 + valN
	if end >= len(rest) || rest[end] != '}' {
		return 0, c.errorf(base+end, "unterminated dict entry")
	}
	return end + 1, nil
}

// CurrentType returns the type code at the cursor's current position, or
// End if the signature has been fully consumed.
func (c *SignatureCursor) CurrentType() TypeCode {
	if c.sig == "" {
		return End
	}
	ch := c.sig[0]
	if tc, ok := basicTypeCodes[ch]; ok {
		return tc
	}
	switch ch {
	case 'v':
		return Variant
	case 'a':
		if len(c.sig) > 1 && c.sig[1] == '{' {
			return Array // an array of dict-entry; Recurse exposes the DictEntry.
		}
		return Array
	case '(':
		return Struct
	}
	return End
}

// Signature returns the signature of the complete type at the cursor's
// current position (not the whole remaining signature).
func (c *SignatureCursor) Signature() (string, error) {
	if c.sig == "" {
		return "", errors.New("cursor is at End")
	}
	n, err := signatureLen(c.sig)
	if err != nil {
		return "", err
	}
	return c.sig[:n], nil
}

func signatureLen(sig string) (int, error) {
	tmp := &SignatureCursor{full: sig}
	return validateOne(tmp, sig, 0, 0)
}

// Recurse returns a child cursor positioned at the first type contained
// within the current container type. It is only valid when CurrentType is
// Array, Struct, or DictEntry (as surfaced via Array). The caller must
// fully consume the child cursor before calling Advance on the parent.
func (c *SignatureCursor) Recurse() (*SignatureCursor, error) {
	switch c.CurrentType() {
	case Array:
		if len(c.sig) > 1 && c.sig[1] == '{' {
			// a{kv}: the child cursor walks the dict-entry's key+value pair
			// as if it were a two-field struct.
			inner := c.sig[2 : len(c.sig)-1] // strip "a{" and "}"
			// find end of dict entry to strip correctly
			n, err := signatureLen(c.sig)
			if err != nil {
				return nil, err
			}
			inner = c.sig[2 : n-1]
			return newChildCursor(c.full, inner, c.pos+2, c.depth+2), nil
		}
		return newChildCursor(c.full, c.sig[1:], c.pos+1, c.depth+1), nil
	case Struct:
		n, err := signatureLen(c.sig)
		if err != nil {
			return nil, err
		}
		inner := c.sig[1 : n-1]
		return newChildCursor(c.full, inner, c.pos+1, c.depth+1), nil
	default:
		return nil, c.errorf(c.pos, "Recurse called on non-container type %s", c.CurrentType())
	}
}

// IsDictEntry reports whether the cursor's current Array is actually an
// array of dict-entries (a{...}), which the Type Mapper and Synthesizer
// need to distinguish from a plain array.
func (c *SignatureCursor) IsDictEntry() bool {
	return c.CurrentType() == Array && len(c.sig) > 1 && c.sig[1] == '{'
}

// DictKeyType returns the basic type code of a dict-entry's key. Only
// valid when IsDictEntry is true.
func (c *SignatureCursor) DictKeyType() TypeCode {
	if !c.IsDictEntry() {
		return End
	}
	return basicTypeCodes[c.sig[2]]
}

// Advance moves the cursor past the complete type at its current position.
// It must not be called while a child cursor obtained via Recurse is still
// in use.
func (c *SignatureCursor) Advance() error {
	if c.sig == "" {
		return errors.New("Advance called at End")
	}
	n, err := signatureLen(c.sig)
	if err != nil {
		return err
	}
	c.sig = c.sig[n:]
	c.pos += n
	return nil
}
