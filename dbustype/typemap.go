// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dbustype provides utility functions for generators to parse a
// D-Bus type signature and produce the corresponding Go type.
package dbustype

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Direction is an enum to represent if you are reading the argument from a
// message or writing it onto one.
type Direction int

const (
	// DirectionExtract indicates that you are reading an argument from a
	// message (demarshalling).
	DirectionExtract Direction = iota

	// DirectionAppend indicates that you are writing an argument onto a
	// message (marshalling).
	DirectionAppend
)

// Receiver is an enum to represent what you are generating.
type Receiver int

const (
	// ReceiverAdaptor indicates that you are generating the object
	// (server/callee) side of an interface.
	ReceiverAdaptor Receiver = iota

	// ReceiverProxy indicates that you are generating the proxy
	// (client/caller) side of an interface.
	ReceiverProxy
)

// DBusType represents a single complete D-Bus type, as produced by
// Parse. It is an immutable tree: containers hold child DBusTypes.
type DBusType struct {
	code  TypeCode
	sig   string
	elem  *DBusType   // Array (non-dict) element type
	key   *DBusType   // DictEntry key type
	value *DBusType   // DictEntry value type
	field []*DBusType // Struct field types
}

// Code returns the type code of the top-level type (Array, Struct, a
// basic code, or Variant).
func (d *DBusType) Code() TypeCode { return d.code }

// Signature returns the original D-Bus signature this type was parsed
// from.
func (d *DBusType) Signature() string { return d.sig }

// Parse returns a DBusType corresponding to the D-Bus signature given in
// sig. sig must be a single complete type (e.g. a property signature, or
// one element of a method argument list).
func Parse(sig string) (DBusType, error) {
	cur, err := NewSignatureCursor(sig)
	if err != nil {
		return DBusType{}, errors.Wrapf(err, "parsing signature %q", sig)
	}
	full, err := cur.Signature()
	if err != nil {
		return DBusType{}, err
	}
	if rest := sig[len(full):]; rest != "" {
		return DBusType{}, errors.Errorf("signature %q is not a single complete type (trailing %q)", sig, rest)
	}
	t, err := parseFrom(cur)
	if err != nil {
		return DBusType{}, err
	}
	return *t, nil
}

func parseFrom(cur *SignatureCursor) (*DBusType, error) {
	sig, err := cur.Signature()
	if err != nil {
		return nil, err
	}
	code := cur.CurrentType()
	t := &DBusType{code: code, sig: sig}

	switch code {
	case Array:
		child, err := cur.Recurse()
		if err != nil {
			return nil, err
		}
		if cur.IsDictEntry() {
			key, err := parseFrom(child)
			if err != nil {
				return nil, err
			}
			if err := child.Advance(); err != nil {
				return nil, err
			}
			value, err := parseFrom(child)
			if err != nil {
				return nil, err
			}
			t.key, t.value = key, value
		} else {
			elem, err := parseFrom(child)
			if err != nil {
				return nil, err
			}
			t.elem = elem
		}
	case Struct:
		child, err := cur.Recurse()
		if err != nil {
			return nil, err
		}
		for child.CurrentType() != End {
			f, err := parseFrom(child)
			if err != nil {
				return nil, err
			}
			t.field = append(t.field, f)
			if err := child.Advance(); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// IsDictEntry reports whether d is an array of dict-entries (a{kv}).
func (d *DBusType) IsDictEntry() bool { return d.code == Array && d.key != nil }

// Elem returns the element type of a plain array (not a dict). Nil for
// other type kinds.
func (d *DBusType) Elem() *DBusType { return d.elem }

// DictKey returns the key type of a dict-entry array. Nil unless
// IsDictEntry.
func (d *DBusType) DictKey() *DBusType { return d.key }

// DictValue returns the value type of a dict-entry array. Nil unless
// IsDictEntry.
func (d *DBusType) DictValue() *DBusType { return d.value }

// Fields returns the field types of a struct, in declared order. Nil for
// other type kinds.
func (d *DBusType) Fields() []*DBusType { return d.field }

var basicGoExtract = map[TypeCode]string{
	BasicByte:       "byte",
	BasicBool:       "bool",
	BasicInt16:      "int16",
	BasicUint16:     "uint16",
	BasicInt32:      "int32",
	BasicUint32:     "uint32",
	BasicInt64:      "int64",
	BasicUint64:     "uint64",
	BasicDouble:     "float64",
	BasicString:     "string",
	BasicObjectPath: "dbus.ObjectPath",
	BasicSignature:  "dbus.Signature",
	BasicUnixFD:     "*os.File",
}

var basicGoAppend = map[TypeCode]string{
	BasicByte:       "byte",
	BasicBool:       "bool",
	BasicInt16:      "int16",
	BasicUint16:     "uint16",
	BasicInt32:      "int32",
	BasicUint32:     "uint32",
	BasicInt64:      "int64",
	BasicUint64:     "uint64",
	BasicDouble:     "float64",
	BasicString:     "string",
	BasicObjectPath: "dbus.ObjectPath",
	BasicSignature:  "dbus.Signature",
	BasicUnixFD:     "int",
}

// isScalar reports whether code is a fixed-width numeric/bool type, i.e.
// one whose value is copied rather than referenced, and which therefore
// needs no pointer indirection for in-args.
func isScalar(code TypeCode) bool {
	switch code {
	case BasicByte, BasicBool, BasicInt16, BasicUint16, BasicInt32, BasicUint32,
		BasicInt64, BasicUint64, BasicDouble:
		return true
	}
	return false
}

// BaseType returns the Go type corresponding to d, in the given direction.
// Direction only affects the `h` (Unix file descriptor) type: extracting a
// descriptor from a message yields an owned *os.File, while appending one
// takes a borrowed raw fd.
func (d *DBusType) BaseType(direction Direction) string {
	switch d.code {
	case Variant:
		return "dbus.Variant"
	case Array:
		if d.IsDictEntry() {
			return fmt.Sprintf("map[%s]%s", d.key.BaseType(direction), d.value.BaseType(direction))
		}
		if d.elem.code == BasicByte {
			return "[]byte"
		}
		return "[]" + d.elem.BaseType(direction)
	case Struct:
		var fields []string
		for i, f := range d.field {
			fields = append(fields, fmt.Sprintf("Item%d %s", i, f.BaseType(direction)))
		}
		return "struct{ " + strings.Join(fields, "; ") + " }"
	default:
		if direction == DirectionExtract {
			if s, ok := basicGoExtract[d.code]; ok {
				return s
			}
		} else {
			if s, ok := basicGoAppend[d.code]; ok {
				return s
			}
		}
		return "interface{}"
	}
}

// directionFor maps a (Receiver, role) pair onto the Direction the wire
// traffic actually flows: an adaptor (object side) *extracts* its in-args
// from the incoming call and *appends* its out-args to the reply; a proxy
// (client side) is the mirror image.
func directionFor(receiver Receiver, isInArg bool) Direction {
	adaptorRole := isInArg // adaptor in-args extract; adaptor out-args append
	if receiver == ReceiverAdaptor {
		if adaptorRole {
			return DirectionExtract
		}
		return DirectionAppend
	}
	// ReceiverProxy: in-args append (written to the outgoing call),
	// out-args extract (read from the reply).
	if isInArg {
		return DirectionAppend
	}
	return DirectionExtract
}

// InArgType returns the Go type to use for d when it appears as a method
// or signal in-argument, for the given receiver.
func (d *DBusType) InArgType(receiver Receiver) string {
	return d.BaseType(directionFor(receiver, true))
}

// OutArgType returns the Go type to use for d when it appears as a method
// out-argument, for the given receiver. Out-arguments are always
// communicated through a caller-supplied pointer so the generated
// function can populate them.
func (d *DBusType) OutArgType(receiver Receiver) string {
	return "*" + d.BaseType(directionFor(receiver, false))
}
