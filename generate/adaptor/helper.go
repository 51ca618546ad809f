// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adaptor

import (
	"fmt"
	"strings"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/genutil"
	"chromiumos/dbusbindings/introspect"
)

// methodParam is one parameter or return value of a generated interface
// method, already resolved to its Go name, Go type, and parsed signature.
type methodParam struct {
	Name string
	Type string
	dbt  dbustype.DBusType
}

func resolveArgs(args []introspect.Argument, direction dbustype.Direction) ([]methodParam, error) {
	var out []methodParam
	for _, a := range args {
		dbt, err := dbustype.Parse(a.Signature)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		out = append(out, methodParam{Name: a.Symbol, Type: dbt.BaseType(direction), dbt: dbt})
	}
	return out, nil
}

// interfaceMethodSignature resolves the parameters and return values of the
// Go interface method corresponding to m: in-arguments are extracted from
// the incoming call, out-arguments are appended to the reply.
func interfaceMethodSignature(m *introspect.Method) (params, rets []methodParam, err error) {
	in, err := resolveArgs(m.InputArguments(), dbustype.DirectionExtract)
	if err != nil {
		return nil, nil, err
	}
	out, err := resolveArgs(m.OutputArguments(), dbustype.DirectionAppend)
	if err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func joinParams(prefix string, params []methodParam) string {
	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name, p.Type))
	}
	return strings.Join(parts, ", ")
}

func joinRetTypes(rets []methodParam, extra ...string) string {
	var parts []string
	for _, r := range rets {
		parts = append(parts, r.Type)
	}
	parts = append(parts, extra...)
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// propertyAccessorNames returns the Go interface method names a property
// contributes: Get<Pascal> when readable, Set<Pascal> when writable.
func propertyAccessorNames(p *introspect.Property) (getter, setter string) {
	pascal := genutil.PascalCase(p.Symbol)
	if p.Access.Readable() {
		getter = "Get" + pascal
	}
	if p.Access.Writable() {
		setter = "Set" + pascal
	}
	return getter, setter
}

func parseArgType(a introspect.Argument) (dbustype.DBusType, error) {
	dbt, err := dbustype.Parse(a.Signature)
	if err != nil {
		return dbustype.DBusType{}, fmt.Errorf("argument %q: %w", a.Name, err)
	}
	return dbt, nil
}

func parsePropertyType(p *introspect.Property) (dbustype.DBusType, error) {
	dbt, err := dbustype.Parse(p.Signature)
	if err != nil {
		return dbustype.DBusType{}, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return dbt, nil
}
