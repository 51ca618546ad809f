// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package proxy

import (
	"fmt"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/genutil"
	"chromiumos/dbusbindings/introspect"
)

// methodParam is one parameter or return value of a generated proxy method.
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

// proxyMethodSignature resolves a method's in-arguments (appended to the
// outgoing call) and out-arguments (extracted from the reply): the mirror
// image of the adaptor's direction assignment.
func proxyMethodSignature(m *introspect.Method) (params, rets []methodParam, err error) {
	in, err := resolveArgs(m.InputArguments(), dbustype.DirectionAppend)
	if err != nil {
		return nil, nil, err
	}
	out, err := resolveArgs(m.OutputArguments(), dbustype.DirectionExtract)
	if err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func parsePropertyType(p *introspect.Property) (dbustype.DBusType, error) {
	dbt, err := dbustype.Parse(p.Signature)
	if err != nil {
		return dbustype.DBusType{}, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return dbt, nil
}

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
