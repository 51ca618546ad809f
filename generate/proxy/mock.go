// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package proxy

import (
	"fmt"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/codegen"
	"chromiumos/dbusbindings/generate/genutil"
	"chromiumos/dbusbindings/introspect"
)

// GenerateMock writes, for every interface of node, a <X>ProxyMock struct
// satisfying the interface's <X>ProxyInterface: one exported func field per
// method/property accessor/signal subscription, so a test can set only the
// fields its scenario exercises and leave the rest to panic loudly if
// called unexpectedly.
func GenerateMock(b *codegen.Builder, node *introspect.Node) error {
	for i := range node.Interfaces {
		iface := &node.Interfaces[i]
		if err := generateMock(b, iface); err != nil {
			return fmt.Errorf("proxy: mock for interface %s: %w", iface.Name, err)
		}
		b.Blank()
	}
	return nil
}

func generateMock(b *codegen.Builder, iface *introspect.Interface) error {
	proxyName := genutil.PascalCase(iface.Symbol) + "Proxy"
	itfName := proxyName + "Interface"
	mockName := proxyName + "Mock"

	b.Linef("// %s is a test double for %s. Each field defaults to nil; a method", mockName, itfName)
	b.Linef("// called with its backing field unset panics, so a test only wires up")
	b.Linef("// the calls its scenario actually makes.")
	b.Linef("type %s struct {", mockName)
	b.Indent()
	for i := range iface.Methods {
		m := &iface.Methods[i]
		params, rets, err := proxyMethodSignature(m)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		name := genutil.PascalCase(m.Symbol)
		if m.NoReply {
			b.Linef("%sFunc func(%s) error", name, joinParamList("ctx context.Context", params))
			continue
		}
		b.Linef("%sFunc func(%s) %s", name, joinParamList("ctx context.Context", params), joinRetTypeList(rets, "error"))
	}
	for i := range iface.Properties {
		p := &iface.Properties[i]
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		goType := dbt.BaseType(dbustype.DirectionExtract)
		getter, setter := propertyAccessorNames(p)
		if getter != "" {
			b.Linef("%sFunc func(ctx context.Context) (%s, error)", getter, goType)
		}
		if setter != "" {
			b.Linef("%sFunc func(ctx context.Context, value %s) error", setter, goType)
		}
	}
	if len(iface.Properties) > 0 {
		b.Linef("GetAllPropertiesFunc func(ctx context.Context) (*%sProperties, error)", genutil.PascalCase(iface.Symbol))
	}
	for i := range iface.Signals {
		sig := &iface.Signals[i]
		name := genutil.PascalCase(sig.Symbol)
		args, err := resolveArgs(sig.Arguments, dbustype.DirectionExtract)
		if err != nil {
			return err
		}
		b.Linef("Connect%sFunc func(ctx context.Context, handler func(%s)) (cancel func(), err error)", name, joinParamList("", args))
	}
	b.Dedent()
	b.Line("}")
	b.Blank()

	for i := range iface.Methods {
		m := &iface.Methods[i]
		params, rets, err := proxyMethodSignature(m)
		if err != nil {
			return err
		}
		name := genutil.PascalCase(m.Symbol)
		callArgs := append([]string{"ctx"}, paramNames(params)...)
		if m.NoReply {
			b.Linef("func (m *%s) %s(%s) error {", mockName, name, joinParamList("ctx context.Context", params))
			b.Indent()
			b.Linef("return m.%sFunc(%s)", name, joinCSV(callArgs))
			b.Dedent()
			b.Line("}")
			b.Blank()
			continue
		}
		b.Linef("func (m *%s) %s(%s) %s {", mockName, name, joinParamList("ctx context.Context", params), joinRetTypeList(rets, "error"))
		b.Indent()
		b.Linef("return m.%sFunc(%s)", name, joinCSV(callArgs))
		b.Dedent()
		b.Line("}")
		b.Blank()
	}
	for i := range iface.Properties {
		p := &iface.Properties[i]
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		goType := dbt.BaseType(dbustype.DirectionExtract)
		getter, setter := propertyAccessorNames(p)
		if getter != "" {
			b.Linef("func (m *%s) %s(ctx context.Context) (%s, error) {", mockName, getter, goType)
			b.Indent()
			b.Linef("return m.%sFunc(ctx)", getter)
			b.Dedent()
			b.Line("}")
			b.Blank()
		}
		if setter != "" {
			b.Linef("func (m *%s) %s(ctx context.Context, value %s) error {", mockName, setter, goType)
			b.Indent()
			b.Linef("return m.%sFunc(ctx, value)", setter)
			b.Dedent()
			b.Line("}")
			b.Blank()
		}
	}
	if len(iface.Properties) > 0 {
		b.Linef("func (m *%s) GetAllProperties(ctx context.Context) (*%sProperties, error) {", mockName, genutil.PascalCase(iface.Symbol))
		b.Indent()
		b.Line("return m.GetAllPropertiesFunc(ctx)")
		b.Dedent()
		b.Line("}")
		b.Blank()
	}
	for i := range iface.Signals {
		sig := &iface.Signals[i]
		name := genutil.PascalCase(sig.Symbol)
		args, err := resolveArgs(sig.Arguments, dbustype.DirectionExtract)
		if err != nil {
			return err
		}
		handlerType := fmt.Sprintf("func(%s)", joinParamList("", args))
		b.Linef("func (m *%s) Connect%s(ctx context.Context, handler %s) (cancel func(), err error) {", mockName, name, handlerType)
		b.Indent()
		b.Linef("return m.Connect%sFunc(ctx, handler)", name)
		b.Dedent()
		b.Line("}")
		b.Blank()
	}
	return nil
}

func paramNames(params []methodParam) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}
