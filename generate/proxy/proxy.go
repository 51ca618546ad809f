// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package proxy generates the client (proxy) side of a D-Bus interface: a
// Proxy type that marshals a Go call into an outgoing D-Bus method call,
// demarshals the reply, exposes property access through the real
// org.freedesktop.DBus.Properties interface, and lets a caller subscribe to
// signals.
package proxy

import (
	"fmt"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/codegen"
	"chromiumos/dbusbindings/generate/genutil"
	"chromiumos/dbusbindings/generate/synth"
	"chromiumos/dbusbindings/introspect"
)

// propertiesInterface is the well-known D-Bus interface every proxy with at
// least one property routes Get/Set/GetAll through, rather than inventing a
// bespoke property RPC.
const propertiesInterface = "org.freedesktop.DBus.Properties"

// Generate writes the proxy-side declarations for every interface of node
// onto b, addressed at the object living at path on destination.
func Generate(b *codegen.Builder, node *introspect.Node, destination string) error {
	for i := range node.Interfaces {
		iface := &node.Interfaces[i]
		if err := generateInterface(b, iface, node.Path, destination); err != nil {
			return fmt.Errorf("proxy: interface %s: %w", iface.Name, err)
		}
		b.Blank()
	}
	return nil
}

func generateInterface(b *codegen.Builder, iface *introspect.Interface, path, destination string) error {
	proxyName := genutil.PascalCase(iface.Symbol) + "Proxy"
	itfName := proxyName + "Interface"

	if err := generateProxyInterfaceType(b, iface, itfName); err != nil {
		return err
	}
	b.Blank()
	generateProxyType(b, iface, proxyName, path, destination)
	b.Blank()
	for i := range iface.Methods {
		m := &iface.Methods[i]
		b.Blank()
		if err := generateMethod(b, iface, m, proxyName); err != nil {
			return err
		}
	}
	if len(iface.Properties) > 0 {
		b.Blank()
		if err := generatePropertyAccess(b, iface, proxyName); err != nil {
			return err
		}
	}
	for i := range iface.Signals {
		sig := &iface.Signals[i]
		b.Blank()
		if err := generateConnectSignal(b, iface, sig, proxyName); err != nil {
			return err
		}
	}
	return nil
}

// generateProxyInterfaceType emits the interface a generated *Proxy
// satisfies, so tests can substitute a hand-written stub for the real
// caller/subscriber-backed proxy without touching call sites.
func generateProxyInterfaceType(b *codegen.Builder, iface *introspect.Interface, itfName string) error {
	b.Linef("// %s is the call surface of a %s proxy: satisfied by the", itfName, iface.Name)
	b.Linef("// generated proxy type and by any test double standing in for it.")
	if iface.Deprecated {
		b.Linef("//")
		b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", iface.Name)
	}
	b.Linef("type %s interface {", itfName)
	b.Indent()
	for i := range iface.Methods {
		m := &iface.Methods[i]
		params, rets, err := proxyMethodSignature(m)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		name := genutil.PascalCase(m.Symbol)
		if m.NoReply {
			b.Linef("%s(%s) error", name, joinParamList("ctx context.Context", params))
			continue
		}
		b.Linef("%s(%s) %s", name, joinParamList("ctx context.Context", params), joinRetTypeList(rets, "error"))
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
			b.Linef("%s(ctx context.Context) (%s, error)", getter, goType)
		}
		if setter != "" {
			b.Linef("%s(ctx context.Context, value %s) error", setter, goType)
		}
	}
	if len(iface.Properties) > 0 {
		b.Linef("GetAllProperties(ctx context.Context) (*%sProperties, error)", genutil.PascalCase(iface.Symbol))
	}
	for i := range iface.Signals {
		sig := &iface.Signals[i]
		name := genutil.PascalCase(sig.Symbol)
		args, err := resolveArgs(sig.Arguments, dbustype.DirectionExtract)
		if err != nil {
			return err
		}
		b.Linef("Connect%s(ctx context.Context, handler func(%s)) (cancel func(), err error)", name, joinParamList("", args))
	}
	b.Dedent()
	b.Line("}")
	return nil
}

func generateProxyType(b *codegen.Builder, iface *introspect.Interface, proxyName, path, destination string) {
	b.Linef("// %s calls methods, reads/writes properties, and watches signals on the", proxyName)
	b.Linef("// %s interface of the object at %s.", iface.Name, path)
	if iface.Deprecated {
		b.Linef("//")
		b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", iface.Name)
	}
	b.Linef("type %s struct {", proxyName)
	b.Indent()
	b.Line("caller dbusrt.Caller")
	b.Line("subscriber dbusrt.SignalSubscriber")
	b.Dedent()
	b.Line("}")
	b.Blank()
	b.Linef("// New%s returns a proxy for the object at %q on %q, issuing calls", proxyName, path, destination)
	b.Linef("// through caller and signal subscriptions through subscriber.")
	b.Linef("func New%s(caller dbusrt.Caller, subscriber dbusrt.SignalSubscriber) *%s {", proxyName, proxyName)
	b.Indent()
	b.Linef("return &%s{caller: caller, subscriber: subscriber}", proxyName)
	b.Dedent()
	b.Line("}")
	b.Blank()
	b.Linef("func (p *%s) destination() string { return %q }", proxyName, destination)
	b.Linef("func (p *%s) path() string { return %q }", proxyName, path)
}

func generateMethod(b *codegen.Builder, iface *introspect.Interface, m *introspect.Method, proxyName string) error {
	params, rets, err := proxyMethodSignature(m)
	if err != nil {
		return fmt.Errorf("method %s: %w", m.Name, err)
	}
	name := genutil.PascalCase(m.Symbol)

	if m.Deprecated {
		b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", m.Name)
	}
	if m.NoReply {
		b.Linef("// %s is annotated NoReply: the call is sent without waiting for (or", name)
		b.Linef("// expecting) a reply.")
	}
	b.Linef("func (p *%s) %s(%s) %s {", proxyName, name, joinParamList("ctx context.Context", params), joinRetTypeList(rets, "error"))
	b.Indent()

	ctx := synth.NewContext()
	b.Line("enc := &fragments.Encoder{Order: fragments.NativeEndian, Mapper: dbusrt.ValueMapper}")
	for _, a := range params {
		dbt := a.dbt
		if err := synth.Marshal(b, ctx, &dbt, "enc", a.Name, name+"In"); err != nil {
			return err
		}
	}

	if m.NoReply {
		b.Linef("return p.caller.Notify(ctx, p.destination(), p.path(), %q, %q, enc)", iface.Name, m.Name)
		b.Dedent()
		b.Line("}")
		return nil
	}

	retNames := make([]string, len(rets))
	for i := range rets {
		retNames[i] = fmt.Sprintf("out%d", i)
	}
	b.Linef("dec, err := p.caller.Call(ctx, p.destination(), p.path(), %q, %q, enc)", iface.Name, m.Name)
	b.Block("if err != nil {", func() {
		b.Line(zeroReturn(rets))
	}, "}")
	for i, r := range rets {
		dbt := r.dbt
		b.Linef("var %s %s", retNames[i], dbt.BaseType(dbustype.DirectionExtract))
		if zero := synth.ZeroValueExpr(&dbt); zero != "" {
			b.Linef("%s = %s", retNames[i], zero)
		}
		if err := synth.Demarshal(b, ctx, &dbt, "dec", retNames[i], name+"Out"); err != nil {
			return err
		}
	}
	lhs := append(append([]string{}, retNames...), "nil")
	b.Linef("return %s", joinCSV(lhs))
	b.Dedent()
	b.Line("}")
	return nil
}

func zeroReturn(rets []methodParam) string {
	zeros := make([]string, len(rets)+1)
	for i, r := range rets {
		zeros[i] = zeroValueFor(r.Type)
	}
	zeros[len(rets)] = "err"
	return "return " + joinCSV(zeros)
}

// zeroValueFor returns a syntactically valid zero value for a Go type name
// produced by dbustype.BaseType, used only to fill an early-return tuple.
func zeroValueFor(goType string) string {
	switch {
	case len(goType) > 0 && goType[0] == '[':
		return "nil"
	case len(goType) > 3 && goType[:3] == "map":
		return "nil"
	case goType == "bool":
		return "false"
	case goType == "string", goType == "dbus.ObjectPath", goType == "dbus.Signature":
		return `""`
	case len(goType) > 0 && goType[0] == '*':
		return "nil"
	case goType == "dbus.Variant":
		return "dbus.Variant{}"
	case len(goType) > 6 && goType[:6] == "struct":
		return goType + "{}"
	default:
		return goType + "(0)"
	}
}

func generatePropertyAccess(b *codegen.Builder, iface *introspect.Interface, proxyName string) error {
	for i := range iface.Properties {
		p := &iface.Properties[i]
		getter, setter := propertyAccessorNames(p)
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		goType := dbt.BaseType(dbustype.DirectionExtract)

		if getter != "" {
			b.Linef("// %s fetches the %s property via %s.Get.", getter, p.Name, propertiesInterface)
			b.Linef("func (p *%s) %s(ctx context.Context) (%s, error) {", proxyName, getter, goType)
			b.Indent()
			b.Line("enc := &fragments.Encoder{Order: fragments.NativeEndian, Mapper: dbusrt.ValueMapper}")
			b.Linef("enc.String(%q)", iface.Name)
			b.Linef("enc.String(%q)", p.Name)
			b.Linef("dec, err := p.caller.Call(ctx, p.destination(), p.path(), %q, \"Get\", enc)", propertiesInterface)
			b.Block("if err != nil {", func() {
				b.Linef("return %s, err", zeroValueFor(goType))
			}, "}")
			b.Line("var variant dbus.Variant")
			b.Block("if err := dec.Value(ctx, &variant); err != nil {", func() {
				b.Linef("return %s, err", zeroValueFor(goType))
			}, "}")
			b.Linef("v, ok := variant.Value.(%s)", goType)
			b.Block("if !ok {", func() {
				b.Linef("return %s, fmt.Errorf(\"%s: property %s has wrong type %%T\", variant.Value)", zeroValueFor(goType), iface.Name, p.Name)
			}, "}")
			b.Line("return v, nil")
			b.Dedent()
			b.Line("}")
			b.Blank()
		}
		if setter != "" {
			b.Linef("// %s writes the %s property via %s.Set.", setter, p.Name, propertiesInterface)
			b.Linef("func (p *%s) %s(ctx context.Context, value %s) error {", proxyName, setter, goType)
			b.Indent()
			b.Line("enc := &fragments.Encoder{Order: fragments.NativeEndian, Mapper: dbusrt.ValueMapper}")
			b.Linef("enc.String(%q)", iface.Name)
			b.Linef("enc.String(%q)", p.Name)
			b.Block("if err := enc.Value(ctx, dbus.Variant{Value: value}); err != nil {", func() {
				b.Line("return err")
			}, "}")
			b.Linef("_, err := p.caller.Call(ctx, p.destination(), p.path(), %q, \"Set\", enc)", propertiesInterface)
			b.Line("return err")
			b.Dedent()
			b.Line("}")
			b.Blank()
		}
	}

	propsName := genutil.PascalCase(iface.Symbol) + "Properties"
	b.Linef("// %s is the populated result of %s.GetAllProperties: one field per", propsName, proxyName)
	b.Linef("// readable property, plus a <Name>Present flag distinguishing a zero")
	b.Linef("// value from one the peer did not return.")
	b.Linef("type %s struct {", propsName)
	b.Indent()
	for i := range iface.Properties {
		p := &iface.Properties[i]
		getter, _ := propertyAccessorNames(p)
		if getter == "" {
			continue
		}
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		pascal := genutil.PascalCase(p.Symbol)
		b.Linef("%s %s", pascal, dbt.BaseType(dbustype.DirectionExtract))
		b.Linef("%sPresent bool", pascal)
	}
	b.Dedent()
	b.Line("}")
	b.Blank()

	b.Linef("// GetAllProperties fetches every readable property in one round trip via")
	b.Linef("// %s.GetAll.", propertiesInterface)
	b.Linef("func (p *%s) GetAllProperties(ctx context.Context) (*%s, error) {", proxyName, propsName)
	b.Indent()
	b.Line("enc := &fragments.Encoder{Order: fragments.NativeEndian, Mapper: dbusrt.ValueMapper}")
	b.Linef("enc.String(%q)", iface.Name)
	b.Linef("dec, err := p.caller.Call(ctx, p.destination(), p.path(), %q, \"GetAll\", enc)", propertiesInterface)
	b.Block("if err != nil {", func() {
		b.Line("return nil, err")
	}, "}")
	b.Line("all := make(map[string]dbus.Variant)")
	b.Block("if err := dec.Value(ctx, &all); err != nil {", func() {
		b.Line("return nil, err")
	}, "}")
	b.Linef("out := &%s{}", propsName)
	for i := range iface.Properties {
		p := &iface.Properties[i]
		getter, _ := propertyAccessorNames(p)
		if getter == "" {
			continue
		}
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		pascal := genutil.PascalCase(p.Symbol)
		goType := dbt.BaseType(dbustype.DirectionExtract)
		b.Linef("if variant, ok := all[%q]; ok {", p.Name)
		b.Indent()
		b.Linef("if v, ok := variant.Value.(%s); ok {", goType)
		b.Indent()
		b.Linef("out.%s = v", pascal)
		b.Linef("out.%sPresent = true", pascal)
		b.Dedent()
		b.Line("}")
		b.Dedent()
		b.Line("}")
	}
	b.Line("return out, nil")
	b.Dedent()
	b.Line("}")
	return nil
}

func generateConnectSignal(b *codegen.Builder, iface *introspect.Interface, sig *introspect.Signal, proxyName string) error {
	name := genutil.PascalCase(sig.Symbol)
	args, err := resolveArgs(sig.Arguments, dbustype.DirectionExtract)
	if err != nil {
		return err
	}
	handlerType := fmt.Sprintf("func(%s)", joinParamList("", args))

	if sig.Deprecated {
		b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", sig.Name)
	}
	b.Linef("// Connect%s subscribes handler to the %s signal. The returned cancel", name, sig.Name)
	b.Linef("// function stops delivery; an error demarshalling a signal is returned")
	b.Linef("// to the subscriber, which logs it without tearing down the subscription.")
	b.Linef("func (p *%s) Connect%s(ctx context.Context, handler %s) (cancel func(), err error) {", proxyName, name, handlerType)
	b.Indent()
	b.Linef("return p.subscriber.Subscribe(ctx, p.path(), %q, %q, func(dec *fragments.Decoder) error {", iface.Name, sig.Name)
	b.Indent()
	synCtx := synth.NewContext()
	argNames := make([]string, len(args))
	for i, a := range args {
		argNames[i] = a.Name
		dbt := a.dbt
		b.Linef("var %s %s", a.Name, dbt.BaseType(dbustype.DirectionExtract))
		if zero := synth.ZeroValueExpr(&dbt); zero != "" {
			b.Linef("%s = %s", a.Name, zero)
		}
		if err := synth.Demarshal(b, synCtx, &dbt, "dec", a.Name, name+"Arg"); err != nil {
			return err
		}
	}
	b.Linef("handler(%s)", joinCSV(argNames))
	b.Line("return nil")
	b.Dedent()
	b.Line("})")
	b.Dedent()
	b.Line("}")
	return nil
}

func joinParamList(prefix string, params []methodParam) string {
	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name, p.Type))
	}
	return joinCSV(parts)
}

func joinRetTypeList(rets []methodParam, extra ...string) string {
	var parts []string
	for _, r := range rets {
		parts = append(parts, r.Type)
	}
	parts = append(parts, extra...)
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + joinCSV(parts) + ")"
}

func joinCSV(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
