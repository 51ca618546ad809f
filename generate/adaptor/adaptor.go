// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package adaptor generates the object (server) side of a D-Bus interface:
// a Go interface type an implementation must satisfy, and an Adaptor type
// that dispatches incoming method calls onto it, serves property get/set/
// GetAll, and exposes one Emit method per signal.
package adaptor

import (
	"fmt"
	"strings"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/codegen"
	"chromiumos/dbusbindings/generate/genutil"
	"chromiumos/dbusbindings/generate/synth"
	"chromiumos/dbusbindings/introspect"
)

// Generate writes the adaptor-side declarations for every interface of node
// onto b. strictGetAll is the default recorded in each generated GetAll's
// doc comment; whether a GetAll call aborts on the first unreadable
// property or skips it is decided by that method's own strict argument.
func Generate(b *codegen.Builder, node *introspect.Node, strictGetAll bool) error {
	for i := range node.Interfaces {
		iface := &node.Interfaces[i]
		if err := generateInterface(b, iface, strictGetAll); err != nil {
			return fmt.Errorf("adaptor: interface %s: %w", iface.Name, err)
		}
		b.Blank()
	}
	return nil
}

func generateInterface(b *codegen.Builder, iface *introspect.Interface, strictGetAll bool) error {
	itfName := genutil.PascalCase(iface.Symbol) + "Interface"
	adaptorName := genutil.PascalCase(iface.Symbol) + "Adaptor"

	if err := generateInterfaceType(b, iface, itfName); err != nil {
		return err
	}
	b.Blank()
	generateAdaptorType(b, iface, itfName, adaptorName)
	b.Blank()
	if err := generateHandleMethodCall(b, iface, adaptorName); err != nil {
		return err
	}
	if len(iface.Properties) > 0 {
		b.Blank()
		if err := generatePropertyAccess(b, iface, adaptorName, strictGetAll); err != nil {
			return err
		}
	}
	for i := range iface.Signals {
		b.Blank()
		if err := generateEmitSignal(b, iface, &iface.Signals[i], adaptorName); err != nil {
			return err
		}
	}
	return nil
}

func generateInterfaceType(b *codegen.Builder, iface *introspect.Interface, itfName string) error {
	b.Linef("// %s is implemented by the object backing the %s D-Bus interface.", itfName, iface.Name)
	if iface.Deprecated {
		b.Linef("//")
		b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", iface.Name)
	}
	b.Linef("type %s interface {", itfName)
	b.Indent()
	for i := range iface.Methods {
		m := &iface.Methods[i]
		params, rets, err := interfaceMethodSignature(m)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		name := genutil.PascalCase(m.Symbol)
		if m.Deprecated {
			b.Linef("// Deprecated: %s is marked deprecated in its introspection data.", m.Name)
		}
		b.Linef("%s(%s) %s", name, joinParams("ctx context.Context", params), joinRetTypes(rets, "error"))
	}
	for i := range iface.Properties {
		p := &iface.Properties[i]
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		getter, setter := propertyAccessorNames(p)
		if getter != "" {
			b.Linef("%s(ctx context.Context) (%s, error)", getter, dbt.BaseType(dbustype.DirectionAppend))
		}
		if setter != "" {
			b.Linef("%s(ctx context.Context, value %s) error", setter, dbt.BaseType(dbustype.DirectionAppend))
		}
	}
	b.Dedent()
	b.Line("}")
	return nil
}

func generateAdaptorType(b *codegen.Builder, iface *introspect.Interface, itfName, adaptorName string) {
	b.Linef("// %s dispatches D-Bus traffic on %s onto a %s implementation.", adaptorName, iface.Name, itfName)
	b.Linef("type %s struct {", adaptorName)
	b.Indent()
	b.Linef("impl %s", itfName)
	b.Dedent()
	b.Line("}")
	b.Blank()
	b.Linef("// New%s returns an adaptor dispatching %s traffic onto impl.", adaptorName, iface.Name)
	b.Linef("func New%s(impl %s) *%s {", adaptorName, itfName, adaptorName)
	b.Indent()
	b.Linef("return &%s{impl: impl}", adaptorName)
	b.Dedent()
	b.Line("}")
	b.Blank()
	b.Linef("// InterfaceName returns the D-Bus interface name this adaptor serves.")
	b.Linef("func (a *%s) InterfaceName() string { return %q }", adaptorName, iface.Name)
}

func generateHandleMethodCall(b *codegen.Builder, iface *introspect.Interface, adaptorName string) error {
	b.Linef("// HandleMethodCall demarshals member's in-arguments from dec, invokes the")
	b.Linef("// matching method on the wrapped implementation, and marshals its")
	b.Linef("// out-arguments onto enc. It returns an error for an unrecognized member.")
	b.Linef("func (a *%s) HandleMethodCall(ctx context.Context, member string, dec *fragments.Decoder, enc *fragments.Encoder) error {", adaptorName)
	b.Indent()
	b.Line("switch member {")
	for i := range iface.Methods {
		m := &iface.Methods[i]
		if err := generateMethodCase(b, iface, m); err != nil {
			return err
		}
	}
	b.Linef("default:")
	b.Indent()
	b.Linef("return fmt.Errorf(\"%s: unknown method %%q\", member)", iface.Name)
	b.Dedent()
	b.Line("}")
	b.Dedent()
	b.Line("}")
	return nil
}

func generateMethodCase(b *codegen.Builder, iface *introspect.Interface, m *introspect.Method) error {
	b.Linef("case %q:", m.Name)
	b.Indent()
	ctx := synth.NewContext()
	in := m.InputArguments()
	inVars := make([]string, len(in))
	for i, a := range in {
		dbt, err := parseArgType(a)
		if err != nil {
			return err
		}
		inVars[i] = a.Symbol
		b.Linef("var %s %s", a.Symbol, dbt.BaseType(dbustype.DirectionExtract))
		if zero := synth.ZeroValueExpr(&dbt); zero != "" {
			b.Linef("%s = %s", a.Symbol, zero)
		}
		if err := synth.Demarshal(b, ctx, &dbt, "dec", a.Symbol, genutil.PascalCase(m.Symbol)+"In"); err != nil {
			return err
		}
	}
	out := m.OutputArguments()
	outVars := make([]string, len(out))
	for i := range out {
		outVars[i] = fmt.Sprintf("out%d", i)
	}
	callArgs := append([]string{"ctx"}, inVars...)
	lhs := append(append([]string{}, outVars...), "err")
	b.Linef("%s := a.impl.%s(%s)", strings.Join(lhs, ", "), genutil.PascalCase(m.Symbol), strings.Join(callArgs, ", "))
	b.Block("if err != nil {", func() {
		b.Line("return err")
	}, "}")
	if m.NoReply {
		b.Linef("// %s is annotated NoReply: the caller does not wait for this return.", m.Name)
	}
	for i, a := range out {
		dbt, err := parseArgType(a)
		if err != nil {
			return err
		}
		if err := synth.Marshal(b, ctx, &dbt, "enc", outVars[i], genutil.PascalCase(m.Symbol)+"Out"); err != nil {
			return err
		}
	}
	b.Line("return nil")
	b.Dedent()
	return nil
}

func generatePropertyAccess(b *codegen.Builder, iface *introspect.Interface, adaptorName string, strictGetAll bool) error {
	b.Linef("// GetProperty reads one property by its D-Bus name.")
	b.Linef("func (a *%s) GetProperty(ctx context.Context, name string) (dbus.Variant, error) {", adaptorName)
	b.Indent()
	b.Line("switch name {")
	for i := range iface.Properties {
		p := &iface.Properties[i]
		getter, _ := propertyAccessorNames(p)
		if getter == "" {
			continue
		}
		b.Linef("case %q:", p.Name)
		b.Indent()
		b.Linef("v, err := a.impl.%s(ctx)", getter)
		b.Block("if err != nil {", func() {
			b.Line("return dbus.Variant{}, err")
		}, "}")
		b.Line("return dbus.Variant{Value: v}, nil")
		b.Dedent()
	}
	b.Linef("default:")
	b.Indent()
	b.Linef("return dbus.Variant{}, fmt.Errorf(\"%s: unknown property %%q\", name)", iface.Name)
	b.Dedent()
	b.Line("}")
	b.Dedent()
	b.Line("}")
	b.Blank()

	b.Linef("// SetProperty writes one property by its D-Bus name.")
	b.Linef("func (a *%s) SetProperty(ctx context.Context, name string, value dbus.Variant) error {", adaptorName)
	b.Indent()
	b.Line("switch name {")
	for i := range iface.Properties {
		p := &iface.Properties[i]
		_, setter := propertyAccessorNames(p)
		if setter == "" {
			continue
		}
		dbt, err := parsePropertyType(p)
		if err != nil {
			return err
		}
		b.Linef("case %q:", p.Name)
		b.Indent()
		b.Linef("v, ok := value.Value.(%s)", dbt.BaseType(dbustype.DirectionAppend))
		b.Block("if !ok {", func() {
			b.Linef("return fmt.Errorf(\"%s: property %%q has wrong type %%T\", name, value.Value)", iface.Name)
		}, "}")
		b.Linef("return a.impl.%s(ctx, v)", setter)
		b.Dedent()
	}
	b.Linef("default:")
	b.Indent()
	b.Linef("return fmt.Errorf(\"%s: unknown property %%q\", name)", iface.Name)
	b.Dedent()
	b.Line("}")
	b.Dedent()
	b.Line("}")
	b.Blank()

	propsName := genutil.PascalCase(iface.Symbol) + "Properties"
	b.Linef("// %s is the populated result of %s.GetAll: one field per readable", propsName, adaptorName)
	b.Linef("// property, plus a <Name>Present flag for callers that must tell a zero")
	b.Linef("// value from an absent one.")
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
		b.Linef("%s %s", pascal, dbt.BaseType(dbustype.DirectionAppend))
		b.Linef("%sPresent bool", pascal)
	}
	b.Dedent()
	b.Line("}")
	b.Blank()

	b.Linef("// GetAll reads every readable property. When strict is true, the first")
	b.Linef("// unreadable property aborts the call with its error; otherwise it is")
	b.Linef("// logged and left with <Name>Present false (the generator's default here")
	b.Linef("// is strict=%t unless the caller overrides it).", strictGetAll)
	b.Linef("func (a *%s) GetAll(ctx context.Context, strict bool, log *logrus.Logger) (*%s, error) {", adaptorName, propsName)
	b.Indent()
	b.Block("if log == nil {", func() {
		b.Line("log = logrus.StandardLogger()")
	}, "}")
	b.Linef("out := &%s{}", propsName)
	for i := range iface.Properties {
		p := &iface.Properties[i]
		getter, _ := propertyAccessorNames(p)
		if getter == "" {
			continue
		}
		pascal := genutil.PascalCase(p.Symbol)
		b.Linef("if v, err := a.impl.%s(ctx); err != nil {", getter)
		b.Indent()
		b.Block("if strict {", func() {
			b.Line("return nil, err")
		}, "}")
		b.Linef("log.Warnf(%q, err)", "GetAll: "+p.Name+" unreadable: %v")
		b.Dedent()
		b.Linef("} else {")
		b.Indent()
		b.Linef("out.%s = v", pascal)
		b.Linef("out.%sPresent = true", pascal)
		b.Dedent()
		b.Line("}")
	}
	b.Line("return out, nil")
	b.Dedent()
	b.Line("}")
	return nil
}

func generateEmitSignal(b *codegen.Builder, iface *introspect.Interface, sig *introspect.Signal, adaptorName string) error {
	name := genutil.PascalCase(sig.Symbol)
	args, err := resolveArgs(sig.Arguments, dbustype.DirectionAppend)
	if err != nil {
		return err
	}
	b.Linef("// Emit%s sends the %s signal on iface's connection.", name, sig.Name)
	b.Linef("func (a *%s) Emit%s(ctx context.Context, emitter dbusrt.Emitter%s) error {", adaptorName, name, prefixedParams(args))
	b.Indent()
	b.Line("enc := &fragments.Encoder{Order: fragments.NativeEndian, Mapper: dbusrt.ValueMapper}")
	ctx := synth.NewContext()
	for i, p := range args {
		dbt := p.dbt
		if err := synth.Marshal(b, ctx, &dbt, "enc", p.Name, name+fmt.Sprintf("Arg%d", i)); err != nil {
			return err
		}
	}
	b.Linef("return emitter.Emit(ctx, %q, %q, enc)", iface.Name, sig.Name)
	b.Dedent()
	b.Line("}")
	return nil
}

func prefixedParams(args []methodParam) string {
	if len(args) == 0 {
		return ""
	}
	var parts []string
	for _, a := range args {
		parts = append(parts, a.Name+" "+a.Type)
	}
	return ", " + strings.Join(parts, ", ")
}
