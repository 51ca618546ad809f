// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package emit is the Interface & Node Emitter (spec.md §4.5): it combines
// the adaptor, proxy, and mock Builders' output for one introspected node
// into a single translation unit, computes the import block the generated
// code actually needs, and formats the result with go/format.
package emit

import (
	"fmt"
	"go/format"
	"strings"

	"chromiumos/dbusbindings/generate/adaptor"
	"chromiumos/dbusbindings/generate/codegen"
	"chromiumos/dbusbindings/generate/proxy"
	"chromiumos/dbusbindings/introspect"
)

// Mode selects which side(s) of an interface to emit.
type Mode int

const (
	// ModeAdaptor emits only the object (server) side.
	ModeAdaptor Mode = iota
	// ModeProxy emits only the client side.
	ModeProxy
	// ModeAll emits both the adaptor and proxy sides, plus a mock proxy
	// for each interface's test double.
	ModeAll
)

// Options configures one Node invocation.
type Options struct {
	// PackageName is the Go package clause of the generated file.
	PackageName string
	// Mode selects adaptor-only, proxy-only, or both-plus-mock output.
	Mode Mode
	// Destination is the D-Bus service name a generated proxy addresses
	// its calls to. Unused in ModeAdaptor.
	Destination string
	// StrictGetAll is the generator-configured default strict mode a
	// generated adaptor's GetAll doc comment records. Unused in ModeProxy.
	StrictGetAll bool
}

// Node renders node's interfaces per opts into one formatted Go source
// file, package clause and import block included.
func Node(node *introspect.Node, opts Options) ([]byte, error) {
	body := &codegen.Builder{}

	switch opts.Mode {
	case ModeAdaptor:
		if err := adaptor.Generate(body, node, opts.StrictGetAll); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
	case ModeProxy:
		if err := proxy.Generate(body, node, opts.Destination); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
	case ModeAll:
		if err := adaptor.Generate(body, node, opts.StrictGetAll); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
		body.Blank()
		if err := proxy.Generate(body, node, opts.Destination); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
		body.Blank()
		if err := proxy.GenerateMock(body, node); err != nil {
			return nil, fmt.Errorf("emit: %w", err)
		}
	default:
		return nil, fmt.Errorf("emit: unknown mode %v", opts.Mode)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "// Code generated by dbusbindings. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", opts.PackageName)
	writeImports(&out, node, opts.Mode)
	out.WriteString(body.String())
	out.WriteString("\n")

	formatted, err := format.Source([]byte(out.String()))
	if err != nil {
		return nil, fmt.Errorf("emit: formatting generated source: %w", err)
	}
	return formatted, nil
}

func writeImports(out *strings.Builder, node *introspect.Node, mode Mode) {
	hasProperties, hasSignals := false, false
	for _, iface := range node.Interfaces {
		if len(iface.Properties) > 0 {
			hasProperties = true
		}
		if len(iface.Signals) > 0 {
			hasSignals = true
		}
	}
	adaptorSide := mode == ModeAdaptor || mode == ModeAll
	proxySide := mode == ModeProxy || mode == ModeAll

	stdlib := []string{"context"}
	// HandleMethodCall's default case always formats an "unknown method"
	// error; a proxy only reaches for fmt on a property type mismatch.
	if adaptorSide || (proxySide && hasProperties) {
		stdlib = append(stdlib, "fmt")
	}
	if usesFloat(node) {
		stdlib = append(stdlib, "math")
	}
	if usesFD(node) {
		stdlib = append(stdlib, "os")
	}

	thirdParty := []string{`"github.com/danderson/dbus/fragments"`}
	if usesDbusPackageType(node) || hasProperties {
		thirdParty = append([]string{`"github.com/danderson/dbus"`}, thirdParty...)
	}
	if hasProperties && adaptorSide {
		thirdParty = append(thirdParty, `"github.com/sirupsen/logrus"`)
	}

	var local []string
	if proxySide || (adaptorSide && hasSignals) {
		local = append(local, `"chromiumos/dbusbindings/dbusrt"`)
	}

	out.WriteString("import (\n")
	for _, s := range stdlib {
		fmt.Fprintf(out, "\t%q\n", s)
	}
	if len(thirdParty) > 0 {
		out.WriteString("\n")
		for _, s := range thirdParty {
			fmt.Fprintf(out, "\t%s\n", s)
		}
	}
	if len(local) > 0 {
		out.WriteString("\n")
		for _, s := range local {
			fmt.Fprintf(out, "\t%s\n", s)
		}
	}
	out.WriteString(")\n\n")
}

// usesDbusPackageType reports whether any argument or property signature
// needs a type the github.com/danderson/dbus package itself defines
// (Variant, ObjectPath, Signature), as opposed to a plain Go builtin.
func usesDbusPackageType(node *introspect.Node) bool {
	return anySignature(node, func(sig string) bool { return strings.ContainsAny(sig, "vog") })
}

func usesFloat(node *introspect.Node) bool {
	return anySignature(node, func(sig string) bool { return strings.ContainsRune(sig, 'd') })
}

func usesFD(node *introspect.Node) bool {
	return anySignature(node, func(sig string) bool { return strings.ContainsRune(sig, 'h') })
}

func anySignature(node *introspect.Node, pred func(string) bool) bool {
	for _, iface := range node.Interfaces {
		for _, m := range iface.Methods {
			for _, a := range m.Arguments {
				if pred(a.Signature) {
					return true
				}
			}
		}
		for _, s := range iface.Signals {
			for _, a := range s.Arguments {
				if pred(a.Signature) {
					return true
				}
			}
		}
		for _, p := range iface.Properties {
			if pred(p.Signature) {
				return true
			}
		}
	}
	return false
}
