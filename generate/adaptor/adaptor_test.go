// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adaptor

import (
	"strings"
	"testing"

	"chromiumos/dbusbindings/generate/codegen"
	"chromiumos/dbusbindings/introspect"
)

func testNode() *introspect.Node {
	return &introspect.Node{
		Path: "/org/chromium/Test",
		Interfaces: []introspect.Interface{
			{
				Name:   "org.chromium.Test",
				Symbol: "Test",
				Methods: []introspect.Method{
					{
						Name:   "Frobnicate",
						Symbol: "Frobnicate",
						Arguments: []introspect.Argument{
							{Name: "count", Symbol: "count", Signature: "i", Direction: introspect.DirectionIn},
							{Name: "result", Symbol: "result", Signature: "s", Direction: introspect.DirectionOut},
						},
					},
					{
						Name:    "Ping",
						Symbol:  "Ping",
						NoReply: true,
					},
				},
				Properties: []introspect.Property{
					{Name: "Name", Symbol: "Name", Signature: "s", Access: introspect.AccessReadWrite},
				},
				Signals: []introspect.Signal{
					{
						Name:   "Changed",
						Symbol: "Changed",
						Arguments: []introspect.Argument{
							{Name: "value", Symbol: "value", Signature: "i", Direction: introspect.DirectionOut},
						},
					},
				},
			},
		},
	}
}

func generate(t *testing.T, node *introspect.Node, strictGetAll bool) string {
	t.Helper()
	b := &codegen.Builder{}
	if err := Generate(b, node, strictGetAll); err != nil {
		t.Fatalf("Generate got error, want nil: %v", err)
	}
	return b.String()
}

func TestGenerateInterfaceType(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, "type TestInterface interface {") {
		t.Error("missing TestInterface declaration")
	}
	if !strings.Contains(out, "Frobnicate(ctx context.Context, count int32) (string, error)") {
		t.Error("missing Frobnicate method signature")
	}
	if !strings.Contains(out, "GetName(ctx context.Context) (string, error)") {
		t.Error("missing GetName accessor")
	}
	if !strings.Contains(out, "SetName(ctx context.Context, value string) error") {
		t.Error("missing SetName accessor")
	}
}

func TestGenerateAdaptorDispatch(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, `case "Frobnicate":`) {
		t.Error("missing Frobnicate dispatch case")
	}
	if !strings.Contains(out, "a.impl.Frobnicate(ctx, count)") {
		t.Error("missing call into implementation")
	}
	if !strings.Contains(out, `return fmt.Errorf("org.chromium.Test: unknown method %q", member)`) {
		t.Error("missing default case for unknown method")
	}
}

func TestGenerateNoReplyMethodAnnotated(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, "Ping is annotated NoReply") {
		t.Error("missing NoReply comment for Ping")
	}
}

func TestGeneratePropertyAccessAndGetAll(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, "func (a *TestAdaptor) GetProperty(ctx context.Context, name string) (dbus.Variant, error) {") {
		t.Error("missing GetProperty")
	}
	if !strings.Contains(out, "func (a *TestAdaptor) SetProperty(ctx context.Context, name string, value dbus.Variant) error {") {
		t.Error("missing SetProperty")
	}
	if !strings.Contains(out, "type TestProperties struct {") {
		t.Error("missing TestProperties struct")
	}
	if !strings.Contains(out, "NamePresent bool") {
		t.Error("missing NamePresent field")
	}
	if !strings.Contains(out, "func (a *TestAdaptor) GetAll(ctx context.Context, strict bool, log *logrus.Logger) (*TestProperties, error) {") {
		t.Error("missing GetAll")
	}
	if !strings.Contains(out, "is strict=true unless the caller overrides it") {
		t.Error("GetAll doc comment should record the generator's configured default")
	}
}

func TestGenerateGetAllRelaxedDefault(t *testing.T) {
	out := generate(t, testNode(), false)
	if !strings.Contains(out, "is strict=false unless the caller overrides it") {
		t.Error("GetAll doc comment should record strict=false when configured relaxed")
	}
}

func TestGenerateEmitSignal(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, "func (a *TestAdaptor) EmitChanged(ctx context.Context, emitter dbusrt.Emitter, value int32) error {") {
		t.Error("missing EmitChanged signature")
	}
	if !strings.Contains(out, `emitter.Emit(ctx, "org.chromium.Test", "Changed", enc)`) {
		t.Error("missing emitter.Emit call")
	}
}

func TestGenerateUnknownPropertyFallthrough(t *testing.T) {
	out := generate(t, testNode(), true)
	if !strings.Contains(out, `return dbus.Variant{}, fmt.Errorf("org.chromium.Test: unknown property %q", name)`) {
		t.Error("missing unknown-property error in GetProperty")
	}
}
