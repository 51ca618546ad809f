// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adaptor

import (
	"testing"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/introspect"

	"github.com/google/go-cmp/cmp"
)

func TestResolveArgsExtract(t *testing.T) {
	args := []introspect.Argument{
		{Name: "x", Symbol: "x", Signature: "i", Direction: introspect.DirectionIn},
		{Name: "y", Symbol: "y", Signature: "as", Direction: introspect.DirectionIn},
	}
	got, err := resolveArgs(args, dbustype.DirectionExtract)
	if err != nil {
		t.Fatalf("resolveArgs got error, want nil: %v", err)
	}
	want := []string{"int32", "[]string"}
	var gotTypes []string
	for _, p := range got {
		gotTypes = append(gotTypes, p.Type)
	}
	if diff := cmp.Diff(gotTypes, want); diff != "" {
		t.Errorf("resolveArgs types diff (-got +want):\n%s", diff)
	}
}

func TestResolveArgsInvalidSignature(t *testing.T) {
	args := []introspect.Argument{{Name: "bad", Symbol: "bad", Signature: "("}}
	if _, err := resolveArgs(args, dbustype.DirectionExtract); err == nil {
		t.Error("resolveArgs with malformed signature succeeded, want error")
	}
}

func TestInterfaceMethodSignature(t *testing.T) {
	m := &introspect.Method{
		Name:   "Frobnicate",
		Symbol: "Frobnicate",
		Arguments: []introspect.Argument{
			{Name: "count", Symbol: "count", Signature: "i", Direction: introspect.DirectionIn},
			{Name: "result", Symbol: "result", Signature: "s", Direction: introspect.DirectionOut},
		},
	}
	params, rets, err := interfaceMethodSignature(m)
	if err != nil {
		t.Fatalf("interfaceMethodSignature got error, want nil: %v", err)
	}
	if len(params) != 1 || params[0].Type != "int32" {
		t.Errorf("params = %+v, want one int32 param", params)
	}
	if len(rets) != 1 || rets[0].Type != "string" {
		t.Errorf("rets = %+v, want one string ret", rets)
	}
}

func TestJoinParams(t *testing.T) {
	params := []methodParam{{Name: "a", Type: "int32"}, {Name: "b", Type: "string"}}
	got := joinParams("ctx context.Context", params)
	want := "ctx context.Context, a int32, b string"
	if got != want {
		t.Errorf("joinParams = %q, want %q", got, want)
	}
	if got := joinParams("", nil); got != "" {
		t.Errorf("joinParams with no prefix or params = %q, want empty", got)
	}
}

func TestJoinRetTypes(t *testing.T) {
	if got, want := joinRetTypes(nil, "error"), "error"; got != want {
		t.Errorf("joinRetTypes = %q, want %q", got, want)
	}
	rets := []methodParam{{Type: "int32"}, {Type: "string"}}
	if got, want := joinRetTypes(rets, "error"), "(int32, string, error)"; got != want {
		t.Errorf("joinRetTypes = %q, want %q", got, want)
	}
}

func TestPropertyAccessorNames(t *testing.T) {
	cases := []struct {
		access     introspect.Access
		wantGetter string
		wantSetter string
	}{
		{introspect.AccessRead, "GetCount", ""},
		{introspect.AccessWrite, "", "SetCount"},
		{introspect.AccessReadWrite, "GetCount", "SetCount"},
	}
	for _, tc := range cases {
		p := &introspect.Property{Name: "Count", Symbol: "Count", Signature: "i", Access: tc.access}
		getter, setter := propertyAccessorNames(p)
		if getter != tc.wantGetter || setter != tc.wantSetter {
			t.Errorf("access %v: got (%q, %q), want (%q, %q)", tc.access, getter, setter, tc.wantGetter, tc.wantSetter)
		}
	}
}
