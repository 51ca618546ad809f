// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package proxy

import (
	"strings"
	"testing"

	"chromiumos/dbusbindings/generate/codegen"
)

func TestGenerateMockStruct(t *testing.T) {
	b := &codegen.Builder{}
	if err := GenerateMock(b, testNode()); err != nil {
		t.Fatalf("GenerateMock got error, want nil: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, "type TestProxyMock struct {") {
		t.Error("missing TestProxyMock declaration")
	}
	if !strings.Contains(out, "FrobnicateFunc func(ctx context.Context, count int32) (string, error)") {
		t.Error("missing FrobnicateFunc field")
	}
	if !strings.Contains(out, "PingFunc func(ctx context.Context) error") {
		t.Error("missing PingFunc field (NoReply)")
	}
	if !strings.Contains(out, "GetNameFunc func(ctx context.Context) (string, error)") {
		t.Error("missing GetNameFunc field")
	}
	if !strings.Contains(out, "SetNameFunc func(ctx context.Context, value string) error") {
		t.Error("missing SetNameFunc field")
	}
	if !strings.Contains(out, "GetAllPropertiesFunc func(ctx context.Context) (*TestProperties, error)") {
		t.Error("missing GetAllPropertiesFunc field")
	}
	if !strings.Contains(out, "ConnectChangedFunc func(ctx context.Context, handler func(value int32)) (cancel func(), err error)") {
		t.Error("missing ConnectChangedFunc field")
	}
}

func TestGenerateMockMethodsDelegateToFields(t *testing.T) {
	b := &codegen.Builder{}
	if err := GenerateMock(b, testNode()); err != nil {
		t.Fatalf("GenerateMock got error, want nil: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, "func (m *TestProxyMock) Frobnicate(ctx context.Context, count int32) (string, error) {") {
		t.Error("missing Frobnicate method on mock")
	}
	if !strings.Contains(out, "return m.FrobnicateFunc(ctx, count)") {
		t.Error("Frobnicate mock method should delegate to FrobnicateFunc")
	}
	if !strings.Contains(out, "func (m *TestProxyMock) Ping(ctx context.Context) error {") {
		t.Error("missing Ping method on mock")
	}
	if !strings.Contains(out, "return m.PingFunc(ctx)") {
		t.Error("Ping mock method should delegate to PingFunc")
	}
}
