// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dbustype_test

import (
	"testing"

	"chromiumos/dbusbindings/dbustype"
)

func TestNewSignatureCursorFailures(t *testing.T) {
	cases := []string{
		"a{sv}Garbage", "", "a", "a{}", "a{s}", "a{sa}i", "a{s", "al", "(l)", "(i",
		"a{s{i}}", "a{sa{i}u}", "a{a{u}", "a}i{",
	}
	for _, tc := range cases {
		if _, err := dbustype.NewSignatureCursor(tc); err == nil {
			t.Errorf("NewSignatureCursor(%q) succeeded, want error", tc)
		}
	}
}

func TestNewSignatureCursorDepthLimit(t *testing.T) {
	deep := ""
	for i := 0; i < dbustype.MaxNestingDepth+2; i++ {
		deep += "a"
	}
	deep += "i"
	if _, err := dbustype.NewSignatureCursor(deep); err == nil {
		t.Errorf("NewSignatureCursor(%q) succeeded, want depth error", deep)
	}

	ok := ""
	for i := 0; i < dbustype.MaxNestingDepth-1; i++ {
		ok += "a"
	}
	ok += "i"
	if _, err := dbustype.NewSignatureCursor(ok); err != nil {
		t.Errorf("NewSignatureCursor(%q) failed: %v", ok, err)
	}
}

func TestSignatureCursorWalk(t *testing.T) {
	c, err := dbustype.NewSignatureCursor("si(ib)")
	if err != nil {
		t.Fatalf("NewSignatureCursor failed: %v", err)
	}
	if got := c.CurrentType(); got != dbustype.BasicString {
		t.Errorf("CurrentType = %v, want BasicString", got)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got := c.CurrentType(); got != dbustype.BasicInt32 {
		t.Errorf("CurrentType = %v, want BasicInt32", got)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got := c.CurrentType(); got != dbustype.Struct {
		t.Errorf("CurrentType = %v, want Struct", got)
	}
	child, err := c.Recurse()
	if err != nil {
		t.Fatalf("Recurse failed: %v", err)
	}
	if got := child.CurrentType(); got != dbustype.BasicInt32 {
		t.Errorf("child CurrentType = %v, want BasicInt32", got)
	}
	if err := child.Advance(); err != nil {
		t.Fatalf("child Advance failed: %v", err)
	}
	if got := child.CurrentType(); got != dbustype.BasicBool {
		t.Errorf("child CurrentType = %v, want BasicBool", got)
	}
	if err := child.Advance(); err != nil {
		t.Fatalf("child Advance failed: %v", err)
	}
	if got := child.CurrentType(); got != dbustype.End {
		t.Errorf("child CurrentType = %v, want End", got)
	}
	if err := c.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got := c.CurrentType(); got != dbustype.End {
		t.Errorf("CurrentType = %v, want End", got)
	}
}

func TestSignatureCursorDictEntry(t *testing.T) {
	c, err := dbustype.NewSignatureCursor("a{su}")
	if err != nil {
		t.Fatalf("NewSignatureCursor failed: %v", err)
	}
	if !c.IsDictEntry() {
		t.Fatalf("IsDictEntry = false, want true")
	}
	if got := c.DictKeyType(); got != dbustype.BasicString {
		t.Errorf("DictKeyType = %v, want BasicString", got)
	}
	child, err := c.Recurse()
	if err != nil {
		t.Fatalf("Recurse failed: %v", err)
	}
	if got := child.CurrentType(); got != dbustype.BasicString {
		t.Errorf("child CurrentType = %v, want BasicString (key)", got)
	}
	if err := child.Advance(); err != nil {
		t.Fatalf("child Advance failed: %v", err)
	}
	if got := child.CurrentType(); got != dbustype.BasicUint32 {
		t.Errorf("child CurrentType = %v, want BasicUint32 (value)", got)
	}
}

func TestSignatureOf(t *testing.T) {
	c, err := dbustype.NewSignatureCursor("a(si)s")
	if err != nil {
		t.Fatalf("NewSignatureCursor failed: %v", err)
	}
	got, err := c.Signature()
	if err != nil {
		t.Fatalf("Signature failed: %v", err)
	}
	if want := "a(si)"; got != want {
		t.Errorf("Signature = %q, want %q", got, want)
	}
}
