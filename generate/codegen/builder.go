// Package codegen provides the append-only, indentation-aware text builder
// the Synthesizer and Member Assemblers use to compose generated Go source
// (spec.md §9: "a structured emitter ... that owns an indentation depth").
package codegen

import (
	"fmt"
	"strings"
)

// Builder accumulates lines of Go source at a tracked indentation depth.
// The zero value is ready to use.
type Builder struct {
	lines  []string
	indent int
}

// Indent increases the indentation depth of subsequently written lines.
func (b *Builder) Indent() { b.indent++ }

// Dedent decreases the indentation depth. It is a no-op below zero.
func (b *Builder) Dedent() {
	if b.indent > 0 {
		b.indent--
	}
}

// Linef writes one formatted, indented line.
func (b *Builder) Linef(format string, args ...interface{}) {
	b.lines = append(b.lines, strings.Repeat("\t", b.indent)+fmt.Sprintf(format, args...))
}

// Line writes one indented line verbatim.
func (b *Builder) Line(s string) { b.Linef("%s", s) }

// Blank writes an empty line, ignoring the current indent.
func (b *Builder) Blank() { b.lines = append(b.lines, "") }

// Block writes an opening line, runs body at one deeper indent, then writes
// a closing line back at the original indent. It is the idiomatic way to
// emit `if err != nil { ... }`, `for ... { ... }`, and similar constructs
// without hand-tracking braces.
func (b *Builder) Block(open string, body func(), close string) {
	b.Line(open)
	b.Indent()
	body()
	b.Dedent()
	b.Line(close)
}

// Blockf is Block with a formatted opening line.
func (b *Builder) Blockf(openFormat string, args []interface{}, body func(), close string) {
	b.Linef(openFormat, args...)
	b.Indent()
	body()
	b.Dedent()
	b.Line(close)
}

// Merge splices another Builder's lines into this one at the current
// indentation depth, preserving their relative indentation. This is how a
// sub-block produced independently (e.g. by the Synthesizer) is composed
// into an enclosing Assembler's output.
func (b *Builder) Merge(other *Builder) {
	prefix := strings.Repeat("\t", b.indent)
	for _, l := range other.lines {
		if l == "" {
			b.lines = append(b.lines, "")
			continue
		}
		b.lines = append(b.lines, prefix+l)
	}
}

// String flattens the builder to its final byte output.
func (b *Builder) String() string {
	return strings.Join(b.lines, "\n")
}
