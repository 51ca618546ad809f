package introspect

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"chromiumos/dbusbindings/dbustype"
	"chromiumos/dbusbindings/generate/genutil"
)

// ParseError is the error kind returned by Parse: a parse or semantic
// failure tagged with the offending location, per spec.md §7.
type ParseError struct {
	Filename string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %v", e.Filename, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// lineTracker wraps an io.Reader, recording the byte offset of every
// newline it sees, so a later byte offset reported by xml.Decoder can be
// translated back into a (line, column) pair. encoding/xml is the XML
// tokenizer assumed out-of-scope by spec.md §1; InputOffset() only exposes
// a byte position, so this thin wrapper supplies the rest.
type lineTracker struct {
	r       io.Reader
	nlAt    []int64
	pos     int64
}

func (t *lineTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == '\n' {
			t.nlAt = append(t.nlAt, t.pos+int64(i))
		}
	}
	t.pos += int64(n)
	return n, err
}

func (t *lineTracker) lineCol(offset int64) (int, int) {
	line := 1
	lastNL := int64(-1)
	for _, nl := range t.nlAt {
		if nl >= offset {
			break
		}
		line++
		lastNL = nl
	}
	return line, int(offset - lastNL)
}

// frame is one entry on the Ingest stack (spec.md §4.6): the element
// currently being built, plus a pointer back to the slot it will be
// appended into when its end tag closes.
type frame struct {
	tag      string
	iface    *Interface
	method   *Method
	signal   *Signal
	property *Property
	arg      *Argument
}

// Parse reconstructs the interface tree described by the introspection XML
// read from r. filename is used only to annotate errors. log receives
// non-fatal diagnostics for unknown tags/annotations (spec.md §7); a nil
// logger is replaced with one that discards output.
func Parse(filename string, r io.Reader, log *logrus.Logger) (*Node, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	lt := &lineTracker{r: r}
	dec := xml.NewDecoder(lt)

	errAt := func(err error) error {
		line, col := lt.lineCol(dec.InputOffset())
		return &ParseError{Filename: filename, Line: line, Column: col, Err: err}
	}

	var node *Node
	var stack []*frame

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errAt(errors.Wrap(err, "xml"))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if p := top(); p != nil && p.tag == "ignored" {
				stack = append(stack, &frame{tag: "ignored"})
				continue
			}
			switch t.Name.Local {
			case "node":
				if node != nil {
					return nil, errAt(errors.New("multiple <node> elements"))
				}
				n := &Node{Path: attrOf(t, "name")}
				if n.Path != "" && !isValidObjectPath(n.Path) {
					return nil, errAt(errors.Wrapf(ErrInvalidName, "object path %q", n.Path))
				}
				node = n
				stack = append(stack, &frame{tag: "node"})

			case "interface":
				name := attrOf(t, "name")
				if name == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "interface requires name"))
				}
				if !isValidInterfaceName(name) {
					return nil, errAt(errors.Wrapf(ErrInvalidName, "interface name %q", name))
				}
				iface := &Interface{Name: name, Symbol: defaultSymbol(genutil.LastNamePart(name))}
				stack = append(stack, &frame{tag: "interface", iface: iface})

			case "method":
				name := attrOf(t, "name")
				if name == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "method requires name"))
				}
				p := top()
				if p == nil || p.tag != "interface" {
					return nil, errAt(errors.New("<method> outside <interface>"))
				}
				m := &Method{Name: name, Symbol: defaultSymbol(name)}
				stack = append(stack, &frame{tag: "method", method: m})

			case "signal":
				name := attrOf(t, "name")
				if name == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "signal requires name"))
				}
				p := top()
				if p == nil || p.tag != "interface" {
					return nil, errAt(errors.New("<signal> outside <interface>"))
				}
				s := &Signal{Name: name, Symbol: defaultSymbol(name)}
				stack = append(stack, &frame{tag: "signal", signal: s})

			case "property":
				name := attrOf(t, "name")
				if name == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "property requires name"))
				}
				sig := attrOf(t, "type")
				if sig == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "property requires type"))
				}
				if _, err := dbustype.Parse(sig); err != nil {
					return nil, errAt(errors.Wrapf(ErrInvalidSignature, "property %q: %v", name, err))
				}
				p := top()
				if p == nil || p.tag != "interface" {
					return nil, errAt(errors.New("<property> outside <interface>"))
				}
				access, err := parseAccess(attrOf(t, "access"))
				if err != nil {
					return nil, errAt(err)
				}
				prop := &Property{Name: name, Symbol: defaultSymbol(name), Signature: sig, Access: access}
				stack = append(stack, &frame{tag: "property", property: prop})

			case "arg":
				sig := attrOf(t, "type")
				if sig == "" {
					return nil, errAt(errors.Wrap(ErrMissingAttribute, "arg requires type"))
				}
				if _, err := dbustype.Parse(sig); err != nil {
					return nil, errAt(errors.Wrapf(ErrInvalidSignature, "arg: %v", err))
				}
				p := top()
				if p == nil || (p.tag != "method" && p.tag != "signal") {
					return nil, errAt(errors.New("<arg> outside <method>/<signal>"))
				}
				dirAttr := attrOf(t, "direction")
				var dir Direction
				switch p.tag {
				case "method":
					if dirAttr == "out" {
						dir = DirectionOut
					} else {
						dir = DirectionIn
					}
				case "signal":
					dir = DirectionOut
				}
				name := attrOf(t, "name")
				a := &Argument{Name: name, Signature: sig, Direction: dir}
				if name != "" {
					a.Symbol = defaultSymbol(name)
				}
				stack = append(stack, &frame{tag: "arg", arg: a})

			case "annotation":
				name := attrOf(t, "name")
				val := attrOf(t, "value")
				if err := applyAnnotation(top(), name, val, log); err != nil {
					return nil, errAt(err)
				}
				stack = append(stack, &frame{tag: "annotation"})

			default:
				log.Warnf("unexpected tag <%s>, ignoring subtree", t.Name.Local)
				stack = append(stack, &frame{tag: "ignored"})
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errAt(errors.Errorf("unmatched end tag </%s>", t.Name.Local))
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := top()

			switch closed.tag {
			case "node":
				// Nothing further: node is already the tree root.
			case "interface":
				if err := checkDuplicateSymbols(closed.iface); err != nil {
					return nil, errAt(err)
				}
				node.Interfaces = append(node.Interfaces, *closed.iface)
			case "method":
				parent.iface.Methods = append(parent.iface.Methods, *closed.method)
			case "signal":
				parent.iface.Signals = append(parent.iface.Signals, *closed.signal)
			case "property":
				parent.iface.Properties = append(parent.iface.Properties, *closed.property)
			case "arg":
				switch parent.tag {
				case "method":
					parent.method.Arguments = append(parent.method.Arguments, *closed.arg)
				case "signal":
					parent.signal.Arguments = append(parent.signal.Arguments, *closed.arg)
				}
			case "annotation", "ignored":
				// Absorbed; nothing to attach.
			}
		}
	}

	if node == nil {
		return nil, &ParseError{Filename: filename, Err: errors.New("document has no <node> element")}
	}
	return node, nil
}

func attrOf(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseAccess(s string) (Access, error) {
	switch s {
	case "read":
		return AccessRead, nil
	case "write":
		return AccessWrite, nil
	case "readwrite":
		return AccessReadWrite, nil
	default:
		return 0, errors.Wrapf(ErrIllegalAnnotation, "property access %q", s)
	}
}

// applyAnnotation mutates the element on the top of the stack per the
// table in spec.md §6. Unknown annotation names are logged as a non-fatal
// diagnostic per spec.md §7's UnknownAnnotation category rather than
// aborting the parse; this resolves the apparent tension with §4.6's
// "unknown annotations are a parse error" in favor of §7, the document's
// authoritative error-handling section (recorded in DESIGN.md).
func applyAnnotation(f *frame, name, value string, log *logrus.Logger) error {
	if f == nil {
		return errors.New("<annotation> at top level")
	}
	switch name {
	case "org.freedesktop.DBus.Deprecated":
		switch f.tag {
		case "interface":
			f.iface.Deprecated = true
		case "method":
			f.method.Deprecated = true
		case "signal":
			f.signal.Deprecated = true
		case "property":
			f.property.Deprecated = true
		default:
			return errors.Wrapf(ErrIllegalAnnotation, "%s not valid on %s", name, f.tag)
		}
	case "org.freedesktop.DBus.Method.NoReply":
		if f.tag != "method" {
			return errors.Wrapf(ErrIllegalAnnotation, "%s only valid on <method>", name)
		}
		f.method.NoReply = true
	case "com.netsplit.Nih.Method.Async":
		if f.tag != "method" {
			return errors.Wrapf(ErrIllegalAnnotation, "%s only valid on <method>", name)
		}
		f.method.Async = true
	case "com.netsplit.Nih.Symbol":
		if !genutil.IsValidSymbol(value) {
			return errors.Wrapf(ErrIllegalAnnotation, "%s: %q is not a valid symbol", name, value)
		}
		switch f.tag {
		case "interface":
			f.iface.Symbol = value
		case "method":
			f.method.Symbol = value
		case "signal":
			f.signal.Symbol = value
		case "property":
			f.property.Symbol = value
		case "arg":
			f.arg.Symbol = value
		default:
			return errors.Wrapf(ErrIllegalAnnotation, "%s not valid on %s", name, f.tag)
		}
	default:
		log.Warnf("unknown annotation %q, ignoring", name)
	}
	return nil
}
