// Package introspect holds the interface tree reconstructed from a D-Bus
// introspection XML document (spec.md §3) and the symbol-mangling and
// validation rules that govern it. The tree is built once by Parse and is
// immutable afterwards; Method/Signal/Property/Argument collections
// preserve XML document order, which callers must not reorder.
package introspect

import (
	"regexp"

	"github.com/pkg/errors"

	"chromiumos/dbusbindings/generate/genutil"
)

// Sentinel error kinds surfaced by Ingest, per spec.md §7. Use errors.Is to
// test a wrapped *ParseError against one of these.
var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidName       = errors.New("invalid name")
	ErrMissingAttribute  = errors.New("missing attribute")
	ErrIllegalAnnotation = errors.New("illegal annotation")
	ErrDuplicateSymbol   = errors.New("duplicate symbol")
)

// Direction distinguishes an argument flowing into a method call from one
// flowing out in the reply (or, for a signal, the only direction there is).
type Direction int

const (
	// DirectionIn is a method in-argument. It is also the default
	// direction assumed for an <arg> with no direction attribute on a
	// method.
	DirectionIn Direction = iota
	// DirectionOut is a method/signal out-argument, and the default for
	// a signal <arg>.
	DirectionOut
)

// Access is the read/write mode of a property.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessReadWrite
)

// Readable reports whether the property can be fetched via Get/GetAll.
func (a Access) Readable() bool { return a == AccessRead || a == AccessReadWrite }

// Writable reports whether the property can be set.
func (a Access) Writable() bool { return a == AccessWrite || a == AccessReadWrite }

// Argument is one typed parameter of a method or signal (spec.md §3).
type Argument struct {
	Name      string
	Symbol    string
	Signature string
	Direction Direction
}

// Method is one callable on an Interface (spec.md §3).
type Method struct {
	Name       string
	Symbol     string
	Deprecated bool
	NoReply    bool
	Async      bool
	Arguments  []Argument
}

// InputArguments returns m's In-direction arguments, in declared order.
func (m Method) InputArguments() []Argument { return filterArgs(m.Arguments, DirectionIn) }

// OutputArguments returns m's Out-direction arguments, in declared order.
func (m Method) OutputArguments() []Argument { return filterArgs(m.Arguments, DirectionOut) }

func filterArgs(args []Argument, dir Direction) []Argument {
	var out []Argument
	for _, a := range args {
		if a.Direction == dir {
			out = append(out, a)
		}
	}
	return out
}

// Signal is one emitted broadcast on an Interface. All of its arguments are
// implicitly Out.
type Signal struct {
	Name       string
	Symbol     string
	Deprecated bool
	Arguments  []Argument
}

// Property is one typed, gettable/settable attribute on an Interface.
type Property struct {
	Name       string
	Symbol     string
	Signature  string
	Access     Access
	Deprecated bool
}

// Interface is one named interface hosted on a Node.
type Interface struct {
	Name       string
	Symbol     string
	Deprecated bool
	Methods    []Method
	Signals    []Signal
	Properties []Property
}

// Node is one addressable D-Bus object path, the root of the tree Parse
// reconstructs.
type Node struct {
	Path       string
	Interfaces []Interface
}

var (
	objectPathRe    = regexp.MustCompile(`^/([A-Za-z0-9_]+(/[A-Za-z0-9_]+)*)?$`)
	interfaceNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

func isValidObjectPath(p string) bool {
	return objectPathRe.MatchString(p)
}

func isValidInterfaceName(n string) bool {
	return len(n) <= 255 && interfaceNameRe.MatchString(n)
}

// defaultSymbol mangles name into its default native symbol, per spec.md
// §3, used whenever an element carries no explicit Symbol annotation.
func defaultSymbol(name string) string {
	return genutil.MangleSymbol(name)
}

// checkDuplicateSymbols enforces spec.md §3's per-Interface invariant:
// within {methods}, within {signals}, and within {properties} each taken
// separately, the mangled symbol must be unique.
func checkDuplicateSymbols(iface *Interface) error {
	seen := map[string]string{}
	for _, m := range iface.Methods {
		if prev, ok := seen[m.Symbol]; ok {
			return errors.Wrapf(ErrDuplicateSymbol, "interface %s: methods %q and %q both mangle to symbol %q", iface.Name, prev, m.Name, m.Symbol)
		}
		seen[m.Symbol] = m.Name
	}
	seen = map[string]string{}
	for _, s := range iface.Signals {
		if prev, ok := seen[s.Symbol]; ok {
			return errors.Wrapf(ErrDuplicateSymbol, "interface %s: signals %q and %q both mangle to symbol %q", iface.Name, prev, s.Name, s.Symbol)
		}
		seen[s.Symbol] = s.Name
	}
	seen = map[string]string{}
	for _, p := range iface.Properties {
		if prev, ok := seen[p.Symbol]; ok {
			return errors.Wrapf(ErrDuplicateSymbol, "interface %s: properties %q and %q both mangle to symbol %q", iface.Name, prev, p.Name, p.Symbol)
		}
		seen[p.Symbol] = p.Name
	}
	return nil
}
