package introspect_test

import (
	"errors"
	"strings"
	"testing"

	"chromiumos/dbusbindings/introspect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseBasic(t *testing.T) {
	const xml = `<node name="/com/example/Echo">
  <interface name="com.example.Echo">
    <method name="Ping">
      <arg name="text" type="s" direction="in"/>
      <arg name="reply" type="s" direction="out"/>
    </method>
    <property name="birthday" type="(iii)" access="readwrite"/>
    <signal name="Pinged">
      <arg name="text" type="s"/>
    </signal>
  </interface>
</node>`

	n, err := introspect.Parse("echo.xml", strings.NewReader(xml), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n.Path != "/com/example/Echo" {
		t.Errorf("Path = %q, want /com/example/Echo", n.Path)
	}
	if len(n.Interfaces) != 1 {
		t.Fatalf("got %d interfaces, want 1", len(n.Interfaces))
	}
	iface := n.Interfaces[0]
	if iface.Name != "com.example.Echo" {
		t.Errorf("interface name = %q", iface.Name)
	}
	if len(iface.Methods) != 1 || iface.Methods[0].Symbol != "ping" {
		t.Fatalf("unexpected methods: %+v", iface.Methods)
	}
	m := iface.Methods[0]
	if diff := cmp.Diff(m.InputArguments(), []introspect.Argument{
		{Name: "text", Symbol: "text", Signature: "s", Direction: introspect.DirectionIn},
	}, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("in-args diff (-got +want):\n%s", diff)
	}
	if len(iface.Properties) != 1 || iface.Properties[0].Access != introspect.AccessReadWrite {
		t.Fatalf("unexpected properties: %+v", iface.Properties)
	}
	if len(iface.Signals) != 1 || iface.Signals[0].Arguments[0].Direction != introspect.DirectionOut {
		t.Fatalf("unexpected signals: %+v", iface.Signals)
	}
}

func TestParseAnnotations(t *testing.T) {
	const xmlDoc = `<node>
  <interface name="com.example.Echo">
    <method name="Ping">
      <annotation name="org.freedesktop.DBus.Deprecated" value="true"/>
      <annotation name="org.freedesktop.DBus.Method.NoReply" value="true"/>
      <annotation name="com.netsplit.Nih.Symbol" value="my_ping"/>
    </method>
    <method name="Async">
      <annotation name="com.netsplit.Nih.Method.Async" value="true"/>
    </method>
  </interface>
</node>`
	n, err := introspect.Parse("a.xml", strings.NewReader(xmlDoc), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	m := n.Interfaces[0].Methods[0]
	if !m.Deprecated || !m.NoReply || m.Symbol != "my_ping" {
		t.Errorf("annotations not applied: %+v", m)
	}
	if !n.Interfaces[0].Methods[1].Async {
		t.Errorf("Async annotation not applied")
	}
}

func TestParseIllegalAnnotationTarget(t *testing.T) {
	const xmlDoc = `<node>
  <interface name="com.example.Echo">
    <signal name="Pinged">
      <annotation name="org.freedesktop.DBus.Method.NoReply" value="true"/>
    </signal>
  </interface>
</node>`
	_, err := introspect.Parse("a.xml", strings.NewReader(xmlDoc), nil)
	if err == nil {
		t.Fatal("expected error for NoReply on a signal")
	}
	if !errors.Is(err, introspect.ErrIllegalAnnotation) {
		t.Errorf("error = %v, want wrapping ErrIllegalAnnotation", err)
	}
}

func TestParseUnknownTagIgnored(t *testing.T) {
	const xmlDoc = `<node>
  <interface name="com.example.Echo">
    <method name="Ping">
      <something-unrecognized><arg name="x" type="i"/></something-unrecognized>
    </method>
  </interface>
</node>`
	n, err := introspect.Parse("a.xml", strings.NewReader(xmlDoc), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(n.Interfaces[0].Methods[0].Arguments) != 0 {
		t.Errorf("args from an ignored subtree should not be absorbed into the method")
	}
}

func TestParseDuplicateSymbol(t *testing.T) {
	const xmlDoc = `<node>
  <interface name="com.example.Echo">
    <method name="GetAll">
      <annotation name="com.netsplit.Nih.Symbol" value="dup"/>
    </method>
    <method name="Getall">
      <annotation name="com.netsplit.Nih.Symbol" value="dup"/>
    </method>
  </interface>
</node>`
	_, err := introspect.Parse("a.xml", strings.NewReader(xmlDoc), nil)
	if err == nil {
		t.Fatal("expected DuplicateSymbol error")
	}
	if !errors.Is(err, introspect.ErrDuplicateSymbol) {
		t.Errorf("error = %v, want wrapping ErrDuplicateSymbol", err)
	}
	if !strings.Contains(err.Error(), "GetAll") || !strings.Contains(err.Error(), "Getall") {
		t.Errorf("error message should name both offending elements: %v", err)
	}
}

func TestParseInvalidSignature(t *testing.T) {
	const xmlDoc = `<node>
  <interface name="com.example.Echo">
    <property name="bad" type="(" access="read"/>
  </interface>
</node>`
	_, err := introspect.Parse("a.xml", strings.NewReader(xmlDoc), nil)
	if err == nil {
		t.Fatal("expected InvalidSignature error")
	}
	if !errors.Is(err, introspect.ErrInvalidSignature) {
		t.Errorf("error = %v, want wrapping ErrInvalidSignature", err)
	}
	var pe *introspect.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Filename != "a.xml" || pe.Line == 0 {
		t.Errorf("ParseError missing location: %+v", pe)
	}
}
