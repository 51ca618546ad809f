package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const echoXML = `<node name="/com/example/Echo">
  <interface name="com.example.Echo">
    <method name="Ping">
      <arg name="text" type="s" direction="in"/>
      <arg name="reply" type="s" direction="out"/>
    </method>
  </interface>
</node>`

func writeTempXML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "echo.xml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing temp XML: %v", err)
	}
	return path
}

func runCapture(t *testing.T, args []string) (code int, stdout, stderr string) {
	t.Helper()
	dir := t.TempDir()
	outPath := filepath.Join(dir, "stdout")
	errPath := filepath.Join(dir, "stderr")
	outFile, err := os.Create(outPath)
	if err != nil {
		t.Fatalf("creating stdout capture: %v", err)
	}
	defer outFile.Close()
	errFile, err := os.Create(errPath)
	if err != nil {
		t.Fatalf("creating stderr capture: %v", err)
	}
	defer errFile.Close()

	code = run(args, outFile, errFile)

	outBytes, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading stdout capture: %v", err)
	}
	errBytes, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("reading stderr capture: %v", err)
	}
	return code, string(outBytes), string(errBytes)
}

func TestRunObjectModeSuccess(t *testing.T) {
	xmlPath := writeTempXML(t, echoXML)
	code, stdout, stderr := runCapture(t, []string{xmlPath})
	if code != exitOK {
		t.Fatalf("run = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "package echo") {
		t.Errorf("stdout missing package clause:\n%s", stdout)
	}
	if !strings.Contains(stdout, "EchoAdaptor") {
		t.Errorf("stdout missing generated adaptor type:\n%s", stdout)
	}
}

func TestRunProxyModeSuccess(t *testing.T) {
	xmlPath := writeTempXML(t, echoXML)
	code, stdout, _ := runCapture(t, []string{"--mode", "proxy", xmlPath})
	if code != exitOK {
		t.Fatalf("run = %d", code)
	}
	if !strings.Contains(stdout, "EchoProxy") {
		t.Errorf("stdout missing generated proxy type:\n%s", stdout)
	}
}

func TestRunWritesToOutputFile(t *testing.T) {
	xmlPath := writeTempXML(t, echoXML)
	outPath := filepath.Join(t.TempDir(), "echo_gen.go")
	code, _, stderr := runCapture(t, []string{"--output", outPath, xmlPath})
	if code != exitOK {
		t.Fatalf("run = %d, stderr = %s", code, stderr)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading generated output: %v", err)
	}
	if !strings.Contains(string(b), "package echo") {
		t.Errorf("output file missing package clause:\n%s", b)
	}
}

func TestRunInvalidModeIsUsageError(t *testing.T) {
	xmlPath := writeTempXML(t, echoXML)
	code, _, stderr := runCapture(t, []string{"--mode", "bogus", xmlPath})
	if code != exitUsage {
		t.Fatalf("run = %d, want %d; stderr = %s", code, exitUsage, stderr)
	}
}

func TestRunMissingFileIsUsageError(t *testing.T) {
	code, _, _ := runCapture(t, []string{filepath.Join(t.TempDir(), "missing.xml")})
	if code != exitUsage {
		t.Errorf("run = %d, want %d", code, exitUsage)
	}
}

func TestRunMalformedXMLIsParseError(t *testing.T) {
	xmlPath := writeTempXML(t, `<node><interface name="com.example.Echo">`)
	code, _, _ := runCapture(t, []string{xmlPath})
	if code != exitParse {
		t.Errorf("run = %d, want %d", code, exitParse)
	}
}

func TestRunDuplicateSymbolIsSemanticError(t *testing.T) {
	const dup = `<node name="/com/example/Echo">
  <interface name="com.example.Echo">
    <method name="Ping"/>
    <method name="ping"/>
  </interface>
</node>`
	xmlPath := writeTempXML(t, dup)
	code, _, stderr := runCapture(t, []string{xmlPath})
	if code != exitSemantic {
		t.Errorf("run = %d, want %d; stderr = %s", code, exitSemantic, stderr)
	}
}

func TestDefaultPrefixStripsNonIdentChars(t *testing.T) {
	got := defaultPrefix("/tmp/org.example.Foo-Bar.xml")
	if got != "org_example_Foo_Bar" {
		t.Errorf("defaultPrefix = %q, want org_example_Foo_Bar", got)
	}
}
