// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command gen is the driver: it reads one D-Bus introspection XML file,
// synthesizes Go bindings for it, and writes the result to a file or
// stdout.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chromiumos/dbusbindings/generate/emit"
	"chromiumos/dbusbindings/introspect"
	"chromiumos/dbusbindings/serviceconfig"
)

// Exit codes, per the driver's external contract: 0 success, 1 usage
// error, 2 XML parse error, 3 semantic error (duplicate symbol, illegal
// annotation, invalid signature).
const (
	exitOK = iota
	exitUsage
	exitParse
	exitSemantic
)

var nonIdentRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	var (
		mode          string
		prefix        string
		output        string
		destination   string
		serviceConfig string
		strictGetAll  bool
	)

	code := exitOK
	cmd := &cobra.Command{
		Use:           "gen <file.xml>",
		Short:         "Generate Go D-Bus bindings from introspection XML",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, xmlArgs []string) error {
			log := logrus.New()
			log.SetOutput(stderr)

			m, err := parseMode(mode)
			if err != nil {
				code = exitUsage
				return err
			}

			path := xmlArgs[0]
			if prefix == "" {
				prefix = defaultPrefix(path)
			}

			sc := serviceconfig.Config{StrictGetAll: strictGetAll}
			if serviceConfig != "" {
				loaded, err := serviceconfig.Load(serviceConfig)
				if err != nil {
					code = exitUsage
					return fmt.Errorf("reading service config: %w", err)
				}
				sc = *loaded
				if c.Flags().Changed("strict-get-all") {
					sc.StrictGetAll = strictGetAll
				}
			}
			if destination == "" {
				destination = sc.ServiceName
			}

			f, err := os.Open(path)
			if err != nil {
				code = exitUsage
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			node, err := introspect.Parse(path, f, log)
			if err != nil {
				code = classifyParseError(err)
				return err
			}

			generated, err := emit.Node(node, emit.Options{
				PackageName:  prefix,
				Mode:         m,
				Destination:  destination,
				StrictGetAll: sc.StrictGetAll,
			})
			if err != nil {
				code = exitSemantic
				return err
			}

			if output == "" {
				_, err = stdout.Write(generated)
				return err
			}
			return os.WriteFile(output, generated, 0644)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "object", "generation mode: object or proxy")
	cmd.Flags().StringVar(&prefix, "prefix", "", "mangled identifier prepended to generated symbols (default: input file basename)")
	cmd.Flags().StringVar(&output, "output", "", "output file path (default: stdout)")
	cmd.Flags().StringVar(&destination, "destination", "", "D-Bus service name a proxy addresses (default: service config's service_name)")
	cmd.Flags().StringVar(&serviceConfig, "service-config", "", "path to a serviceconfig JSON file")
	cmd.Flags().BoolVar(&strictGetAll, "strict-get-all", false, "record strict=true as the default in the generated adaptor's GetAll doc comment (overrides the service config's strict_get_all)")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "gen:", err)
		if code == exitOK {
			code = exitUsage
		}
		return code
	}
	return code
}

func parseMode(s string) (emit.Mode, error) {
	switch s {
	case "object":
		return emit.ModeAdaptor, nil
	case "proxy":
		return emit.ModeProxy, nil
	default:
		return 0, fmt.Errorf("invalid --mode %q, want object or proxy", s)
	}
}

func defaultPrefix(xmlPath string) string {
	base := filepath.Base(xmlPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return nonIdentRe.ReplaceAllString(base, "_")
}

// classifyParseError distinguishes an XML tokenizing failure from a
// semantic one (invalid name, duplicate symbol, illegal annotation): both
// arrive wrapped in an *introspect.ParseError, but only the latter carries
// one of introspect's sentinel error kinds.
func classifyParseError(err error) int {
	for _, sentinel := range []error{
		introspect.ErrInvalidSignature,
		introspect.ErrInvalidName,
		introspect.ErrMissingAttribute,
		introspect.ErrIllegalAnnotation,
		introspect.ErrDuplicateSymbol,
	} {
		if errors.Is(err, sentinel) {
			return exitSemantic
		}
	}
	return exitParse
}
