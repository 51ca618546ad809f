// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package serviceconfig provides a way to configure generated bindings.
package serviceconfig

import (
	"encoding/json"
	"os"
)

// Config contains a way to configure binding generation.
type Config struct {
	// ServiceName is the D-Bus destination a generated proxy addresses its
	// calls to. If omitted, the caller must supply one some other way.
	ServiceName string `json:"service_name"`
	// StrictGetAll controls the default strict parameter a generated
	// adaptor's GetAll method logs in its own doc comment: true means the
	// generator's configured default aborts on the first unreadable
	// property, matching legacy behavior; false (the generator's own
	// default) means it skips and logs instead. A caller of the generated
	// method can always override this by passing its own strict argument.
	StrictGetAll bool `json:"strict_get_all"`
}

// Load reads and parses a file at path into Config.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
