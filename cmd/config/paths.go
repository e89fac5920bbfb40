// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
)

// Version is overridden at build time with
// -ldflags "-X github.com/eminwux/qelaunch/cmd/config.Version=...".
//
//nolint:gochecknoglobals // set by the linker
var Version = "v0.1.0-dev"

// DefaultConfigFile returns $XDG_CONFIG_HOME/qelaunch/config.yaml, falling
// back to the platform user config directory.
func DefaultConfigFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			dir = filepath.Join(".", ".config")
		}
	}
	return filepath.Join(dir, "qelaunch", "config.yaml")
}
