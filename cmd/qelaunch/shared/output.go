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

package shared

import (
	"encoding/json"
	"fmt"

	"github.com/eminwux/qelaunch/cmd/config"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// PrintJSONOrYAML prints data in JSON or YAML format.
// The data parameter should be a struct that can be marshaled.
func PrintJSONOrYAML(cmd *cobra.Command, data any, format string) error {
	var b []byte
	var err error

	switch format {
	case "json":
		b, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		b = append(b, '\n')
	case "yaml", "":
		b, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown output format %q (use yaml or json)", errdefs.ErrInvalidRequest, format)
	}

	_, err = cmd.OutOrStdout().Write(b)
	return err
}

// AddOutputFlag registers -o/--output on cmd.
func AddOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json)")
	_ = cmd.RegisterFlagCompletionFunc("output", config.CompleteOutputFormats)
}

// OutputFormat returns --output when given, otherwise QELAUNCH_PLAN_OUTPUT or
// the config file value.
func OutputFormat(cmd *cobra.Command) string {
	if flag := cmd.Flags().Lookup("output"); flag != nil && flag.Changed {
		return flag.Value.String()
	}
	return config.QELAUNCH_PLAN_OUTPUT.ValueOrDefault()
}
