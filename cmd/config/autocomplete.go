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
	"strings"

	"github.com/spf13/cobra"
)

// EngineNames are the accepted values of --engine.
//
//nolint:gochecknoglobals // read-only table
var EngineNames = []string{"auto", "docker", "podman", "docker-api", "containerd"}

// OutputFormats are the accepted values of plan --output.
//
//nolint:gochecknoglobals // read-only table
var OutputFormats = []string{"yaml", "json"}

func completeFrom(values []string, toComplete string) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if toComplete == "" || strings.HasPrefix(v, toComplete) {
			names = append(names, v)
		}
	}
	return names
}

// CompleteEngineNames provides shell completion for the --engine flag.
func CompleteEngineNames(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(EngineNames, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// CompleteOutputFormats provides shell completion for the --output flag.
func CompleteOutputFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(OutputFormats, toComplete), cobra.ShellCompDirectiveNoFileComp
}
