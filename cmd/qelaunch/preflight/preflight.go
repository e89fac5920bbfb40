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

package preflight

import (
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/spf13/cobra"
)

func NewPreflightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check the container engine and whether the workshop image is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := shared.RequestFromCmd(cmd)
			if err != nil {
				return err
			}

			l, closeFn, err := shared.LauncherFromCmd(cmd)
			defer shared.CloseQuietly(cmd, closeFn)
			if err != nil {
				return err
			}

			report, err := l.Preflight(req)
			if err != nil {
				return err
			}
			return shared.PrintJSONOrYAML(cmd, report, shared.OutputFormat(cmd))
		},
	}

	shared.AddOutputFlag(cmd)

	return cmd
}
