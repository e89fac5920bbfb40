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

package cleanup

import (
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/spf13/cobra"
)

func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Stop and remove a leftover workshop container",
		Long: "Stop and remove the workshop container if one exists. A missing container is not an error; " +
			"other failures are reported as warnings.",
		Args: cobra.NoArgs,
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

			report := l.Cleanup(req.ContainerName)
			return shared.PrintJSONOrYAML(cmd, report, shared.OutputFormat(cmd))
		},
	}

	shared.AddOutputFlag(cmd)

	return cmd
}
