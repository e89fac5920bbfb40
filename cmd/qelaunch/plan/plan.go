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

package plan

import (
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/eminwux/qelaunch/internal/launcher"
	"github.com/spf13/cobra"
)

func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the container a launch would run, without contacting the engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := shared.LoggerFromCmd(cmd)
			if err != nil {
				return err
			}
			req, err := shared.RequestFromCmd(cmd)
			if err != nil {
				return err
			}

			// No engine is needed to resolve a plan.
			l := launcher.NewLauncherExec(cmd.Context(), logger, nil, launcher.Options{})
			p, err := l.Plan(req)
			if err != nil {
				return err
			}
			return shared.PrintJSONOrYAML(cmd, p, shared.OutputFormat(cmd))
		},
	}

	shared.AddOutputFlag(cmd)

	return cmd
}
