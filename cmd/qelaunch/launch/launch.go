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

package launch

import (
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/spf13/cobra"
)

func NewLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start the workshop container and attach to it",
		Long: "Check the container engine, pull the workshop image when it is not cached, " +
			"remove any previous workshop container and run a fresh one attached to this terminal. " +
			"This is also what qelaunch does when run without a command.",
		Args: cobra.NoArgs,
		RunE: RunLaunch,
	}
}

// RunLaunch performs a launch with the request built from flags, environment
// and config file.
func RunLaunch(cmd *cobra.Command, _ []string) error {
	req, err := shared.RequestFromCmd(cmd)
	if err != nil {
		return err
	}

	l, closeFn, err := shared.LauncherFromCmd(cmd)
	defer shared.CloseQuietly(cmd, closeFn)
	if err != nil {
		return err
	}

	shared.Infof(cmd, "Starting %s from %s; JupyterLab will be at http://localhost:%d",
		req.ContainerName, req.Image, req.HostPort)
	shared.Infof(cmd, "Workshop folder %s is mounted at %s", req.MountSource, req.MountTarget)

	_, err = l.Launch(req)
	return err
}
