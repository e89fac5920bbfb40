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

package version

import (
	"fmt"

	"github.com/eminwux/qelaunch/cmd/config"
	"github.com/eminwux/qelaunch/internal/launcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type VersionProvider interface {
	Version() string
}

// MockVersionProviderKey is used to inject mock version providers in tests via context.
type MockVersionProviderKey struct{}

type configVersionProvider struct{}

func (p *configVersionProvider) Version() string {
	return config.Version
}

// workshopImage is the image a launch would run with the current flags,
// environment and config file.
func workshopImage() string {
	if image := viper.GetString(config.QELAUNCH_IMAGE.ViperKey); image != "" {
		return image
	}
	return launcher.DefaultImage
}

func NewVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the launcher version and the workshop image it starts",
		Run: func(cmd *cobra.Command, _ []string) {
			var provider VersionProvider
			if mockProvider, ok := cmd.Context().Value(MockVersionProviderKey{}).(VersionProvider); ok {
				provider = mockProvider
			} else {
				provider = &configVersionProvider{}
			}

			out := cmd.OutOrStdout()
			if short, _ := cmd.Flags().GetBool("short"); short {
				fmt.Fprintln(out, provider.Version())
				return
			}
			fmt.Fprintf(out, "qelaunch %s\n", provider.Version())
			fmt.Fprintf(out, "image: %s\n", workshopImage())
		},
	}
	versionCmd.Flags().Bool("short", false, "Print only the version number")
	return versionCmd
}
