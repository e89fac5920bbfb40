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

package version_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/eminwux/qelaunch/cmd/config"
	"github.com/eminwux/qelaunch/cmd/qelaunch/version"
	"github.com/eminwux/qelaunch/internal/launcher"
	"github.com/spf13/viper"
)

type fakeVersionProvider struct {
	versionFn func() string
}

func (f *fakeVersionProvider) Version() string {
	if f.versionFn == nil {
		return "test-version"
	}
	return f.versionFn()
}

func TestNewVersionCmd(t *testing.T) {
	cmd := version.NewVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("Use mismatch: got %q, want %q", cmd.Use, "version")
	}
	if cmd.Flags().Lookup("short") == nil {
		t.Error("version command should have a --short flag")
	}
}

func TestVersionCmdRun(t *testing.T) {
	defaultImage := "image: " + launcher.DefaultImage + "\n"

	tests := []struct {
		name       string
		args       []string
		image      string
		provider   version.VersionProvider
		wantOutput string
	}{
		{
			name:       "prints version from config",
			wantOutput: "qelaunch " + config.Version + "\n" + defaultImage,
		},
		{
			name:       "ignores arguments",
			args:       []string{"arg1", "arg2"},
			wantOutput: "qelaunch " + config.Version + "\n" + defaultImage,
		},
		{
			name:       "prints mock version",
			provider:   &fakeVersionProvider{versionFn: func() string { return "v1.2.3" }},
			wantOutput: "qelaunch v1.2.3\n" + defaultImage,
		},
		{
			name:       "short prints only the version",
			args:       []string{"--short"},
			provider:   &fakeVersionProvider{},
			wantOutput: "test-version\n",
		},
		{
			name:       "configured image",
			image:      "ghcr.io/qe-school/qe-jupyter:7.4",
			provider:   &fakeVersionProvider{},
			wantOutput: "qelaunch test-version\nimage: ghcr.io/qe-school/qe-jupyter:7.4\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			if tt.image != "" {
				viper.Set(config.QELAUNCH_IMAGE.ViperKey, tt.image)
			}

			ctx := context.Background()
			if tt.provider != nil {
				ctx = context.WithValue(ctx, version.MockVersionProviderKey{}, tt.provider)
			}

			var out bytes.Buffer
			cmd := version.NewVersionCmd()
			cmd.SetContext(ctx)
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)

			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got := out.String(); got != tt.wantOutput {
				t.Errorf("output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}
