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

package cleanup_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eminwux/qelaunch/cmd/config"
	"github.com/eminwux/qelaunch/cmd/qelaunch/cleanup"
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/eminwux/qelaunch/cmd/types"
	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/engine/enginetest"
	"github.com/eminwux/qelaunch/internal/logging"
	"github.com/spf13/viper"
)

func TestNewCleanupCmd(t *testing.T) {
	cmd := cleanup.NewCleanupCmd()
	if cmd.Use != "cleanup" {
		t.Errorf("Use mismatch: got %q, want %q", cmd.Use, "cleanup")
	}
}

func TestCleanupCmdRun(t *testing.T) {
	t.Cleanup(viper.Reset)

	ok := func(context.Context, string) error { return nil }

	tests := []struct {
		name         string
		stub         *enginetest.Stub
		containerArg string
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:         "nothing to clean",
			stub:         &enginetest.Stub{},
			wantContains: []string{"containerName: qe-workshop", "stopped: false", "removed: false"},
			wantAbsent:   []string{"warnings"},
		},
		{
			name:         "stale container removed",
			stub:         &enginetest.Stub{StopFn: ok, RemoveFn: ok},
			wantContains: []string{"stopped: true", "removed: true"},
		},
		{
			name:         "custom name",
			stub:         &enginetest.Stub{StopFn: ok, RemoveFn: ok},
			containerArg: "qe-day2",
			wantContains: []string{"containerName: qe-day2"},
		},
		{
			name: "engine failure is a warning",
			stub: &enginetest.Stub{
				StopFn: func(context.Context, string) error { return errors.New("permission denied") },
			},
			wantContains: []string{"warnings:", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set(config.QELAUNCH_WORKDIR.ViperKey, t.TempDir())
			if tt.containerArg != "" {
				viper.Set(config.QELAUNCH_NAME.ViperKey, tt.containerArg)
			}

			ctx := context.WithValue(context.Background(), types.CtxLogger, logging.NewNoopLogger())
			ctx = context.WithValue(ctx, shared.MockEngineKey{}, engine.Engine(tt.stub))

			var out bytes.Buffer
			cmd := cleanup.NewCleanupCmd()
			cmd.SetContext(ctx)
			cmd.SetArgs([]string{})
			cmd.SetOut(&out)

			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output %q does not contain %q", out.String(), want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(out.String(), absent) {
					t.Errorf("output %q should not contain %q", out.String(), absent)
				}
			}
		})
	}
}
