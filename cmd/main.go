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

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/eminwux/qelaunch/cmd/qelaunch"
	"github.com/eminwux/qelaunch/cmd/qelaunch/shared"
	"github.com/eminwux/qelaunch/cmd/types"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/eminwux/qelaunch/internal/logging"
	"github.com/spf13/cobra"
)

const defaultEntry = "qelaunch"

type rootFactory func() (*cobra.Command, error)

type factoryMap map[string]rootFactory

// mockFactoryMapKey is used to inject mock factory maps in tests via context.
type mockFactoryMapKey struct{}

func getFactories(ctx context.Context) factoryMap {
	if mockFactories, ok := ctx.Value(mockFactoryMapKey{}).(factoryMap); ok {
		return mockFactories
	}
	return factoryMap{
		defaultEntry: qelaunch.NewQelaunchCmd,
	}
}

// execRoot runs root and maps its outcome to a process exit code. Container
// exit codes pass through unchanged; any other failure is explained on
// stderr.
func execRoot(root *cobra.Command) int {
	err := root.Execute()
	if err != nil {
		shared.RenderFailure(root.ErrOrStderr(), err)
	}
	return errdefs.ExitCode(err)
}

func runWithFactory(ctx context.Context, factory rootFactory) int {
	root, err := factory()
	if err != nil {
		shared.RenderFailure(os.Stderr, err)
		return errdefs.PreflightExitCode
	}

	root.SetContext(ctx)
	return execRoot(root)
}

// entryName selects the command tree. The executable name wins, then
// QELAUNCH_DEBUG_MODE; a launcher copied under any other name still
// launches.
func entryName(factories factoryMap, arg0, debug string) string {
	exe := strings.TrimSuffix(filepath.Base(arg0), ".exe")
	if _, ok := factories[exe]; ok {
		return exe
	}
	if _, ok := factories[debug]; ok {
		return debug
	}
	return defaultEntry
}

func main() {
	logger := logging.NewNoopLogger()
	ctx := context.WithValue(context.Background(), types.CtxLogger, logger)

	// Get factories (may be mocked via context in tests)
	factories := getFactories(ctx)

	factory, ok := factories[entryName(factories, os.Args[0], os.Getenv("QELAUNCH_DEBUG_MODE"))]
	if !ok {
		os.Exit(errdefs.PreflightExitCode)
	}
	os.Exit(runWithFactory(ctx, factory))
}
