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

package ctr_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/eminwux/qelaunch/internal/ctr"
	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *ctr.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctr.NewClient(logger, ctr.Options{Socket: filepath.Join(t.TempDir(), "containerd.sock")})
}

func TestVersionWithoutSocket(t *testing.T) {
	c := newClient(t)
	_, err := c.Version(context.Background())
	require.ErrorIs(t, err, ctr.ErrSocketNotFound)
	require.NoError(t, c.Close())
}

func TestEmptyName(t *testing.T) {
	c := newClient(t)
	require.ErrorIs(t, c.Stop(context.Background(), ""), engine.ErrEmptyContainerName)
	require.ErrorIs(t, c.Remove(context.Background(), ""), engine.ErrEmptyContainerName)
}

func TestRunRejectsRemappedPort(t *testing.T) {
	c := newClient(t)
	spec := engine.RunSpec{
		Name:  "qe-workshop",
		Image: "qeworkshop/qe-jupyter:7.5",
		Ports: []engine.PortMapping{{HostPort: 9999, ContainerPort: 8888}},
	}

	code, err := c.Run(context.Background(), spec, engine.Stdio{})
	require.ErrorIs(t, err, engine.ErrPortMismatch)
	assert.Equal(t, errdefs.ExitCode(err), code)
}
