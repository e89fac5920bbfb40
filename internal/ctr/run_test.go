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

package ctr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/eminwux/qelaunch/internal/engine"
	ierrdefs "github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPorts(t *testing.T) {
	tests := []struct {
		name    string
		ports   []engine.PortMapping
		wantErr bool
	}{
		{name: "no ports"},
		{name: "matching", ports: []engine.PortMapping{{HostPort: 8888, ContainerPort: 8888}}},
		{
			name:    "remapped",
			ports:   []engine.PortMapping{{HostPort: 9999, ContainerPort: 8888}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPorts(tt.ports)
			if tt.wantErr {
				require.ErrorIs(t, err, engine.ErrPortMismatch)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBindMounts(t *testing.T) {
	got := bindMounts([]engine.BindMount{{Source: "/home/student/qe", Target: "/workspace"}})
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, "bind", m.Type)
	assert.Equal(t, "/home/student/qe", m.Source)
	assert.Equal(t, "/workspace", m.Destination)
	require.NotEmpty(t, m.Options)
	assert.Equal(t, "rbind", m.Options[0])
}

func TestSpecOptsAddsTTY(t *testing.T) {
	spec := engine.RunSpec{Name: "qe-workshop", Image: "qeworkshop/qe-jupyter:7.5"}
	without := specOpts(nil, spec, false)
	with := specOpts(nil, spec, true)
	assert.Len(t, with, len(without)+1)
}

func TestRejected(t *testing.T) {
	err := rejected(errors.New("snapshot exists"))
	assert.Equal(t, rejectedCode, ierrdefs.ExitCode(err))
}

func TestCredentialsFor(t *testing.T) {
	creds := []RegistryCredentials{
		{Username: "fallback", Password: "fb"},
		{Username: "hub", Password: "h", ServerAddress: "docker.io"},
	}

	tests := []struct {
		host     string
		wantUser string
	}{
		{host: "docker.io", wantUser: "hub"},
		{host: "ghcr.io", wantUser: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			user, _, err := credentialsFor(creds, tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
		})
	}

	user, pass, _ := credentialsFor(creds[1:], "ghcr.io")
	assert.Empty(t, user)
	assert.Empty(t, pass)
	assert.NotNil(t, buildResolver(nil))
	assert.NotNil(t, buildResolver(creds))
}

func TestFormatError(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("dial: %w", inner)
	assert.Equal(t, "dial: connection refused: connection refused", formatError(err))
	assert.Equal(t, "<nil>", formatError(nil))
}
