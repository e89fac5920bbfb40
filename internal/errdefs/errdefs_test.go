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

package errdefs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "preflight failure", err: fmt.Errorf("%w: %w", errdefs.ErrDaemonUnreachable, errors.New("dial")), want: 1},
		{name: "container exit code", err: &errdefs.ExitCodeError{Code: 137}, want: 137},
		{
			name: "wrapped engine code",
			err: fmt.Errorf(
				"%w: %w",
				errdefs.ErrRunFailed,
				&errdefs.ExitCodeError{Code: 125, Err: errors.New("port is already allocated")},
			),
			want: 125,
		},
		{name: "zero code still fails", err: &errdefs.ExitCodeError{Code: 0, Err: errors.New("x")}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errdefs.ExitCode(tt.err))
		})
	}
}

func TestIsPassthrough(t *testing.T) {
	assert.True(t, errdefs.IsPassthrough(&errdefs.ExitCodeError{Code: 2}), "bare exit code")
	assert.False(t, errdefs.IsPassthrough(&errdefs.ExitCodeError{Code: 2, Err: errdefs.ErrRunFailed}), "exit code with cause")
	assert.False(t, errdefs.IsPassthrough(errdefs.ErrPullFailed), "sentinel")
}

func TestHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint bool
	}{
		{name: "engine absent", err: fmt.Errorf("%w: %w", errdefs.ErrEngineAbsent, errors.New("exec: not found")), wantHint: true},
		{name: "daemon down", err: errdefs.ErrDaemonUnreachable, wantHint: true},
		{name: "pull failed", err: errdefs.ErrPullFailed, wantHint: true},
		{name: "run failed", err: errdefs.ErrRunFailed, wantHint: true},
		{name: "unknown", err: errors.New("other"), wantHint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHint, errdefs.Hint(tt.err) != "")
		})
	}

	// engine absent and daemon unreachable must be distinguishable
	assert.NotEqual(t, errdefs.Hint(errdefs.ErrEngineAbsent), errdefs.Hint(errdefs.ErrDaemonUnreachable))
}
