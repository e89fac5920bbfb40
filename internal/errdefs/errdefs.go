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

package errdefs

import (
	"errors"
	"fmt"
)

var (
	ErrConfig            = errors.New("config error")
	ErrLoggerNotFound    = errors.New("logger not found in context")
	ErrInvalidRequest    = errors.New("invalid launch request")
	ErrUnknownEngine     = errors.New("unknown container engine")
	ErrEngineAbsent      = errors.New("container engine not found")
	ErrDaemonUnreachable = errors.New("container engine daemon is not running")
	ErrPullFailed        = errors.New("failed to pull image")
	ErrRunFailed         = errors.New("container engine rejected the run")
	ErrResolveWorkdir    = errors.New("failed to resolve launcher directory")
	ErrPrepareWorkspace  = errors.New("failed to prepare workspace")
)

// PreflightExitCode is the process exit code used when the launcher aborts
// before any engine call that could run a container.
const PreflightExitCode = 1

// ExitCodeError carries an exit status produced by the container engine so
// that it reaches the process exit code unchanged.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exited with code %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exited with code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// ExitCode returns the exit status the process should terminate with for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		return exitErr.Code
	}
	return PreflightExitCode
}

// IsPassthrough reports whether err only transports a container exit code
// and carries no failure of the launcher itself.
func IsPassthrough(err error) bool {
	var exitErr *ExitCodeError
	return errors.As(err, &exitErr) && exitErr.Err == nil
}

var hints = []struct {
	err  error
	hint string
}{
	{ErrEngineAbsent, "Install Docker Desktop (or Docker Engine) and make sure the docker command is on your PATH."},
	{ErrDaemonUnreachable, "Start Docker Desktop (or the docker service) and wait until it reports it is running, then re-run."},
	{ErrPullFailed, "Check your internet connection and the image name, then re-run; cached images do not need the network."},
	{ErrRunFailed, "If port 8888 is already in use, stop the other program or change the host port with --host-port, then re-run."},
	{ErrResolveWorkdir, "Run the launcher from the workshop folder or pass --workdir explicitly."},
	{ErrPrepareWorkspace, "Make sure the workshop folder is writable."},
	{ErrConfig, "Check the config file and QELAUNCH_* environment variables."},
	{ErrInvalidRequest, "Check the launch flags and QELAUNCH_* environment variables."},
	{ErrUnknownEngine, "Use one of: docker, podman, docker-api, containerd."},
}

// Hint returns a one-line remediation for the failure category of err, or ""
// when err does not belong to a known category.
func Hint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return h.hint
		}
	}
	return ""
}
