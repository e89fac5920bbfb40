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

package dockercli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"syscall"
)

// Invocation is a single call of the engine binary. When Stdout is nil the
// combined output is captured into Result.Output instead of being streamed.
type Invocation struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of an invocation that started.
type Result struct {
	Code   int
	Output string
}

// Runner executes bin with inv. It returns an error only when the process
// could not be started; a non-zero exit is reported through Result.Code.
type Runner func(ctx context.Context, bin string, inv Invocation) (Result, error)

func execRunner(ctx context.Context, bin string, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	cmd.Stdin = inv.Stdin

	var buf bytes.Buffer
	if inv.Stdout == nil {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	} else {
		cmd.Stdout = inv.Stdout
		cmd.Stderr = inv.Stderr
		if cmd.Stderr == nil {
			cmd.Stderr = inv.Stdout
		}
	}

	err := cmd.Run()
	res := Result{Output: strings.TrimSpace(buf.String())}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Code = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Code = 128 + int(status.Signal())
		}
		return res, nil
	}
	return res, err
}
