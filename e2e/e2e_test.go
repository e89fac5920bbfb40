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

package e2e_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const qelaunch = "qelaunch"

// fakeDocker answers the engine commands the launcher issues. Every
// invocation is appended to $FAKE_DOCKER_LOG.
const fakeDocker = `#!/bin/sh
echo "$*" >> "$FAKE_DOCKER_LOG"
case "$1" in
--version)
	echo "Docker version 27.0.0, build fake"
	;;
info)
	if [ -n "$FAKE_DOCKER_DOWN" ]; then
		echo "Cannot connect to the Docker daemon at unix:///var/run/docker.sock" >&2
		exit 1
	fi
	if [ -n "$FAKE_DOCKER_SERVER_ERRORS" ]; then
		echo '{"ServerErrors":["Cannot connect to the Docker daemon at unix:///var/run/docker.sock"]}'
		exit 0
	fi
	echo '{"ServerVersion":"27.0.0","OperatingSystem":"fake","Containers":0,"Images":1}'
	;;
images)
	if [ -n "$FAKE_DOCKER_CACHED" ]; then
		echo "sha256:0123 $2"
	fi
	;;
pull)
	echo "$2: Pull complete"
	;;
stop|rm)
	echo "Error response from daemon: No such container: $2" >&2
	exit 1
	;;
run)
	exit "${FAKE_DOCKER_RUN_EXIT:-0}"
	;;
esac
`

// binary returns the path of the qelaunch binary under test, skipping when it
// has not been built.
func binary(t *testing.T) string {
	t.Helper()

	dir := os.Getenv("E2E_BIN_DIR")
	if dir == "" {
		dir = ".."
	}
	bin := filepath.Join(dir, qelaunch)
	if _, err := os.Stat(bin); os.IsNotExist(err) {
		t.Skipf("binary %s not found, skipping", bin)
	}
	return bin
}

// installFakeDocker writes the fake engine into a temp dir and returns its
// path and the log file it appends to.
func installFakeDocker(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	if err := os.WriteFile(bin, []byte(fakeDocker), 0o755); err != nil {
		t.Fatalf("failed to write fake engine: %v", err)
	}
	return bin, filepath.Join(dir, "calls.log")
}

// calls returns the engine subcommands recorded in log, in order.
func calls(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatalf("failed to read %s: %v", log, err)
	}
	var verbs []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			verbs = append(verbs, fields[0])
		}
	}
	return verbs
}

// runBinary executes bin and returns exit code, stdout, stderr separately.
func runBinary(t *testing.T, env []string, bin string, args ...string) (int, string, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	// Keep the operator's config file out of the run.
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	cmd.Env = append(cmd.Env, env...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			t.Fatalf("failed to run %s %v: %v", bin, args, err)
		}
	}

	return exitCode, stdoutBuf.String(), stderrBuf.String()
}
