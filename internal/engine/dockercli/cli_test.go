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

package dockercli_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/engine/dockercli"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	bin  string
	args []string
}

type fakeRunner struct {
	calls   []call
	results map[string]dockercli.Result
	errs    map[string]error
	stream  string
}

func (f *fakeRunner) run(_ context.Context, bin string, inv dockercli.Invocation) (dockercli.Result, error) {
	f.calls = append(f.calls, call{bin: bin, args: inv.Args})
	verb := inv.Args[0]
	if err := f.errs[verb]; err != nil {
		return dockercli.Result{}, err
	}
	if inv.Stdout != nil && f.stream != "" {
		_, _ = io.WriteString(inv.Stdout, f.stream)
	}
	return f.results[verb], nil
}

func newCLI(f *fakeRunner) *dockercli.CLI {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dockercli.New(logger, "docker", dockercli.WithRunner(f.run))
}

func TestVersion(t *testing.T) {
	t.Run("client present", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{
			"--version": {Output: "Docker version 27.3.1, build ce12230"},
		}}
		v, err := newCLI(f).Version(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "docker", v.Engine)
		assert.Contains(t, v.Version, "27.3.1")
		assert.Equal(t, []string{"--version"}, f.calls[0].args)
	})

	t.Run("binary missing", func(t *testing.T) {
		f := &fakeRunner{errs: map[string]error{"--version": errors.New(`exec: "docker": executable file not found in $PATH`)}}
		_, err := newCLI(f).Version(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "executable file not found")
	})
}

func TestInfo(t *testing.T) {
	t.Run("daemon answers", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{
			"info": {Output: `{"ServerVersion":"27.3.1","OperatingSystem":"Docker Desktop","Containers":3,"Images":7}`},
		}}
		info, err := newCLI(f).Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "27.3.1", info.ServerVersion)
		assert.Equal(t, "Docker Desktop", info.OS)
		assert.Equal(t, 3, info.Containers)
		assert.Equal(t, 7, info.Images)
	})

	t.Run("daemon down", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{
			"info": {Code: 1, Output: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?"},
		}}
		_, err := newCLI(f).Info(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot connect to the Docker daemon")
	})

	t.Run("server errors with clean exit", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{
			"info": {Output: `{"ServerErrors":["Cannot connect to the Docker daemon at unix:///var/run/docker.sock"]}`},
		}}
		_, err := newCLI(f).Info(context.Background())
		require.ErrorIs(t, err, dockercli.ErrServerErrors)
		assert.Contains(t, err.Error(), "Cannot connect to the Docker daemon")
	})

	t.Run("podman layout still succeeds", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{"info": {Output: `{"host":{"os":"linux"}}`}}}
		_, err := newCLI(f).Info(context.Background())
		require.NoError(t, err)
	})
}

func TestListImages(t *testing.T) {
	f := &fakeRunner{results: map[string]dockercli.Result{
		"images": {Output: strings.Join([]string{
			"sha256:1111 qeworkshop/qe-jupyter:7.5",
			"sha256:2222 <none>:<none>",
			"",
			"sha256:3333 qeworkshop/qe-jupyter:7.4",
		}, "\n")},
	}}

	images, err := newCLI(f).ListImages(context.Background(), "qeworkshop/qe-jupyter:7.5")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "sha256:1111", images[0].ID.String())
	assert.Equal(t, []string{"qeworkshop/qe-jupyter:7.5"}, images[0].RepoTags)
	assert.Equal(t, "qeworkshop/qe-jupyter:7.5", f.calls[0].args[1])
	assert.True(t, engine.HasImage(images, "qeworkshop/qe-jupyter:7.5"))
}

func TestPull(t *testing.T) {
	t.Run("progress is streamed verbatim", func(t *testing.T) {
		f := &fakeRunner{stream: "7.5: Pulling from qeworkshop/qe-jupyter\nStatus: Downloaded newer image\n"}
		var progress bytes.Buffer
		require.NoError(t, newCLI(f).Pull(context.Background(), "qeworkshop/qe-jupyter:7.5", &progress))
		assert.Equal(t, f.stream, progress.String())
		assert.Equal(t, []string{"pull", "qeworkshop/qe-jupyter:7.5"}, f.calls[0].args)
	})

	t.Run("failure keeps engine exit code", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{"pull": {Code: 1}}}
		err := newCLI(f).Pull(context.Background(), "qeworkshop/qe-jupyter:7.5", io.Discard)
		require.Error(t, err)
		var exitErr *errdefs.ExitCodeError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.Code)
	})
}

func TestStopAndRemove(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		code         int
		wantNotFound bool
		wantErr      bool
	}{
		{name: "success", code: 0},
		{name: "docker missing container", code: 1, output: "Error response from daemon: No such container: qe-workshop", wantNotFound: true, wantErr: true},
		{name: "podman missing container", code: 125, output: `Error: no container with name or ID "qe-workshop" found: no such container`, wantNotFound: true, wantErr: true},
		{name: "other failure", code: 1, output: "permission denied", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{results: map[string]dockercli.Result{
				"stop": {Code: tt.code, Output: tt.output},
				"rm":   {Code: tt.code, Output: tt.output},
			}}
			cli := newCLI(f)
			for _, err := range []error{
				cli.Stop(context.Background(), "qe-workshop"),
				cli.Remove(context.Background(), "qe-workshop"),
			} {
				assert.Equal(t, tt.wantErr, err != nil)
				assert.Equal(t, tt.wantNotFound, errors.Is(err, engine.ErrContainerNotFound))
			}
			assert.Equal(t, []string{"stop", "qe-workshop"}, f.calls[0].args)
			assert.Equal(t, []string{"rm", "qe-workshop"}, f.calls[1].args)
		})
	}
}

func testSpec() engine.RunSpec {
	return engine.RunSpec{
		Name:        "qe-workshop",
		Image:       "qeworkshop/qe-jupyter:7.5",
		Interactive: true,
		AutoRemove:  true,
		Ports:       []engine.PortMapping{{HostPort: 8888, ContainerPort: 8888}},
		Mounts:      []engine.BindMount{{Source: "/home/student/qe", Target: "/workspace"}},
		Env: map[string]string{
			"OMPI_ALLOW_RUN_AS_ROOT":         "1",
			"OMPI_ALLOW_RUN_AS_ROOT_CONFIRM": "1",
		},
	}
}

func TestRunArgs(t *testing.T) {
	want := []string{
		"run", "-i", "-t", "--rm",
		"--name", "qe-workshop",
		"-p", "8888:8888",
		"-v", "/home/student/qe:/workspace",
		"-e", "OMPI_ALLOW_RUN_AS_ROOT=1",
		"-e", "OMPI_ALLOW_RUN_AS_ROOT_CONFIRM=1",
		"qeworkshop/qe-jupyter:7.5",
	}
	assert.Equal(t, want, dockercli.RunArgs(testSpec(), true))

	noTTY := dockercli.RunArgs(testSpec(), false)
	assert.NotContains(t, noTTY, "-t")
	assert.Contains(t, noTTY, "-i")
}

func TestRun(t *testing.T) {
	t.Run("exit code passes through", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{"run": {Code: 137}}}
		code, err := newCLI(f).Run(context.Background(), testSpec(), engine.Stdio{Out: io.Discard, Err: io.Discard})
		require.NoError(t, err)
		assert.Equal(t, 137, code)
	})

	t.Run("engine rejection", func(t *testing.T) {
		f := &fakeRunner{results: map[string]dockercli.Result{"run": {Code: dockercli.EngineRejectedCode}}}
		code, err := newCLI(f).Run(context.Background(), testSpec(), engine.Stdio{Out: io.Discard, Err: io.Discard})
		require.Error(t, err)
		assert.Equal(t, dockercli.EngineRejectedCode, code)
	})

	t.Run("invalid spec", func(t *testing.T) {
		f := &fakeRunner{}
		_, err := newCLI(f).Run(context.Background(), engine.RunSpec{}, engine.Stdio{})
		require.ErrorIs(t, err, engine.ErrEmptyContainerName)
		assert.Empty(t, f.calls)
	})
}

// TestRunRealProcess drives a stub engine binary to check exit status
// propagation through os/exec.
func TestRunRealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub engine is a shell script")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	script := "#!/bin/sh\nif [ \"$1\" = run ]; then echo started; exit 137; fi\nexit 0\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cli := dockercli.New(logger, bin)

	var out bytes.Buffer
	code, err := cli.Run(context.Background(), testSpec(), engine.Stdio{Out: &out, Err: &out})
	require.NoError(t, err)
	assert.Equal(t, 137, code)
	assert.Equal(t, "started\n", out.String())

	_, err = cli.Version(context.Background())
	require.NoError(t, err)
}

func TestMissingBinary(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cli := dockercli.New(logger, filepath.Join(t.TempDir(), "no-such-docker"))

	_, err := cli.Version(context.Background())
	require.Error(t, err)
}
