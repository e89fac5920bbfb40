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

package dockerapi

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/errdefs"
)

// rejectedCode mirrors the docker CLI status for daemon-side run failures.
const rejectedCode = 125

func rejected(err error) error {
	return &errdefs.ExitCodeError{Code: rejectedCode, Err: err}
}

func progressTerminal(w io.Writer) (uintptr, bool) {
	fd, ok := engine.TerminalFd(w)
	return uintptr(fd), ok
}

// containerConfig translates spec into the Docker API create request.
func containerConfig(spec engine.RunSpec, tty bool) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port, err := nat.NewPort(p.Proto(), strconv.Itoa(p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port mapping %s: %w", p, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostPort: strconv.Itoa(p.HostPort)})
	}

	mounts := make([]mount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: m.Source,
			Target: m.Target,
		})
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          engine.EnvList(spec.Env),
		ExposedPorts: exposed,
		Tty:          tty,
		OpenStdin:    spec.Interactive,
		StdinOnce:    spec.Interactive,
		AttachStdin:  spec.Interactive,
		AttachStdout: true,
		AttachStderr: true,
	}
	hostCfg := &container.HostConfig{
		AutoRemove:   spec.AutoRemove,
		PortBindings: bindings,
		Mounts:       mounts,
	}
	return cfg, hostCfg, nil
}

func (e *Engine) Run(ctx context.Context, spec engine.RunSpec, stdio engine.Stdio) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	cli, err := e.sdk()
	if err != nil {
		return 0, err
	}

	stdout, stderr := stdio.Out, stdio.Err
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = stdout
	}

	fd, tty := engine.TerminalFd(stdio.In)
	tty = tty && spec.Interactive

	cfg, hostCfg, err := containerConfig(spec, tty)
	if err != nil {
		return 0, err
	}

	created, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return rejectedCode, rejected(err)
	}
	for _, w := range created.Warnings {
		e.logger.WarnContext(ctx, "docker create warning", "warning", w)
	}

	attach, err := cli.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdin:  spec.Interactive,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		e.discard(ctx, created.ID)
		return rejectedCode, rejected(err)
	}
	defer attach.Close()

	condition := container.WaitConditionNextExit
	if spec.AutoRemove {
		condition = container.WaitConditionRemoved
	}
	waitC, waitErrC := cli.ContainerWait(ctx, created.ID, condition)

	if tty {
		restore, rawErr := engine.MakeRaw(fd)
		if rawErr != nil {
			e.logger.WarnContext(ctx, "failed to set terminal raw mode", "err", rawErr)
		}
		defer restore()
	}

	if err = cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		e.discard(ctx, created.ID)
		return rejectedCode, rejected(err)
	}
	e.logger.InfoContext(ctx, "container started", "name", spec.Name, "id", created.ID)

	if tty {
		if w, h := engine.TerminalSize(stdout); w > 0 && h > 0 {
			//nolint:gosec // terminal dimensions are small positive integers
			resizeErr := cli.ContainerResize(ctx, created.ID, container.ResizeOptions{Width: uint(w), Height: uint(h)})
			if resizeErr != nil {
				e.logger.DebugContext(ctx, "failed to resize tty", "err", resizeErr)
			}
		}
	}

	outputDone := make(chan error, 1)
	go func() {
		var copyErr error
		if tty {
			_, copyErr = io.Copy(stdout, attach.Reader)
		} else {
			_, copyErr = stdcopy.StdCopy(stdout, stderr, attach.Reader)
		}
		outputDone <- copyErr
	}()

	if spec.Interactive && stdio.In != nil {
		go func() {
			_, _ = io.Copy(attach.Conn, stdio.In)
			_ = attach.CloseWrite()
		}()
	}

	if copyErr := <-outputDone; copyErr != nil {
		e.logger.DebugContext(ctx, "container output stream ended with error", "err", copyErr)
	}

	select {
	case status := <-waitC:
		code := int(status.StatusCode)
		if status.Error != nil && status.Error.Message != "" {
			return code, fmt.Errorf("container %s: %s", spec.Name, status.Error.Message)
		}
		return code, nil
	case waitErr := <-waitErrC:
		return 0, fmt.Errorf("failed waiting for container %s: %w", spec.Name, waitErr)
	}
}

// discard removes a container that was created but never started.
func (e *Engine) discard(ctx context.Context, id string) {
	if e.cli == nil {
		return
	}
	if err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		e.logger.DebugContext(ctx, "failed to remove unstarted container", "id", id, "err", err)
	}
}
