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
	"context"
	"fmt"
	"io"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	"github.com/eminwux/qelaunch/internal/engine"
	ierrdefs "github.com/eminwux/qelaunch/internal/errdefs"
	runtimespec "github.com/opencontainers/runtime-spec/specs-go"
)

// rejectedCode is reported when containerd refuses to create or start the
// container, matching the docker CLI convention.
const rejectedCode = 125

func rejected(err error) error {
	return &ierrdefs.ExitCodeError{Code: rejectedCode, Err: err}
}

// checkPorts rejects mappings that would need NAT. containerd has no port
// publishing of its own, so the container shares the host network.
func checkPorts(ports []engine.PortMapping) error {
	for _, p := range ports {
		if p.HostPort != p.ContainerPort {
			return fmt.Errorf("%w: %s", engine.ErrPortMismatch, p)
		}
	}
	return nil
}

func bindMounts(mounts []engine.BindMount) []runtimespec.Mount {
	out := make([]runtimespec.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, runtimespec.Mount{
			Type:        "bind",
			Source:      m.Source,
			Destination: m.Target,
			Options:     []string{"rbind", "rw"},
		})
	}
	return out
}

// specOpts builds the OCI spec for the workshop container. Environment is
// applied after the image config so request values win.
func specOpts(image oci.Image, spec engine.RunSpec, tty bool) []oci.SpecOpts {
	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(engine.EnvList(spec.Env)),
		oci.WithMounts(bindMounts(spec.Mounts)),
		oci.WithHostNamespace(runtimespec.NetworkNamespace),
		oci.WithHostHostsFile,
		oci.WithHostResolvconf,
	}
	if tty {
		opts = append(opts, oci.WithTTY)
	}
	return opts
}

func (c *Client) Run(ctx context.Context, spec engine.RunSpec, stdio engine.Stdio) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := checkPorts(spec.Ports); err != nil {
		return rejectedCode, rejected(err)
	}
	cClient, nsCtx, err := c.conn(ctx)
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
	var stdin io.Reader
	if spec.Interactive {
		stdin = stdio.In
	}
	fd, tty := engine.TerminalFd(stdio.In)
	tty = tty && spec.Interactive

	image, err := cClient.GetImage(nsCtx, engine.NormalizeRef(spec.Image))
	if err != nil {
		return rejectedCode, rejected(fmt.Errorf("image %s: %w", spec.Image, err))
	}
	if err = c.ensureImageUnpacked(nsCtx, image); err != nil {
		return rejectedCode, rejected(err)
	}

	containerOpts := []containerd.NewContainerOpts{containerd.WithImage(image)}
	if c.opts.Snapshotter != "" {
		containerOpts = append(containerOpts, containerd.WithSnapshotter(c.opts.Snapshotter))
	}
	containerOpts = append(containerOpts,
		containerd.WithNewSnapshot(spec.Name+"-snapshot", image),
		containerd.WithNewSpec(specOpts(image, spec, tty)...),
	)

	container, err := cClient.NewContainer(nsCtx, spec.Name, containerOpts...)
	if err != nil {
		if errdefs.IsAlreadyExists(err) {
			err = fmt.Errorf("%w: %s", ErrContainerExists, spec.Name)
		}
		c.logger.ErrorContext(ctx, "failed to create container", "name", spec.Name, "err", formatError(err))
		return rejectedCode, rejected(err)
	}
	if spec.AutoRemove {
		defer func() {
			if delErr := c.deleteContainer(ctx, nsCtx, container); delErr != nil {
				c.logger.WarnContext(ctx, "failed to remove container", "name", spec.Name, "err", formatError(delErr))
			}
		}()
	}

	ioOpts := []cio.Opt{cio.WithStreams(stdin, stdout, stderr)}
	if tty {
		ioOpts = append(ioOpts, cio.WithTerminal)
	}
	task, err := container.NewTask(nsCtx, cio.NewCreator(ioOpts...))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create task", "name", spec.Name, "err", formatError(err))
		return rejectedCode, rejected(fmt.Errorf("failed to create task: %w", err))
	}
	defer func() {
		if _, delErr := task.Delete(nsCtx); delErr != nil && !errdefs.IsNotFound(delErr) {
			c.logger.DebugContext(ctx, "failed to delete task", "name", spec.Name, "err", formatError(delErr))
		}
	}()

	exitC, err := task.Wait(nsCtx)
	if err != nil {
		return rejectedCode, rejected(fmt.Errorf("failed to wait for task: %w", err))
	}

	if tty {
		restore, rawErr := engine.MakeRaw(fd)
		if rawErr != nil {
			c.logger.WarnContext(ctx, "failed to set terminal raw mode", "err", rawErr)
		}
		defer restore()
	}

	if err = task.Start(nsCtx); err != nil {
		c.logger.ErrorContext(ctx, "failed to start task", "name", spec.Name, "err", formatError(err))
		return rejectedCode, rejected(fmt.Errorf("failed to start task: %w", err))
	}
	c.logger.InfoContext(ctx, "container started", "name", spec.Name, "namespace", c.opts.Namespace)

	if tty {
		if w, h := engine.TerminalSize(stdout); w > 0 && h > 0 {
			//nolint:gosec // terminal dimensions are small positive integers
			if resizeErr := task.Resize(nsCtx, uint32(w), uint32(h)); resizeErr != nil {
				c.logger.DebugContext(ctx, "failed to resize tty", "err", resizeErr)
			}
		}
	}

	status := <-exitC
	code, _, err := status.Result()
	if err != nil {
		return 0, fmt.Errorf("failed waiting for container %s: %w", spec.Name, err)
	}
	return int(code), nil
}
