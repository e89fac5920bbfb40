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
	"syscall"
	"time"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/eminwux/qelaunch/internal/engine"
)

// stopGrace matches the grace period docker stop gives a container before
// escalating to SIGKILL.
const stopGrace = 10 * time.Second

// loadContainer maps containerd's not-found into engine.ErrContainerNotFound.
// Other errors (connection failures, permissions) are returned as-is.
func loadContainer(ctx context.Context, cClient *containerd.Client, name string) (containerd.Container, error) {
	container, err := cClient.LoadContainer(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", engine.ErrContainerNotFound, name)
		}
		return nil, err
	}
	return container, nil
}

// Stop sends SIGTERM to the container task and waits for it to exit,
// escalating to SIGKILL after the grace period. A container without a task
// is already stopped.
func (c *Client) Stop(ctx context.Context, name string) error {
	if name == "" {
		return engine.ErrEmptyContainerName
	}
	cClient, nsCtx, err := c.conn(ctx)
	if err != nil {
		return err
	}

	container, err := loadContainer(nsCtx, cClient, name)
	if err != nil {
		return err
	}
	task, err := container.Task(nsCtx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.logger.DebugContext(ctx, "container has no task", "name", name)
			return nil
		}
		return err
	}

	exitC, err := task.Wait(nsCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for task: %w", err)
	}
	if err = task.Kill(nsCtx, syscall.SIGTERM); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to signal task: %w", err)
	}

	timer := time.NewTimer(stopGrace)
	defer timer.Stop()

	select {
	case status := <-exitC:
		c.logger.DebugContext(ctx, "stopped container", "name", name, "exit_code", status.ExitCode())
	case <-timer.C:
		c.logger.WarnContext(ctx, "grace period exceeded, force killing", "name", name)
		if err = task.Kill(nsCtx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("failed to force kill task: %w", err)
		}
		<-exitC
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err = task.Delete(nsCtx); err != nil && !errdefs.IsNotFound(err) {
		c.logger.WarnContext(ctx, "failed to delete stopped task", "name", name, "err", formatError(err))
	}
	return nil
}

// Remove deletes the container, killing any task still attached, and
// cleans up its snapshot.
func (c *Client) Remove(ctx context.Context, name string) error {
	if name == "" {
		return engine.ErrEmptyContainerName
	}
	cClient, nsCtx, err := c.conn(ctx)
	if err != nil {
		return err
	}

	container, err := loadContainer(nsCtx, cClient, name)
	if err != nil {
		return err
	}
	return c.deleteContainer(ctx, nsCtx, container)
}

func (c *Client) deleteContainer(ctx, nsCtx context.Context, container containerd.Container) error {
	id := container.ID()
	if task, err := container.Task(nsCtx, nil); err == nil {
		if _, err = task.Delete(nsCtx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			c.logger.WarnContext(ctx, "failed to delete task", "name", id, "err", formatError(err))
		}
	}

	if err := container.Delete(nsCtx, containerd.WithSnapshotCleanup); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", engine.ErrContainerNotFound, id)
		}
		c.logger.ErrorContext(ctx, "failed to delete container", "name", id, "err", formatError(err))
		return fmt.Errorf("failed to delete container: %w", err)
	}
	c.logger.DebugContext(ctx, "deleted container", "name", id)
	return nil
}
