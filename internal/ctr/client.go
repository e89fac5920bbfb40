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

// Package ctr runs the workshop container directly on containerd, for hosts
// that have containerd but neither docker nor podman.
package ctr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/namespaces"
	ctrversion "github.com/containerd/containerd/v2/version"
	"github.com/eminwux/qelaunch/internal/engine"
)

const (
	// DefaultSocket is where containerd listens on a stock install.
	DefaultSocket = "/run/containerd/containerd.sock"
	// DefaultNamespace keeps launcher containers apart from other tenants.
	DefaultNamespace = "qelaunch"
)

// Options configure a containerd client.
type Options struct {
	Socket    string
	Namespace string
	// Snapshotter is the snapshotter to use. If empty, containerd picks its default.
	Snapshotter string
	Credentials []RegistryCredentials
}

// Client implements engine.Engine on containerd.
type Client struct {
	logger  *slog.Logger
	opts    Options
	mu      sync.Mutex
	cClient *containerd.Client
}

// NewClient returns a client for the socket and namespace in opts. No
// connection is made until the first operation.
func NewClient(logger *slog.Logger, opts Options) *Client {
	if opts.Socket == "" {
		opts.Socket = DefaultSocket
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	return &Client{logger: logger, opts: opts}
}

// Connect dials containerd. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cClient != nil {
		return nil
	}
	if _, err := os.Stat(c.opts.Socket); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSocketNotFound, c.opts.Socket, err)
	}

	cClient, err := containerd.New(c.opts.Socket)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to connect to containerd", "socket", c.opts.Socket, "err", formatError(err))
		return err
	}
	c.cClient = cClient
	c.logger.DebugContext(ctx, "connected to containerd", "socket", c.opts.Socket, "namespace", c.opts.Namespace)
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cClient == nil {
		return nil
	}
	err := c.cClient.Close()
	c.cClient = nil
	return err
}

// conn returns the live connection and a context scoped to the namespace.
func (c *Client) conn(ctx context.Context) (*containerd.Client, context.Context, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, ctx, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cClient == nil {
		return nil, ctx, ErrNotConnected
	}
	return c.cClient, namespaces.WithNamespace(ctx, c.opts.Namespace), nil
}

// Version reports the linked containerd client version. It only checks that
// the socket exists and can be dialed.
func (c *Client) Version(ctx context.Context) (engine.VersionInfo, error) {
	if err := c.Connect(ctx); err != nil {
		return engine.VersionInfo{}, err
	}
	return engine.VersionInfo{
		Engine:  "containerd",
		Version: ctrversion.Version,
		API:     c.opts.Socket,
	}, nil
}

func (c *Client) Info(ctx context.Context) (engine.DaemonInfo, error) {
	cClient, nsCtx, err := c.conn(ctx)
	if err != nil {
		return engine.DaemonInfo{}, err
	}

	v, err := cClient.Version(nsCtx)
	if err != nil {
		return engine.DaemonInfo{}, fmt.Errorf("containerd at %s is not serving: %w", c.opts.Socket, err)
	}
	info := engine.DaemonInfo{ServerVersion: v.Version, OS: runtime.GOOS}

	if containers, listErr := cClient.Containers(nsCtx); listErr == nil {
		info.Containers = len(containers)
	} else {
		c.logger.DebugContext(ctx, "failed to count containers", "err", formatError(listErr))
	}
	if imgs, listErr := cClient.ImageService().List(nsCtx); listErr == nil {
		info.Images = len(imgs)
	} else {
		c.logger.DebugContext(ctx, "failed to count images", "err", formatError(listErr))
	}
	return info, nil
}

var _ engine.Engine = (*Client)(nil)
