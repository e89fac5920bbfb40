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

// Package dockerapi talks to the Docker daemon through the Docker SDK instead
// of the docker binary.
package dockerapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/eminwux/qelaunch/internal/engine"
	digest "github.com/opencontainers/go-digest"
)

// Credentials authenticate image pulls.
type Credentials struct {
	Username      string
	Password      string
	ServerAddress string
}

// Engine implements engine.Engine on top of the Docker SDK.
type Engine struct {
	logger *slog.Logger
	cli    *client.Client
	creds  *Credentials
}

// New returns an engine configured from DOCKER_HOST and friends. The SDK
// client is created on first use.
func New(logger *slog.Logger, creds *Credentials) *Engine {
	return &Engine{logger: logger, creds: creds}
}

func (e *Engine) sdk() (*client.Client, error) {
	if e.cli != nil {
		return e.cli, nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	e.cli = cli
	return cli, nil
}

// Close releases the underlying HTTP transport.
func (e *Engine) Close() error {
	if e.cli == nil {
		return nil
	}
	err := e.cli.Close()
	e.cli = nil
	return err
}

func (e *Engine) Version(ctx context.Context) (engine.VersionInfo, error) {
	cli, err := e.sdk()
	if err != nil {
		return engine.VersionInfo{}, err
	}
	e.logger.DebugContext(ctx, "docker api client ready", "host", cli.DaemonHost())
	return engine.VersionInfo{Engine: "docker-api", API: cli.ClientVersion()}, nil
}

func (e *Engine) Info(ctx context.Context) (engine.DaemonInfo, error) {
	cli, err := e.sdk()
	if err != nil {
		return engine.DaemonInfo{}, err
	}
	info, err := cli.Info(ctx)
	if err != nil {
		return engine.DaemonInfo{}, err
	}
	return engine.DaemonInfo{
		ServerVersion: info.ServerVersion,
		OS:            info.OperatingSystem,
		Containers:    info.Containers,
		Images:        info.Images,
	}, nil
}

func (e *Engine) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	cli, err := e.sdk()
	if err != nil {
		return nil, err
	}
	summaries, err := cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]engine.ImageSummary, 0, len(summaries))
	for _, s := range summaries {
		images = append(images, engine.ImageSummary{
			ID:       digest.Digest(s.ID),
			RepoTags: s.RepoTags,
		})
	}
	return images, nil
}

func (e *Engine) registryAuth() (string, error) {
	if e.creds == nil || e.creds.Username == "" {
		return "", nil
	}
	return registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      e.creds.Username,
		Password:      e.creds.Password,
		ServerAddress: e.creds.ServerAddress,
	})
}

func (e *Engine) Pull(ctx context.Context, ref string, progress io.Writer) error {
	if progress == nil {
		progress = io.Discard
	}
	auth, err := e.registryAuth()
	if err != nil {
		return fmt.Errorf("failed to encode registry credentials: %w", err)
	}

	cli, err := e.sdk()
	if err != nil {
		return err
	}
	rc, err := cli.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: auth})
	if err != nil {
		return err
	}
	defer rc.Close()

	fd, isTerm := progressTerminal(progress)
	return jsonmessage.DisplayJSONMessagesStream(rc, progress, fd, isTerm, nil)
}

func (e *Engine) Stop(ctx context.Context, name string) error {
	if name == "" {
		return engine.ErrEmptyContainerName
	}
	cli, err := e.sdk()
	if err != nil {
		return err
	}
	return notFound(cli.ContainerStop(ctx, name, container.StopOptions{}), name)
}

func (e *Engine) Remove(ctx context.Context, name string) error {
	if name == "" {
		return engine.ErrEmptyContainerName
	}
	cli, err := e.sdk()
	if err != nil {
		return err
	}
	return notFound(cli.ContainerRemove(ctx, name, container.RemoveOptions{}), name)
}

func notFound(err error, name string) error {
	if err == nil {
		return nil
	}
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%w: %s", engine.ErrContainerNotFound, name)
	}
	return err
}

var _ engine.Engine = (*Engine)(nil)
