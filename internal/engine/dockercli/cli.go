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

// Package dockercli drives the docker (or podman) command line client. It is
// the default engine and issues the same commands an operator would type.
package dockercli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/errdefs"
	digest "github.com/opencontainers/go-digest"
)

const (
	// EngineRejectedCode is the exit status docker and podman use when the
	// engine itself, not the contained process, failed the run.
	EngineRejectedCode = 125

	noneTag = "<none>:<none>"
)

var (
	// ErrNoRuntime is returned when neither docker nor podman is on PATH.
	ErrNoRuntime = errors.New("dockercli: no container runtime found (need docker or podman)")
	// ErrServerErrors is returned when info exits cleanly but the client
	// could not get an answer from the daemon.
	ErrServerErrors = errors.New("dockercli: daemon reported errors")
)

// Detect returns the first of docker, podman found on PATH.
func Detect() (string, error) {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err == nil {
			return bin, nil
		}
	}
	return "", ErrNoRuntime
}

// CLI implements engine.Engine by running the engine binary.
type CLI struct {
	bin    string
	logger *slog.Logger
	run    Runner
}

// Option customises a CLI.
type Option func(*CLI)

// WithRunner replaces the process runner, for tests.
func WithRunner(r Runner) Option {
	return func(c *CLI) { c.run = r }
}

// New returns a CLI engine invoking bin ("docker", "podman" or a path).
func New(logger *slog.Logger, bin string, opts ...Option) *CLI {
	c := &CLI{bin: bin, logger: logger, run: execRunner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the engine binary this CLI invokes.
func (c *CLI) Binary() string { return c.bin }

func (c *CLI) capture(ctx context.Context, args ...string) (Result, error) {
	c.logger.DebugContext(ctx, "running engine command", "bin", c.bin, "args", strings.Join(args, " "))
	return c.run(ctx, c.bin, Invocation{Args: args})
}

func (c *CLI) commandError(args []string, res Result) error {
	msg := fmt.Sprintf("%s %s exited with code %d", c.bin, strings.Join(args, " "), res.Code)
	if res.Output != "" {
		msg += ": " + res.Output
	}
	return &errdefs.ExitCodeError{Code: res.Code, Err: errors.New(msg)}
}

func (c *CLI) Version(ctx context.Context) (engine.VersionInfo, error) {
	args := []string{"--version"}
	res, err := c.capture(ctx, args...)
	if err != nil {
		return engine.VersionInfo{}, fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code != 0 {
		return engine.VersionInfo{}, c.commandError(args, res)
	}
	return engine.VersionInfo{Engine: c.bin, Version: res.Output}, nil
}

type infoJSON struct {
	ServerVersion   string `json:"ServerVersion"`
	OperatingSystem string `json:"OperatingSystem"`
	Containers      int    `json:"Containers"`
	Images          int    `json:"Images"`
	// ServerErrors is filled by the client, and --format exits 0 with it set.
	ServerErrors []string `json:"ServerErrors"`
}

func (c *CLI) Info(ctx context.Context) (engine.DaemonInfo, error) {
	args := []string{"info", "--format", "{{json .}}"}
	res, err := c.capture(ctx, args...)
	if err != nil {
		return engine.DaemonInfo{}, fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code != 0 {
		return engine.DaemonInfo{}, c.commandError(args, res)
	}

	// podman reports a different layout; an unparsable payload still means
	// the daemon answered.
	var info infoJSON
	if jsonErr := json.Unmarshal([]byte(res.Output), &info); jsonErr != nil {
		c.logger.DebugContext(ctx, "could not decode engine info", "err", jsonErr)
	}
	if len(info.ServerErrors) > 0 {
		return engine.DaemonInfo{}, fmt.Errorf("%w: %s", ErrServerErrors, strings.Join(info.ServerErrors, "; "))
	}
	return engine.DaemonInfo{
		ServerVersion: info.ServerVersion,
		OS:            info.OperatingSystem,
		Containers:    info.Containers,
		Images:        info.Images,
	}, nil
}

func (c *CLI) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	args := []string{"images", ref, "--no-trunc", "--format", "{{.ID}} {{.Repository}}:{{.Tag}}"}
	res, err := c.capture(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code != 0 {
		return nil, c.commandError(args, res)
	}
	return parseImages(res.Output), nil
}

func parseImages(out string) []engine.ImageSummary {
	var images []engine.ImageSummary
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] == noneTag {
			continue
		}
		images = append(images, engine.ImageSummary{
			ID:       digest.Digest(fields[0]),
			RepoTags: []string{fields[1]},
		})
	}
	return images
}

func (c *CLI) Pull(ctx context.Context, ref string, progress io.Writer) error {
	if progress == nil {
		progress = io.Discard
	}
	args := []string{"pull", ref}
	c.logger.DebugContext(ctx, "running engine command", "bin", c.bin, "args", strings.Join(args, " "))
	res, err := c.run(ctx, c.bin, Invocation{Args: args, Stdout: progress, Stderr: progress})
	if err != nil {
		return fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code != 0 {
		return c.commandError(args, res)
	}
	return nil
}

func (c *CLI) Stop(ctx context.Context, name string) error {
	return c.containerCmd(ctx, "stop", name)
}

func (c *CLI) Remove(ctx context.Context, name string) error {
	return c.containerCmd(ctx, "rm", name)
}

func (c *CLI) containerCmd(ctx context.Context, verb, name string) error {
	if name == "" {
		return engine.ErrEmptyContainerName
	}
	args := []string{verb, name}
	res, err := c.capture(ctx, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code == 0 {
		return nil
	}
	if isNotFound(res.Output) {
		return fmt.Errorf("%w: %s", engine.ErrContainerNotFound, name)
	}
	return c.commandError(args, res)
}

func isNotFound(output string) bool {
	out := strings.ToLower(output)
	return strings.Contains(out, "no such container") || strings.Contains(out, "no container with name")
}

// RunArgs returns the argument vector of the run command for spec.
func RunArgs(spec engine.RunSpec, tty bool) []string {
	args := []string{"run"}
	if spec.Interactive {
		args = append(args, "-i")
		if tty {
			args = append(args, "-t")
		}
	}
	if spec.AutoRemove {
		args = append(args, "--rm")
	}
	args = append(args, "--name", spec.Name)
	for _, p := range spec.Ports {
		args = append(args, "-p", p.String())
	}
	for _, m := range spec.Mounts {
		args = append(args, "-v", m.String())
	}
	for _, kv := range engine.EnvList(spec.Env) {
		args = append(args, "-e", kv)
	}
	return append(args, spec.Image)
}

func (c *CLI) Run(ctx context.Context, spec engine.RunSpec, stdio engine.Stdio) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	_, tty := engine.TerminalFd(stdio.In)
	args := RunArgs(spec, tty)

	c.logger.InfoContext(ctx, "starting container", "bin", c.bin, "name", spec.Name, "image", spec.Image, "tty", tty)
	res, err := c.run(ctx, c.bin, Invocation{
		Args:   args,
		Stdin:  stdio.In,
		Stdout: stdio.Out,
		Stderr: stdio.Err,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.bin, err)
	}
	if res.Code == EngineRejectedCode {
		return res.Code, c.commandError(args[:1], res)
	}
	return res.Code, nil
}

var _ engine.Engine = (*CLI)(nil)
