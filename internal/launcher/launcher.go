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

// Package launcher brings the workshop container into a running state: it
// checks the engine, pulls the image when missing, clears any stale instance
// and runs a fresh one attached to the operator's terminal.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/errdefs"
)

// NotifyFunc subscribes c to the signals forwarded to the container while it
// runs and returns a function that unsubscribes it.
type NotifyFunc func(c chan<- os.Signal) (stop func())

func notifyInterrupts(c chan<- os.Signal) func() {
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return func() { signal.Stop(c) }
}

type Options struct {
	Stdio            engine.Stdio
	PrepareWorkspace bool
	// Notify replaces signal.Notify, for tests.
	Notify NotifyFunc
}

type Exec struct {
	ctx    context.Context
	logger *slog.Logger
	engine engine.Engine
	opts   Options
}

// PreflightReport is the outcome of steps 1-3 of a launch.
type PreflightReport struct {
	Engine       engine.VersionInfo `json:"engine"       yaml:"engine"`
	Daemon       engine.DaemonInfo  `json:"daemon"       yaml:"daemon"`
	Image        string             `json:"image"        yaml:"image"`
	ImagePresent bool               `json:"imagePresent" yaml:"imagePresent"`
}

// CleanupReport is the outcome of the stale-instance cleanup.
type CleanupReport struct {
	ContainerName string   `json:"containerName"      yaml:"containerName"`
	Stopped       bool     `json:"stopped"            yaml:"stopped"`
	Removed       bool     `json:"removed"            yaml:"removed"`
	Warnings      []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Report summarises a launch.
type Report struct {
	Preflight        PreflightReport `json:"preflight"                  yaml:"preflight"`
	Pulled           bool            `json:"pulled"                     yaml:"pulled"`
	Cleanup          CleanupReport   `json:"cleanup"                    yaml:"cleanup"`
	WorkspaceCreated []string        `json:"workspaceCreated,omitempty" yaml:"workspaceCreated,omitempty"`
	ExitCode         int             `json:"exitCode"                   yaml:"exitCode"`
}

// Plan is what a launch would do, resolved without contacting the engine.
type Plan struct {
	Request Request        `json:"request" yaml:"request"`
	RunSpec engine.RunSpec `json:"runSpec" yaml:"runSpec"`
}

func NewLauncherExec(ctx context.Context, logger *slog.Logger, eng engine.Engine, opts Options) *Exec {
	if opts.Stdio.Out == nil {
		opts.Stdio.Out = io.Discard
	}
	if opts.Stdio.Err == nil {
		opts.Stdio.Err = opts.Stdio.Out
	}
	if opts.Notify == nil {
		opts.Notify = notifyInterrupts
	}
	return &Exec{ctx: ctx, logger: logger, engine: eng, opts: opts}
}

// preflightError aborts with PreflightExitCode regardless of any exit code
// the engine client reported.
func preflightError(sentinel, err error) error {
	return &errdefs.ExitCodeError{
		Code: errdefs.PreflightExitCode,
		Err:  fmt.Errorf("%w: %w", sentinel, err),
	}
}

// Preflight checks that the engine client exists, that its daemon answers
// and whether the image is already cached. It has no side effects.
func (l *Exec) Preflight(req Request) (PreflightReport, error) {
	report := PreflightReport{Image: req.Image}

	version, err := l.engine.Version(l.ctx)
	if err != nil {
		l.logger.DebugContext(l.ctx, "engine version query failed", "err", err)
		return report, preflightError(errdefs.ErrEngineAbsent, err)
	}
	report.Engine = version
	l.logger.DebugContext(l.ctx, "engine client found", "engine", version.Engine, "version", version.Version)

	info, err := l.engine.Info(l.ctx)
	if err != nil {
		l.logger.DebugContext(l.ctx, "engine info query failed", "err", err)
		return report, preflightError(errdefs.ErrDaemonUnreachable, err)
	}
	report.Daemon = info
	l.logger.DebugContext(l.ctx, "engine daemon is running", "server_version", info.ServerVersion)

	images, err := l.engine.ListImages(l.ctx, req.Image)
	if err != nil {
		return report, preflightError(errdefs.ErrDaemonUnreachable, fmt.Errorf("failed to list images: %w", err))
	}
	report.ImagePresent = engine.HasImage(images, req.Image)
	l.logger.DebugContext(l.ctx, "image presence checked", "image", req.Image, "present", report.ImagePresent)
	return report, nil
}

// EnsureImage pulls the image once when it is not cached. Engine progress is
// written to the operator's stdout as is.
func (l *Exec) EnsureImage(req Request, present bool) (bool, error) {
	if present {
		return false, nil
	}
	l.logger.InfoContext(l.ctx, "pulling image", "image", req.Image)
	if err := l.engine.Pull(l.ctx, req.Image, l.opts.Stdio.Out); err != nil {
		return false, fmt.Errorf("%w %s: %w", errdefs.ErrPullFailed, req.Image, err)
	}
	return true, nil
}

// Cleanup stops and removes any container called name. A missing container
// is the common case and is not reported. Other failures are recorded as
// warnings and never abort the launch; the run step fails loudly if the name
// is still taken.
func (l *Exec) Cleanup(name string) CleanupReport {
	report := CleanupReport{ContainerName: name}

	if err := l.engine.Stop(l.ctx, name); err != nil {
		l.cleanupFailed(&report, "stop", name, err)
	} else {
		report.Stopped = true
	}

	if err := l.engine.Remove(l.ctx, name); err != nil {
		l.cleanupFailed(&report, "remove", name, err)
	} else {
		report.Removed = true
	}
	return report
}

func (l *Exec) cleanupFailed(report *CleanupReport, op, name string, err error) {
	if errors.Is(err, engine.ErrContainerNotFound) {
		l.logger.DebugContext(l.ctx, "no stale container", "op", op, "name", name)
		return
	}
	l.logger.WarnContext(l.ctx, "stale container cleanup failed", "op", op, "name", name, "err", err)
	report.Warnings = append(report.Warnings, fmt.Sprintf("%s %s: %v", op, name, err))
}

// Run starts the container and blocks until it exits. SIGINT and SIGTERM
// received meanwhile ask the engine to stop the container; the launcher
// keeps waiting so the container's exit code is still reported.
func (l *Exec) Run(req Request) (int, error) {
	sigC := make(chan os.Signal, 1)
	stopNotify := l.opts.Notify(sigC)
	defer stopNotify()

	done := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		l.forwardSignals(sigC, done, req.ContainerName)
	}()
	defer func() {
		close(done)
		<-forwarded
	}()

	l.logger.InfoContext(l.ctx, "starting container",
		"name", req.ContainerName, "image", req.Image,
		"port", fmt.Sprintf("%d:%d", req.HostPort, req.ContainerPort),
		"mount", req.MountSource+":"+req.MountTarget)

	code, err := l.engine.Run(l.ctx, req.RunSpec(), l.opts.Stdio)
	if err != nil {
		return code, fmt.Errorf("%w: %w", errdefs.ErrRunFailed, err)
	}
	l.logger.DebugContext(l.ctx, "container exited", "name", req.ContainerName, "exit_code", code)
	return code, nil
}

func (l *Exec) forwardSignals(sigC <-chan os.Signal, done <-chan struct{}, name string) {
	for {
		select {
		case sig := <-sigC:
			l.logger.InfoContext(l.ctx, "stopping container", "name", name, "signal", sig.String())
			if err := l.engine.Stop(context.WithoutCancel(l.ctx), name); err != nil &&
				!errors.Is(err, engine.ErrContainerNotFound) {
				l.logger.WarnContext(l.ctx, "failed to stop container", "name", name, "err", err)
			}
		case <-done:
			return
		}
	}
}

// Plan validates req and returns the engine spec a launch would run.
func (l *Exec) Plan(req Request) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}
	return Plan{Request: req, RunSpec: req.RunSpec()}, nil
}

// Launch performs the whole sequence: preflight, conditional pull, stale
// instance cleanup and run. A container that exits non-zero yields an
// errdefs.ExitCodeError carrying its code and no further error.
func (l *Exec) Launch(req Request) (Report, error) {
	var report Report

	if err := req.Validate(); err != nil {
		return report, err
	}

	pre, err := l.Preflight(req)
	report.Preflight = pre
	if err != nil {
		return report, err
	}

	if report.Pulled, err = l.EnsureImage(req, pre.ImagePresent); err != nil {
		return report, err
	}

	report.Cleanup = l.Cleanup(req.ContainerName)

	if l.opts.PrepareWorkspace {
		created, prepErr := PrepareWorkspace(req.MountSource)
		report.WorkspaceCreated = created
		if prepErr != nil {
			return report, prepErr
		}
		if len(created) > 0 {
			l.logger.InfoContext(l.ctx, "prepared workspace", "root", req.MountSource, "created", len(created))
		}
	}

	code, err := l.Run(req)
	report.ExitCode = code
	if err != nil {
		return report, err
	}
	if code != 0 {
		return report, &errdefs.ExitCodeError{Code: code}
	}
	return report, nil
}
