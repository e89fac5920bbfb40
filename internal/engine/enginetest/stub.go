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

// Package enginetest provides an engine.Engine whose behaviour is set per
// test through function fields.
package enginetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/eminwux/qelaunch/internal/engine"
)

// Stub implements engine.Engine. A nil function field makes the call succeed
// with a zero result, except Stop and Remove which report
// engine.ErrContainerNotFound.
type Stub struct {
	VersionFn    func(ctx context.Context) (engine.VersionInfo, error)
	InfoFn       func(ctx context.Context) (engine.DaemonInfo, error)
	ListImagesFn func(ctx context.Context, ref string) ([]engine.ImageSummary, error)
	PullFn       func(ctx context.Context, ref string, progress io.Writer) error
	StopFn       func(ctx context.Context, name string) error
	RemoveFn     func(ctx context.Context, name string) error
	RunFn        func(ctx context.Context, spec engine.RunSpec, stdio engine.Stdio) (int, error)

	mu    sync.Mutex
	calls []string
}

var _ engine.Engine = (*Stub)(nil)

func (s *Stub) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// Calls returns the operations invoked so far, in order.
func (s *Stub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Stub) Version(ctx context.Context) (engine.VersionInfo, error) {
	s.record("version")
	if s.VersionFn == nil {
		return engine.VersionInfo{Engine: "stub", Version: "0.0.0"}, nil
	}
	return s.VersionFn(ctx)
}

func (s *Stub) Info(ctx context.Context) (engine.DaemonInfo, error) {
	s.record("info")
	if s.InfoFn == nil {
		return engine.DaemonInfo{ServerVersion: "0.0.0"}, nil
	}
	return s.InfoFn(ctx)
}

func (s *Stub) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	s.record("images")
	if s.ListImagesFn == nil {
		return nil, nil
	}
	return s.ListImagesFn(ctx, ref)
}

func (s *Stub) Pull(ctx context.Context, ref string, progress io.Writer) error {
	s.record("pull")
	if s.PullFn == nil {
		return nil
	}
	return s.PullFn(ctx, ref, progress)
}

func (s *Stub) Stop(ctx context.Context, name string) error {
	s.record("stop")
	if s.StopFn == nil {
		return fmt.Errorf("%w: %s", engine.ErrContainerNotFound, name)
	}
	return s.StopFn(ctx, name)
}

func (s *Stub) Remove(ctx context.Context, name string) error {
	s.record("remove")
	if s.RemoveFn == nil {
		return fmt.Errorf("%w: %s", engine.ErrContainerNotFound, name)
	}
	return s.RemoveFn(ctx, name)
}

func (s *Stub) Run(ctx context.Context, spec engine.RunSpec, stdio engine.Stdio) (int, error) {
	s.record("run")
	if s.RunFn == nil {
		return 0, nil
	}
	return s.RunFn(ctx, spec, stdio)
}
