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

package launcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/errdefs"
)

const (
	DefaultImage         = "qeworkshop/qe-jupyter:7.5"
	DefaultContainerName = "qe-workshop"
	DefaultHostPort      = 8888
	DefaultContainerPort = 8888
	DefaultMountTarget   = "/workspace"
)

// DefaultEnv returns the overrides the MPI runtime in the image needs to run
// as root.
func DefaultEnv() map[string]string {
	return map[string]string{
		"OMPI_ALLOW_RUN_AS_ROOT":         "1",
		"OMPI_ALLOW_RUN_AS_ROOT_CONFIRM": "1",
	}
}

// Request describes one launch. It is built fresh on every invocation and
// never persisted.
type Request struct {
	Image         string            `json:"image"         yaml:"image"`
	ContainerName string            `json:"containerName" yaml:"containerName"`
	HostPort      int               `json:"hostPort"      yaml:"hostPort"`
	ContainerPort int               `json:"containerPort" yaml:"containerPort"`
	MountSource   string            `json:"mountSource"   yaml:"mountSource"`
	MountTarget   string            `json:"mountTarget"   yaml:"mountTarget"`
	Env           map[string]string `json:"env"           yaml:"env"`
	Interactive   bool              `json:"interactive"   yaml:"interactive"`
	AutoRemove    bool              `json:"autoRemove"    yaml:"autoRemove"`
}

// NewRequest returns a request holding the compiled-in defaults. MountSource
// is left empty; see ResolveMountSource.
func NewRequest() Request {
	return Request{
		Image:         DefaultImage,
		ContainerName: DefaultContainerName,
		HostPort:      DefaultHostPort,
		ContainerPort: DefaultContainerPort,
		MountTarget:   DefaultMountTarget,
		Env:           DefaultEnv(),
		Interactive:   true,
		AutoRemove:    true,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errdefs.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Validate checks the request before any engine call is made.
func (r Request) Validate() error {
	if err := engine.ValidateRef(r.Image); err != nil {
		return fmt.Errorf("%w: image %q: %w", errdefs.ErrInvalidRequest, r.Image, err)
	}
	if r.ContainerName == "" {
		return invalid("container name is required")
	}
	for _, p := range []struct {
		name string
		port int
	}{{"host port", r.HostPort}, {"container port", r.ContainerPort}} {
		if p.port < 1 || p.port > 65535 {
			return invalid("%s %d out of range 1-65535", p.name, p.port)
		}
	}
	if !filepath.IsAbs(r.MountSource) {
		return invalid("mount source %q must be an absolute path", r.MountSource)
	}
	if !filepath.IsAbs(r.MountTarget) && !isUnixAbs(r.MountTarget) {
		return invalid("mount target %q must be an absolute path", r.MountTarget)
	}
	return nil
}

// isUnixAbs accepts container paths on hosts whose own notion of absolute
// differs, such as Windows.
func isUnixAbs(p string) bool {
	return len(p) > 0 && p[0] == '/'
}

// RunSpec converts the request into what the engine starts.
func (r Request) RunSpec() engine.RunSpec {
	env := make(map[string]string, len(r.Env))
	for k, v := range r.Env {
		env[k] = v
	}
	return engine.RunSpec{
		Name:        r.ContainerName,
		Image:       r.Image,
		Interactive: r.Interactive,
		AutoRemove:  r.AutoRemove,
		Ports:       []engine.PortMapping{{HostPort: r.HostPort, ContainerPort: r.ContainerPort}},
		Mounts:      []engine.BindMount{{Source: r.MountSource, Target: r.MountTarget}},
		Env:         env,
	}
}

// ResolveMountSource returns the absolute, symlink-resolved directory of the
// executable reported by executable (os.Executable when nil). The result does
// not depend on the working directory.
func ResolveMountSource(executable func() (string, error)) (string, error) {
	if executable == nil {
		executable = os.Executable
	}
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	abs, err := filepath.Abs(filepath.Dir(resolved))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	return abs, nil
}

// ResolveWorkdir makes an operator supplied directory absolute and resolves
// its symlinks. The directory must exist.
func ResolveWorkdir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrResolveWorkdir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", errdefs.ErrResolveWorkdir, resolved)
	}
	return resolved, nil
}
