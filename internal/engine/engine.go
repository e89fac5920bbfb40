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

// Package engine defines the narrow set of container engine capabilities the
// launcher depends on, so the launch sequence can run against Docker, Podman,
// the Docker API or containerd, and against fakes in tests.
package engine

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"

	"github.com/distribution/reference"
	digest "github.com/opencontainers/go-digest"
)

var (
	// ErrContainerNotFound indicates that no container with the given name exists.
	ErrContainerNotFound = errors.New("engine: no such container")
	// ErrEmptyContainerName indicates that a container name is required.
	ErrEmptyContainerName = errors.New("engine: container name is required")
	// ErrInvalidImage indicates that an image reference is required.
	ErrInvalidImage = errors.New("engine: image reference is required")
	// ErrPortMismatch indicates that the engine cannot remap ports.
	ErrPortMismatch = errors.New("engine: host port must equal container port")
)

// Engine is the set of operations the launcher performs against a container
// engine. Implementations do not retry and apply no timeouts of their own.
type Engine interface {
	// Version queries the engine client. It must not require the daemon.
	Version(ctx context.Context) (VersionInfo, error)
	// Info queries the daemon.
	Info(ctx context.Context) (DaemonInfo, error)
	// ListImages returns locally cached images matching ref.
	ListImages(ctx context.Context, ref string) ([]ImageSummary, error)
	// Pull fetches ref, writing engine progress to progress.
	Pull(ctx context.Context, ref string, progress io.Writer) error
	// Stop stops the named container. Returns ErrContainerNotFound if absent.
	Stop(ctx context.Context, name string) error
	// Remove removes the named container. Returns ErrContainerNotFound if absent.
	Remove(ctx context.Context, name string) error
	// Run starts a container and blocks until it exits. A nil error means the
	// container ran; its exit code is returned.
	Run(ctx context.Context, spec RunSpec, stdio Stdio) (int, error)
}

// VersionInfo describes the engine client.
type VersionInfo struct {
	Engine  string `json:"engine"            yaml:"engine"`
	Version string `json:"version"           yaml:"version"`
	API     string `json:"api,omitempty"     yaml:"api,omitempty"`
}

// DaemonInfo describes the engine daemon.
type DaemonInfo struct {
	ServerVersion string `json:"serverVersion,omitempty" yaml:"serverVersion,omitempty"`
	OS            string `json:"os,omitempty"            yaml:"os,omitempty"`
	Containers    int    `json:"containers"              yaml:"containers"`
	Images        int    `json:"images"                  yaml:"images"`
}

// ImageSummary is a locally cached image.
type ImageSummary struct {
	ID       digest.Digest `json:"id"       yaml:"id"`
	RepoTags []string      `json:"repoTags" yaml:"repoTags"`
}

// PortMapping publishes ContainerPort on HostPort.
type PortMapping struct {
	HostPort      int    `json:"hostPort"      yaml:"hostPort"`
	ContainerPort int    `json:"containerPort" yaml:"containerPort"`
	Protocol      string `json:"protocol"      yaml:"protocol"`
}

// String renders the mapping in the engine CLI form "host:container".
func (p PortMapping) String() string {
	return strconv.Itoa(p.HostPort) + ":" + strconv.Itoa(p.ContainerPort)
}

// Proto returns the protocol, defaulting to tcp.
func (p PortMapping) Proto() string {
	if p.Protocol == "" {
		return "tcp"
	}
	return p.Protocol
}

// BindMount maps a host directory into the container.
type BindMount struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// String renders the mount in the engine CLI form "source:target".
func (m BindMount) String() string {
	return m.Source + ":" + m.Target
}

// RunSpec is everything an engine needs to start the workshop container.
type RunSpec struct {
	Name        string            `json:"name"        yaml:"name"`
	Image       string            `json:"image"       yaml:"image"`
	Interactive bool              `json:"interactive" yaml:"interactive"`
	AutoRemove  bool              `json:"autoRemove"  yaml:"autoRemove"`
	Ports       []PortMapping     `json:"ports"       yaml:"ports"`
	Mounts      []BindMount       `json:"mounts"      yaml:"mounts"`
	Env         map[string]string `json:"env"         yaml:"env"`
}

// Validate checks the fields every engine relies on.
func (s RunSpec) Validate() error {
	if s.Name == "" {
		return ErrEmptyContainerName
	}
	if s.Image == "" {
		return ErrInvalidImage
	}
	return nil
}

// Stdio is the terminal the container is attached to.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// EnvList renders env as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// NormalizeRef returns the fully qualified form of ref
// ("qe:1" becomes "docker.io/library/qe:1"). References that do not parse are
// returned unchanged so that comparison falls back to plain string equality.
func NormalizeRef(ref string) string {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return ref
	}
	return named.String()
}

// ValidateRef reports whether ref is a well-formed image reference.
func ValidateRef(ref string) error {
	if ref == "" {
		return ErrInvalidImage
	}
	_, err := reference.ParseNormalizedNamed(ref)
	return err
}

// HasImage reports whether any of images carries exactly the reference ref.
// Tags are compared after normalisation, never by prefix or substring.
func HasImage(images []ImageSummary, ref string) bool {
	want := NormalizeRef(ref)
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if NormalizeRef(tag) == want {
				return true
			}
		}
	}
	return false
}
