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

package config

import (
	"os"

	"github.com/spf13/viper"
)

type Var struct {
	Key        string // e.g. "QELAUNCH_IMAGE"
	ViperKey   string // optional, e.g. "launch.image"
	Default    string // optional
	HasDefault bool
}

func DefineKV(envName, viperKey string, defaultVal ...string) Var {
	v := Var{Key: envName, ViperKey: viperKey}
	if len(defaultVal) > 0 {
		v.Default = defaultVal[0]
		v.HasDefault = true
	}
	return v
}

func Define(envName string, defaultVal ...string) Var {
	return DefineKV(envName, "", defaultVal...)
}

func (v *Var) EnvKey() string               { return v.Key }
func (v *Var) DefaultValue() (string, bool) { return v.Default, v.HasDefault }

// ValueOrDefault defines precedence: viper (if ViperKey set and value present) → OS env → default → "".
func (v *Var) ValueOrDefault() string {
	if v.ViperKey != "" && viper.IsSet(v.ViperKey) {
		return viper.GetString(v.ViperKey)
	}
	if val, ok := os.LookupEnv(v.Key); ok {
		return val
	}
	if v.HasDefault {
		return v.Default
	}
	return ""
}

// BindEnv is safe if ViperKey is empty: does nothing.
func (v *Var) BindEnv() error {
	if v.ViperKey == "" {
		return nil
	}
	return viper.BindEnv(v.ViperKey, v.Key)
}

func (v *Var) Set(value string) error {
	return os.Setenv(v.Key, value)
}

func (v *Var) SetDefault(val string) {
	v.Default = val
	v.HasDefault = true
	if v.ViperKey != "" {
		viper.SetDefault(v.ViperKey, val)
	}
}

func KV(v Var, value string) string { return v.Key + "=" + value }

// Viper keys double as YAML paths in the config file: "launch.image" is
// read from
//
//	launch:
//	  image: qeworkshop/qe-jupyter:7.5
var (
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_VERBOSE = DefineKV("QELAUNCH_VERBOSE", "verbose")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_CONFIG_FILE = DefineKV("QELAUNCH_CONFIG_FILE", "configFile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_LOG_LEVEL = DefineKV("QELAUNCH_LOG_LEVEL", "logLevel", "info")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_ENGINE = DefineKV("QELAUNCH_ENGINE", "engine.name", "auto")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_ENGINE_BINARY = DefineKV("QELAUNCH_ENGINE_BINARY", "engine.binary")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_CONTAINERD_SOCKET = DefineKV(
		"QELAUNCH_CONTAINERD_SOCKET",
		"engine.containerd.socket",
		"/run/containerd/containerd.sock",
	)
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_ROOT_CONTAINERD_NAMESPACE = DefineKV(
		"QELAUNCH_CONTAINERD_NAMESPACE",
		"engine.containerd.namespace",
		"qelaunch",
	)

	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_IMAGE = DefineKV("QELAUNCH_IMAGE", "launch.image")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_NAME = DefineKV("QELAUNCH_NAME", "launch.name")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_HOST_PORT = DefineKV("QELAUNCH_HOST_PORT", "launch.hostPort")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_CONTAINER_PORT = DefineKV("QELAUNCH_CONTAINER_PORT", "launch.containerPort")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_WORKDIR = DefineKV("QELAUNCH_WORKDIR", "launch.workdir")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_MOUNT_TARGET = DefineKV("QELAUNCH_MOUNT_TARGET", "launch.mountTarget")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_PREPARE_WORKSPACE = DefineKV("QELAUNCH_PREPARE_WORKSPACE", "launch.prepareWorkspace")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_REGISTRY_USERNAME = DefineKV("QELAUNCH_REGISTRY_USERNAME", "registry.username")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_REGISTRY_PASSWORD = DefineKV("QELAUNCH_REGISTRY_PASSWORD", "registry.password")

	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	QELAUNCH_PLAN_OUTPUT = DefineKV("QELAUNCH_PLAN_OUTPUT", "plan.output", "yaml")
)

// All lists every variable that can be supplied through the environment.
func All() []*Var {
	return []*Var{
		&QELAUNCH_ROOT_VERBOSE,
		&QELAUNCH_ROOT_CONFIG_FILE,
		&QELAUNCH_ROOT_LOG_LEVEL,
		&QELAUNCH_ROOT_ENGINE,
		&QELAUNCH_ROOT_ENGINE_BINARY,
		&QELAUNCH_ROOT_CONTAINERD_SOCKET,
		&QELAUNCH_ROOT_CONTAINERD_NAMESPACE,
		&QELAUNCH_IMAGE,
		&QELAUNCH_NAME,
		&QELAUNCH_HOST_PORT,
		&QELAUNCH_CONTAINER_PORT,
		&QELAUNCH_WORKDIR,
		&QELAUNCH_MOUNT_TARGET,
		&QELAUNCH_PREPARE_WORKSPACE,
		&QELAUNCH_REGISTRY_USERNAME,
		&QELAUNCH_REGISTRY_PASSWORD,
		&QELAUNCH_PLAN_OUTPUT,
	}
}
