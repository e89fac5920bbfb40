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

package shared

import (
	"fmt"
	"log/slog"

	"github.com/distribution/reference"
	"github.com/eminwux/qelaunch/cmd/config"
	"github.com/eminwux/qelaunch/cmd/types"
	"github.com/eminwux/qelaunch/internal/ctr"
	"github.com/eminwux/qelaunch/internal/engine"
	"github.com/eminwux/qelaunch/internal/engine/dockerapi"
	"github.com/eminwux/qelaunch/internal/engine/dockercli"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/eminwux/qelaunch/internal/launcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// MockEngineKey is used to inject a fake engine.Engine in tests via context.
type MockEngineKey struct{}

// MockExecutableKey is used to inject the executable path lookup in tests via
// context. The value must be a func() (string, error).
type MockExecutableKey struct{}

// LoggerFromCmd extracts the slog logger from the Cobra command context.
func LoggerFromCmd(cmd *cobra.Command) (*slog.Logger, error) {
	logger, ok := cmd.Context().Value(types.CtxLogger).(*slog.Logger)
	if !ok || logger == nil {
		return nil, errdefs.ErrLoggerNotFound
	}
	return logger, nil
}

func noClose() error { return nil }

// EngineFromCmd builds the engine selected by --engine. The returned close
// function releases any daemon connection and is never nil.
func EngineFromCmd(cmd *cobra.Command) (engine.Engine, func() error, error) {
	if mock, ok := cmd.Context().Value(MockEngineKey{}).(engine.Engine); ok {
		return mock, noClose, nil
	}

	logger, err := LoggerFromCmd(cmd)
	if err != nil {
		return nil, noClose, err
	}

	name := viper.GetString(config.QELAUNCH_ROOT_ENGINE.ViperKey)
	bin := viper.GetString(config.QELAUNCH_ROOT_ENGINE_BINARY.ViperKey)
	logger.DebugContext(cmd.Context(), "selecting engine", "engine", name, "binary", bin)

	switch name {
	case "", "auto":
		if bin == "" {
			detected, detectErr := dockercli.Detect()
			if detectErr != nil {
				// Keep going with docker so that preflight reports the
				// missing engine with its remediation hint.
				logger.DebugContext(cmd.Context(), "no engine on PATH", "err", detectErr)
				detected = "docker"
			}
			bin = detected
		}
		return dockercli.New(logger, bin), noClose, nil
	case "docker", "podman":
		if bin == "" {
			bin = name
		}
		return dockercli.New(logger, bin), noClose, nil
	case "docker-api":
		e := dockerapi.New(logger, dockerCredentials())
		return e, e.Close, nil
	case "containerd":
		c := ctr.NewClient(logger, ctr.Options{
			Socket:      viper.GetString(config.QELAUNCH_ROOT_CONTAINERD_SOCKET.ViperKey),
			Namespace:   viper.GetString(config.QELAUNCH_ROOT_CONTAINERD_NAMESPACE.ViperKey),
			Credentials: containerdCredentials(),
		})
		return c, c.Close, nil
	default:
		return nil, noClose, fmt.Errorf("%w: %q", errdefs.ErrUnknownEngine, name)
	}
}

func registryUser() (string, string) {
	return viper.GetString(config.QELAUNCH_REGISTRY_USERNAME.ViperKey),
		viper.GetString(config.QELAUNCH_REGISTRY_PASSWORD.ViperKey)
}

// registryHost returns the registry domain of the configured image, e.g.
// "docker.io".
func registryHost() string {
	named, err := reference.ParseNormalizedNamed(imageRef())
	if err != nil {
		return ""
	}
	return reference.Domain(named)
}

func dockerCredentials() *dockerapi.Credentials {
	user, pass := registryUser()
	if user == "" {
		return nil
	}
	return &dockerapi.Credentials{Username: user, Password: pass, ServerAddress: registryHost()}
}

func containerdCredentials() []ctr.RegistryCredentials {
	user, pass := registryUser()
	if user == "" {
		return nil
	}
	return []ctr.RegistryCredentials{{Username: user, Password: pass}}
}

func imageRef() string {
	if image := viper.GetString(config.QELAUNCH_IMAGE.ViperKey); image != "" {
		return image
	}
	return launcher.DefaultImage
}

// RequestFromCmd builds the launch request from flags, environment and config
// file, filling in compiled-in defaults and resolving the mount source.
func RequestFromCmd(cmd *cobra.Command) (launcher.Request, error) {
	req := launcher.NewRequest()
	req.Image = imageRef()
	if name := viper.GetString(config.QELAUNCH_NAME.ViperKey); name != "" {
		req.ContainerName = name
	}
	if port := viper.GetInt(config.QELAUNCH_HOST_PORT.ViperKey); port != 0 {
		req.HostPort = port
	}
	if port := viper.GetInt(config.QELAUNCH_CONTAINER_PORT.ViperKey); port != 0 {
		req.ContainerPort = port
	}
	if target := viper.GetString(config.QELAUNCH_MOUNT_TARGET.ViperKey); target != "" {
		req.MountTarget = target
	}

	var err error
	if workdir := viper.GetString(config.QELAUNCH_WORKDIR.ViperKey); workdir != "" {
		req.MountSource, err = launcher.ResolveWorkdir(workdir)
	} else {
		executable, _ := cmd.Context().Value(MockExecutableKey{}).(func() (string, error))
		req.MountSource, err = launcher.ResolveMountSource(executable)
	}
	if err != nil {
		return req, err
	}
	return req, req.Validate()
}

// Stdio returns the command's streams, which are the process streams unless
// a test replaced them.
func Stdio(cmd *cobra.Command) engine.Stdio {
	return engine.Stdio{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}

// LauncherFromCmd wires the selected engine into a launcher.
func LauncherFromCmd(cmd *cobra.Command) (*launcher.Exec, func() error, error) {
	logger, err := LoggerFromCmd(cmd)
	if err != nil {
		return nil, noClose, err
	}
	eng, closeFn, err := EngineFromCmd(cmd)
	if err != nil {
		return nil, closeFn, err
	}
	opts := launcher.Options{
		Stdio:            Stdio(cmd),
		PrepareWorkspace: viper.GetBool(config.QELAUNCH_PREPARE_WORKSPACE.ViperKey),
	}
	return launcher.NewLauncherExec(cmd.Context(), logger, eng, opts), closeFn, nil
}

// CloseQuietly runs closeFn and logs a failure.
func CloseQuietly(cmd *cobra.Command, closeFn func() error) {
	if err := closeFn(); err != nil {
		if logger, loggerErr := LoggerFromCmd(cmd); loggerErr == nil {
			logger.DebugContext(cmd.Context(), "failed to close engine", "err", err)
		}
	}
}

// Infof prints an informational line for the operator on stderr.
func Infof(cmd *cobra.Command, format string, args ...any) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, NewStyles(w).Info.Render(fmt.Sprintf(format, args...)))
}
