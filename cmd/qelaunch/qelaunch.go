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

package qelaunch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/eminwux/qelaunch/cmd/config"
	autocompletecmd "github.com/eminwux/qelaunch/cmd/qelaunch/autocomplete"
	cleanupcmd "github.com/eminwux/qelaunch/cmd/qelaunch/cleanup"
	launchcmd "github.com/eminwux/qelaunch/cmd/qelaunch/launch"
	plancmd "github.com/eminwux/qelaunch/cmd/qelaunch/plan"
	preflightcmd "github.com/eminwux/qelaunch/cmd/qelaunch/preflight"
	"github.com/eminwux/qelaunch/cmd/qelaunch/version"
	"github.com/eminwux/qelaunch/cmd/types"
	"github.com/eminwux/qelaunch/internal/ctr"
	"github.com/eminwux/qelaunch/internal/errdefs"
	"github.com/eminwux/qelaunch/internal/launcher"
	"github.com/eminwux/qelaunch/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ConfigLoader interface {
	LoadConfig() error
}

// MockConfigLoaderKey is used to inject mock config loaders in tests via context.
type MockConfigLoaderKey struct{}

func NewQelaunchCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "qelaunch",
		Short: "Start the Quantum ESPRESSO workshop environment",
		Long: "qelaunch starts the Quantum ESPRESSO workshop container with JupyterLab on " +
			"http://localhost:8888 and the folder holding qelaunch mounted as /workspace.\n" +
			"Run it without a command to launch.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Warnings always reach the operator; --verbose lowers the level.
			levelVar := new(slog.LevelVar)
			levelVar.Set(slog.LevelWarn)
			if viper.GetBool(config.QELAUNCH_ROOT_VERBOSE.ViperKey) {
				levelVar.Set(logging.ParseLevel(viper.GetString(config.QELAUNCH_ROOT_LOG_LEVEL.ViperKey)))
			}
			logger := slog.New(logging.NewTerminalHandler(cmd.ErrOrStderr(), levelVar))

			ctx := cmd.Context()
			ctx = context.WithValue(ctx, types.CtxLogger, logger)
			ctx = context.WithValue(ctx, types.CtxLevelVar, levelVar)
			cmd.SetContext(ctx)
			logger.DebugContext(
				cmd.Context(),
				"enabling verbose",
				"log-level",
				viper.GetString(config.QELAUNCH_ROOT_LOG_LEVEL.ViperKey),
			)

			// Check for mock config loader in context (for testing)
			var loader ConfigLoader
			if mockLoader, ok := cmd.Context().Value(MockConfigLoaderKey{}).(ConfigLoader); ok {
				loader = mockLoader
			} else {
				loader = &realConfigLoader{}
			}

			if err := loader.LoadConfig(); err != nil {
				logger.DebugContext(cmd.Context(), "config error", "error", err)
				if errors.Is(err, errdefs.ErrConfig) {
					return err
				}
				return fmt.Errorf("%w: %w", errdefs.ErrConfig, err)
			}

			// The config file may have changed verbosity.
			if viper.GetBool(config.QELAUNCH_ROOT_VERBOSE.ViperKey) {
				levelVar.Set(logging.ParseLevel(viper.GetString(config.QELAUNCH_ROOT_LOG_LEVEL.ViperKey)))
			}
			return nil
		},
		RunE: launchcmd.RunLaunch,
	}

	if err := SetupQelaunchCmd(cmd); err != nil {
		return nil, fmt.Errorf("failed to setup qelaunch command: %w", err)
	}

	return cmd, nil
}

func SetupQelaunchCmd(rootCmd *cobra.Command) error {
	rootCmd.AddCommand(launchcmd.NewLaunchCmd())
	rootCmd.AddCommand(preflightcmd.NewPreflightCmd())
	rootCmd.AddCommand(cleanupcmd.NewCleanupCmd())
	rootCmd.AddCommand(plancmd.NewPlanCmd())
	rootCmd.AddCommand(autocompletecmd.NewAutocompleteCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	if err := SetPersistentLoggingFlags(rootCmd); err != nil {
		return err
	}
	if err := SetPersistentEngineFlags(rootCmd); err != nil {
		return err
	}
	return SetPersistentLaunchFlags(rootCmd)
}

func bind(rootCmd *cobra.Command, v config.Var, flag string) error {
	return viper.BindPFlag(v.ViperKey, rootCmd.PersistentFlags().Lookup(flag))
}

func SetPersistentLoggingFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().String("config", "", "config file (default "+config.DefaultConfigFile()+")")
	if err := bind(rootCmd, config.QELAUNCH_ROOT_CONFIG_FILE, "config"); err != nil {
		return err
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	if err := bind(rootCmd, config.QELAUNCH_ROOT_VERBOSE, "verbose"); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level when verbose (debug, info, warn, error)")
	return bind(rootCmd, config.QELAUNCH_ROOT_LOG_LEVEL, "log-level")
}

func SetPersistentEngineFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().String("engine", "auto", "Container engine (auto, docker, podman, docker-api, containerd)")
	if err := bind(rootCmd, config.QELAUNCH_ROOT_ENGINE, "engine"); err != nil {
		return err
	}
	if err := rootCmd.RegisterFlagCompletionFunc("engine", config.CompleteEngineNames); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String("engine-binary", "", "Path of the docker or podman executable")
	if err := bind(rootCmd, config.QELAUNCH_ROOT_ENGINE_BINARY, "engine-binary"); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String("containerd-socket", ctr.DefaultSocket, "containerd socket file")
	if err := bind(rootCmd, config.QELAUNCH_ROOT_CONTAINERD_SOCKET, "containerd-socket"); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String("containerd-namespace", ctr.DefaultNamespace, "containerd namespace")
	return bind(rootCmd, config.QELAUNCH_ROOT_CONTAINERD_NAMESPACE, "containerd-namespace")
}

func SetPersistentLaunchFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	flags.String("image", launcher.DefaultImage, "Workshop image reference")
	flags.String("name", launcher.DefaultContainerName, "Container name")
	flags.Int("host-port", launcher.DefaultHostPort, "Host port JupyterLab is published on")
	flags.Int("container-port", launcher.DefaultContainerPort, "Port JupyterLab listens on inside the container")
	flags.String("workdir", "", "Folder mounted into the container (default: the folder holding qelaunch)")
	flags.String("mount-target", launcher.DefaultMountTarget, "Mount point inside the container")
	flags.Bool("prepare-workspace", false, "Create the workshop folder layout before running")
	flags.String("registry-username", "", "Registry user for pulling a private image")

	bindings := []struct {
		v    config.Var
		flag string
	}{
		{config.QELAUNCH_IMAGE, "image"},
		{config.QELAUNCH_NAME, "name"},
		{config.QELAUNCH_HOST_PORT, "host-port"},
		{config.QELAUNCH_CONTAINER_PORT, "container-port"},
		{config.QELAUNCH_WORKDIR, "workdir"},
		{config.QELAUNCH_MOUNT_TARGET, "mount-target"},
		{config.QELAUNCH_PREPARE_WORKSPACE, "prepare-workspace"},
		{config.QELAUNCH_REGISTRY_USERNAME, "registry-username"},
	}
	for _, b := range bindings {
		if err := bind(rootCmd, b.v, b.flag); err != nil {
			return err
		}
	}
	return nil
}

type realConfigLoader struct{}

func (r *realConfigLoader) LoadConfig() error {
	return loadConfig()
}

// loadConfig binds the QELAUNCH_* environment and reads the config file. A
// missing default config file is not an error; a missing --config file is.
func loadConfig() error {
	for _, v := range config.All() {
		if err := v.BindEnv(); err != nil {
			return fmt.Errorf("%w: failed to bind %s: %w", errdefs.ErrConfig, v.EnvKey(), err)
		}
	}

	configFile := viper.GetString(config.QELAUNCH_ROOT_CONFIG_FILE.ViperKey)
	explicit := configFile != ""
	if !explicit {
		configFile = config.DefaultConfigFile()
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("%w: %s: %w", errdefs.ErrConfig, configFile, err)
		}
	}

	for _, v := range []config.Var{config.QELAUNCH_HOST_PORT, config.QELAUNCH_CONTAINER_PORT} {
		if val := viper.GetString(v.ViperKey); val != "" {
			if _, err := strconv.Atoi(val); err != nil {
				return fmt.Errorf("%w: %s %q is not a number", errdefs.ErrConfig, v.ViperKey, val)
			}
		}
	}
	return nil
}

// LoadConfig binds the environment and reads the config file.
func LoadConfig() error {
	return loadConfig()
}
