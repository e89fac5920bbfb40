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

package ctr

import (
	"github.com/containerd/containerd/v2/core/remotes"
	"github.com/containerd/containerd/v2/core/remotes/docker"
)

// RegistryCredentials authenticate pulls against one registry host.
type RegistryCredentials struct {
	Username string
	Password string
	// ServerAddress is the registry host, e.g. "docker.io". Empty matches
	// any host without a dedicated entry.
	ServerAddress string
}

// buildResolver creates a remotes.Resolver with optional credentials.
// Without credentials the resolver pulls anonymously.
func buildResolver(creds []RegistryCredentials) remotes.Resolver {
	if len(creds) == 0 {
		return docker.NewResolver(docker.ResolverOptions{})
	}

	return docker.NewResolver(docker.ResolverOptions{
		Authorizer: docker.NewDockerAuthorizer(
			docker.WithAuthCreds(func(host string) (string, string, error) {
				return credentialsFor(creds, host)
			}),
		),
	})
}

// credentialsFor prefers an exact host match and falls back to the entry
// without a server address.
func credentialsFor(creds []RegistryCredentials, host string) (string, string, error) {
	for _, cred := range creds {
		if cred.ServerAddress != "" && host == cred.ServerAddress {
			return cred.Username, cred.Password, nil
		}
	}
	for _, cred := range creds {
		if cred.ServerAddress == "" {
			return cred.Username, cred.Password, nil
		}
	}
	return "", "", nil
}
