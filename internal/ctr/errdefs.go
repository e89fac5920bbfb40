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
	"errors"
	"strings"
)

var (
	// ErrSocketNotFound indicates that the containerd socket does not exist.
	ErrSocketNotFound = errors.New("ctr: containerd socket not found")
	// ErrNotConnected indicates that Connect has not been called.
	ErrNotConnected = errors.New("ctr: client is not connected")
	// ErrContainerExists indicates that a container already exists.
	ErrContainerExists = errors.New("ctr: container already exists")
)

// formatError recursively unwraps errors and formats the full error chain.
// Returns a string in the format "error1: error2: error3".
func formatError(err error) string {
	if err == nil {
		return "<nil>"
	}

	var sb strings.Builder
	for current := err; current != nil; current = errors.Unwrap(current) {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}
		sb.WriteString(current.Error())
	}
	return sb.String()
}
