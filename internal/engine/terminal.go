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

package engine

import (
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalFd returns the file descriptor behind stream when it is a terminal.
// stream is typically one of the Stdio reader or writers.
func TerminalFd(stream any) (int, bool) {
	f, ok := stream.(*os.File)
	if !ok || f == nil {
		return 0, false
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0, false
	}
	return fd, true
}

// TerminalSize returns the width and height of the terminal behind w, or
// zeroes when w is not a terminal.
func TerminalSize(w io.Writer) (int, int) {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return 0, 0
	}
	width, height, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// MakeRaw puts the terminal behind fd into raw mode and returns a function
// restoring the previous state.
func MakeRaw(fd int) (func(), error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, err
	}
	return func() { _ = term.Restore(fd, state) }, nil
}
