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
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/eminwux/qelaunch/internal/errdefs"
)

// Styles used when reporting to the operator's terminal.
type Styles struct {
	Error lipgloss.Style
	Hint  lipgloss.Style
	Info  lipgloss.Style
}

// NewStyles returns styles for w. Colors are dropped when w is not a
// terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Error: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Hint:  r.NewStyle().Foreground(lipgloss.Color("214")),
		Info:  r.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// RenderFailure writes err and, when its category has one, a remediation
// hint. Errors that only carry a container exit code print nothing.
func RenderFailure(w io.Writer, err error) {
	if err == nil || errdefs.IsPassthrough(err) {
		return
	}
	s := NewStyles(w)
	fmt.Fprintln(w, s.Error.Render("Error: "+err.Error()))
	if hint := errdefs.Hint(err); hint != "" {
		fmt.Fprintln(w, s.Hint.Render("Hint: "+hint))
	}
}
