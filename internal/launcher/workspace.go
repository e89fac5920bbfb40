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

	"github.com/eminwux/qelaunch/internal/errdefs"
)

// WorkspaceDirs are the directories the workshop notebooks expect under the
// mounted folder, relative to it.
var WorkspaceDirs = []string{
	filepath.Join("pseudopotentials", "PBE"),
	filepath.Join("pseudopotentials", "LDA"),
	filepath.Join("pseudopotentials", "PBEsol"),
	"outputs",
}

// PrepareWorkspace creates WorkspaceDirs under root and returns the ones that
// did not exist before. Existing directories are left untouched.
func PrepareWorkspace(root string) ([]string, error) {
	var created []string
	for _, rel := range WorkspaceDirs {
		dir := filepath.Join(root, rel)
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return created, fmt.Errorf("%w: %s exists and is not a directory", errdefs.ErrPrepareWorkspace, dir)
			}
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return created, fmt.Errorf("%w: %w", errdefs.ErrPrepareWorkspace, err)
		}
		created = append(created, dir)
	}
	return created, nil
}
