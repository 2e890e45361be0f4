// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package devtools contains common functionality for development tools.
package devtools

import (
	"os"
	"path/filepath"
	"strings"

	"go.astrophena.name/base/unwrap"
)

// Module is the path of this module.
const Module = "github.com/frontpipe/frontpipe"

// EnsureRoot checks that the current working directory is the module root
// and panics if it isn't.
func EnsureRoot() {
	wd := unwrap.Value(os.Getwd())
	b, err := os.ReadFile(filepath.Join(wd, "go.mod"))
	if os.IsNotExist(err) {
		panic("Are you at repo root?")
	} else if err != nil {
		panic(err)
	}
	if !strings.HasPrefix(string(b), "module "+Module+"\n") {
		panic("Are you at repo root?")
	}
}
