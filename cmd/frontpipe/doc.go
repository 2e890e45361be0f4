// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Frontpipe builds and serves a front-end project.

# Usage:

	$ frontpipe [flags] [task...]

Frontpipe runs the requested tasks (default "default") in the project
directory. Tasks are run once each, after their dependencies.

The environment is taken from the ENV variable ("development" if unset) or
the -env flag. In development, "watch" compiles stylesheets, lints scripts and
serves the public directory at http://localhost:3000, reloading the browser
when sources change. In production, "build" bundles and minifies everything
into the build directory.

Run with -list to see all available tasks.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
