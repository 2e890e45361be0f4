// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.astrophena.name/base/logger"

	"github.com/evanw/esbuild/pkg/api"
)

// Diagnostic is a lint finding.
type Diagnostic struct {
	Tool    string
	File    string
	Line    int
	Column  int
	Text    string
	Warning bool
}

func (d Diagnostic) String() string {
	var s string
	if d.File != "" {
		s = fmt.Sprintf("%s:%d:%d: ", d.File, d.Line, d.Column)
	}
	return s + d.Text
}

// Reporter receives diagnostics. Reporters must be safe for concurrent use.
type Reporter func(ctx context.Context, d Diagnostic)

func logDiagnostic(ctx context.Context, d Diagnostic) {
	log := logger.Error
	msg := "lint error: "
	if d.Warning {
		log, msg = logger.Info, "lint warning: "
	}
	log(ctx, msg+d.Text,
		slog.String("tool", d.Tool),
		slog.String("file", d.File),
		slog.Int("line", d.Line),
		slog.Int("column", d.Column),
	)
}

func newDiagnostic(tool, file string, m api.Message, warning bool) Diagnostic {
	d := Diagnostic{Tool: tool, File: file, Text: m.Text, Warning: warning}
	if loc := m.Location; loc != nil {
		if loc.File != "" {
			d.File = loc.File
		}
		d.Line = loc.Line
		d.Column = loc.Column
	}
	return d
}
