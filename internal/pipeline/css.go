// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.astrophena.name/base/logger"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
)

// Compiler compiles a stylesheet source into CSS.
type Compiler interface {
	// Compile compiles src read from filename. The filename is used to
	// resolve imports relative to the source.
	Compile(ctx context.Context, filename string, src []byte) ([]byte, error)
}

// DartSass is a Compiler backed by the Dart Sass embedded protocol. The
// compiler process is started on first use and lives until Close.
type DartSass struct {
	// Binary is the Dart Sass executable. If empty, sass from $PATH is used.
	Binary string

	once sync.Once
	t    *godartsass.Transpiler
	err  error
}

// Compile implements the Compiler interface.
func (d *DartSass) Compile(ctx context.Context, filename string, src []byte) ([]byte, error) {
	d.once.Do(func() {
		d.t, d.err = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.Binary,
			LogEventHandler: func(e godartsass.LogEvent) {
				logger.Info(ctx, "sass", slog.String("message", e.Message))
			},
		})
	})
	if d.err != nil {
		return nil, fmt.Errorf("starting Dart Sass: %w", d.err)
	}

	res, err := d.t.Execute(godartsass.Args{
		Source:       string(src),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  godartsass.OutputStyleExpanded,
		IncludePaths: []string{filepath.Dir(filename)},
	})
	if err != nil {
		return nil, err
	}
	return []byte(res.CSS), nil
}

// Close stops the compiler process, if it was started.
func (d *DartSass) Close() error {
	if d.t == nil {
		return nil
	}
	err := d.t.Close()
	if errors.Is(err, godartsass.ErrShutdown) {
		return nil
	}
	return err
}

// compileSass compiles every non-partial stylesheet of the batch. Partials
// (files starting with an underscore) are only reachable through imports.
func compileSass(c Compiler) Step {
	return Step{Name: "sass", Run: func(ctx context.Context, b *Batch) error {
		var out []*File
		for _, f := range b.Files {
			if strings.HasPrefix(path.Base(f.Path), "_") {
				continue
			}
			// The batch only knows paths relative to the pattern base; the
			// compiler needs a real location to resolve imports.
			filename := filepath.Join(b.Root, filepath.FromSlash(b.Base), filepath.FromSlash(f.Path))
			compiled, err := c.Compile(ctx, filename, f.Contents)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			out = append(out, &File{
				Path:     strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ".css",
				Contents: compiled,
			})
		}
		b.Files = out
		return nil
	}}
}

// lastTwoVersions approximates the "last 2 versions" browser query with a
// fixed set of engine targets. Older Safari versions are included so that
// -webkit- prefixes are still emitted.
var lastTwoVersions = []api.Engine{
	{Name: api.EngineChrome, Version: "120"},
	{Name: api.EngineEdge, Version: "120"},
	{Name: api.EngineFirefox, Version: "115"},
	{Name: api.EngineSafari, Version: "14"},
	{Name: api.EngineIOS, Version: "14"},
	{Name: api.EngineOpera, Version: "105"},
}

// prefixCSS adds vendor prefixes required by lastTwoVersions.
func prefixCSS() Step {
	return Step{Name: "prefix", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			res := api.Transform(string(f.Contents), api.TransformOptions{
				Loader:     api.LoaderCSS,
				Engines:    lastTwoVersions,
				Sourcefile: f.Path,
				LogLevel:   api.LogLevelSilent,
			})
			if len(res.Errors) > 0 {
				return messagesError(res.Errors)
			}
			f.Contents = res.Code
		}
		return nil
	}}
}

// lintCSS reports syntax errors and suspicious constructs. It never fails.
func lintCSS(report Reporter) Step {
	return Step{Name: "csslint", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			lint(ctx, report, "csslint", f, api.LoaderCSS)
		}
		return nil
	}}
}

func lint(ctx context.Context, report Reporter, tool string, f *File, loader api.Loader) {
	res := api.Transform(string(f.Contents), api.TransformOptions{
		Loader:     loader,
		Sourcefile: f.Path,
		LogLevel:   api.LogLevelSilent,
	})
	for _, m := range res.Errors {
		report(ctx, newDiagnostic(tool, f.Path, m, false))
	}
	for _, m := range res.Warnings {
		report(ctx, newDiagnostic(tool, f.Path, m, true))
	}
}

func messagesError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, errors.New(newDiagnostic("", "", m, false).String()))
	}
	return errors.Join(errs...)
}
