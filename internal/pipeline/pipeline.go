// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package pipeline implements the asset pipelines.

A [Pipeline] reads the files matching the source pattern of its category,
passes them through an ordered chain of [Step] values and, usually, writes the
result to the destination directory of the category.

Pipelines are grouped into two disjoint profiles. The development profile
compiles and lints sources in place and notifies the browser; the production
profile bundles, minifies and writes everything to the build directory.
Categories a profile doesn't have are no-ops in that environment.

Lint findings are reported as [Diagnostic] values and never stop a chain. A
step that returns an error stops the rest of its own chain only.
*/
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frontpipe/frontpipe/internal/env"
	"github.com/frontpipe/frontpipe/internal/paths"

	"go.astrophena.name/base/logger"
)

// File is an asset flowing through a pipeline.
type File struct {
	// Path is slash separated and relative to the base of the source pattern
	// (or, once written, to the destination directory).
	Path     string
	Contents []byte
}

// Batch is the state of a single pipeline run.
type Batch struct {
	Root  string // project root
	Base  string // directory the files were read from, relative to Root
	Files []*File
}

// Step is one link of a pipeline chain.
type Step struct {
	Name string
	Run  func(ctx context.Context, b *Batch) error
}

// Pipeline is an immutable description of how a category is processed.
type Pipeline struct {
	paths.Entry
	Steps []Step
}

// Run executes the pipeline against the project at root.
func (p *Pipeline) Run(ctx context.Context, root string) error {
	start := time.Now()
	names, err := paths.Glob(os.DirFS(root), p.Src)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Category, err)
	}

	base := p.Base()
	b := &Batch{Root: root, Base: base}
	for _, name := range names {
		contents, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(base), filepath.FromSlash(name)))
		if err != nil {
			return fmt.Errorf("%s: %w", p.Category, err)
		}
		b.Files = append(b.Files, &File{Path: name, Contents: contents})
	}

	for _, s := range p.Steps {
		if err := s.Run(ctx, b); err != nil {
			return fmt.Errorf("%s: %s: %w", p.Category, s.Name, err)
		}
	}

	logger.Info(ctx, "pipeline finished",
		slog.String("category", string(p.Category)),
		slog.Int("files", len(names)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// StepNames returns the names of the chain steps, in order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Options holds the collaborators shared by the steps of a profile.
type Options struct {
	// Sass compiles stylesheet sources. If nil, a Dart Sass compiler using the
	// sass binary from $PATH is used.
	Sass Compiler
	// Reloader is notified about changed files in development. If nil,
	// notifications are dropped.
	Reloader Reloader
	// Report receives lint diagnostics. If nil, they are logged.
	Report Reporter
}

func (o *Options) setDefaults() {
	if o.Sass == nil {
		o.Sass = &DartSass{}
	}
	if o.Reloader == nil {
		o.Reloader = nopReloader{}
	}
	if o.Report == nil {
		o.Report = logDiagnostic
	}
}

// Profile is the set of pipelines of one environment.
type Profile struct {
	Env       env.Env
	pipelines map[paths.Category]*Pipeline
}

// For returns the profile of environment e.
func For(e env.Env, o Options) *Profile {
	if e.Prod() {
		return Production(o)
	}
	return Development(o)
}

// Pipeline returns the pipeline of category c, if the profile has one.
func (p *Profile) Pipeline(c paths.Category) (*Pipeline, bool) {
	pl, ok := p.pipelines[c]
	return pl, ok
}

// Run runs the pipeline of category c. Categories without a pipeline in this
// profile are skipped.
func (p *Profile) Run(ctx context.Context, root string, c paths.Category) error {
	pl, ok := p.pipelines[c]
	if !ok {
		logger.Info(ctx, "nothing to do in this environment",
			slog.String("category", string(c)),
			slog.String("env", p.Env.String()),
		)
		return nil
	}
	return pl.Run(ctx, root)
}

// Development returns the development profile.
func Development(o Options) *Profile {
	o.setDefaults()
	entry := func(c paths.Category) paths.Entry { return paths.MustLookup(env.Development, c) }

	styles := entry(paths.Styles)
	scripts := entry(paths.Scripts)
	markup := entry(paths.Markup)
	templates := entry(paths.Templates)

	return &Profile{
		Env: env.Development,
		pipelines: map[paths.Category]*Pipeline{
			paths.Styles: {Entry: styles, Steps: []Step{
				compileSass(o.Sass),
				lintCSS(o.Report),
				concat("style.css"),
				dest(styles.Dst),
				notify(o.Reloader, styles.Dst),
			}},
			paths.Scripts: {Entry: scripts, Steps: []Step{
				lintJS(o.Report),
				notify(o.Reloader, scripts.Dst),
			}},
			paths.Markup: {Entry: markup, Steps: []Step{
				notify(o.Reloader, markup.Dst),
			}},
			paths.Templates: {Entry: templates, Steps: []Step{
				notify(o.Reloader, templates.Dst),
			}},
		},
	}
}

// ProductionContext is the preprocessor context of production pages.
var ProductionContext = map[string]string{
	"NODE_ENV": "production",
	"DEBUG":    "true",
}

// Production returns the production profile.
func Production(o Options) *Profile {
	o.setDefaults()
	entry := func(c paths.Category) paths.Entry { return paths.MustLookup(env.Production, c) }

	styles := entry(paths.Styles)
	scripts := entry(paths.Scripts)
	images := entry(paths.Images)
	markup := entry(paths.Markup)
	templates := entry(paths.Templates)
	vendor := entry(paths.Vendor)

	m := newMin()

	return &Profile{
		Env: env.Production,
		pipelines: map[paths.Category]*Pipeline{
			paths.Styles: {Entry: styles, Steps: []Step{
				lintCSS(o.Report),
				concat("build.css"),
				prefixCSS(),
				rename("style.min.css"),
				minifyStep(m, "text/css"),
				dest(styles.Dst),
			}},
			paths.Scripts: {Entry: scripts, Steps: []Step{
				concat("build.js"),
				rename("build.min.js"),
				minifyStep(m, "application/javascript"),
				dest(scripts.Dst),
			}},
			paths.Images: {Entry: images, Steps: []Step{
				optimizeImages(m),
				dest(images.Dst),
			}},
			paths.Markup: {Entry: markup, Steps: []Step{
				preprocessStep(ProductionContext),
				dest(markup.Dst),
			}},
			paths.Templates: {Entry: templates, Steps: []Step{
				dest(templates.Dst),
			}},
			paths.Vendor: {Entry: vendor, Steps: []Step{
				dest(vendor.Dst),
			}},
		},
	}
}
