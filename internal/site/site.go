// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package site defines the tasks of a front-end project.

# Directory Structure

A project has the following directories:

	public     Sources. In development, the site is served from here.
	  styles     SASS sources, compiled to public/css/style.css.
	  css        Compiled stylesheet, the input of the production build.
	  js         Scripts.
	  imgs       Images.
	  templates  HTML templates.
	  vendor     Third-party dependencies, copied verbatim.
	build      This is where the production build is placed.

# Tasks

	styles      Compile or bundle stylesheets.
	scripts     Lint or bundle scripts.
	images      Optimize images (production only).
	html        Preprocess pages.
	template    Copy templates.
	vendor      Copy dependencies (production only).
	prod:build  Run all of the above.
	build       Alias for prod:build.
	watch       Serve the site and re-run tasks when sources change.
	open        Open the site in a browser.
	default     Run watch and open.
	clean       Remove the build directory.

What the asset tasks do depends on the environment, see package pipeline.
*/
package site

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/frontpipe/frontpipe/internal/browser"
	"github.com/frontpipe/frontpipe/internal/env"
	"github.com/frontpipe/frontpipe/internal/livereload"
	"github.com/frontpipe/frontpipe/internal/paths"
	"github.com/frontpipe/frontpipe/internal/pipeline"
	"github.com/frontpipe/frontpipe/internal/server"
	"github.com/frontpipe/frontpipe/internal/task"
	"github.com/frontpipe/frontpipe/internal/watch"

	"go.astrophena.name/base/logger"
)

// DefaultTask is run when no task is requested.
const DefaultTask = "default"

// OpenURL is the page opened by the open task.
const OpenURL = "http://localhost:3000"

// Asset tasks and the categories they process.
var assetTasks = []struct {
	name     string
	category paths.Category
	usage    string
}{
	{"styles", paths.Styles, "Compile or bundle stylesheets."},
	{"scripts", paths.Scripts, "Lint or bundle scripts."},
	{"html", paths.Markup, "Preprocess pages."},
	{"template", paths.Templates, "Copy templates."},
	{"images", paths.Images, "Optimize images."},
	{"vendor", paths.Vendor, "Copy third-party dependencies."},
}

// Watched categories, in the order their watches are registered.
var watched = []paths.Category{paths.Styles, paths.Scripts, paths.Markup, paths.Templates, paths.Images}

// Config represents the configuration of a project.
type Config struct {
	// Root is the project root. If empty, uses the current directory.
	Root string
	// Env selects the behavior of all tasks and the server.
	Env env.Env
	// SassBinary is the Dart Sass executable. If empty, sass from $PATH is
	// used.
	SassBinary string
	// Sass overrides the stylesheet compiler.
	Sass pipeline.Compiler
	// Report receives lint diagnostics. If nil, they are logged.
	Report pipeline.Reporter
	// Server overrides the static server configuration chosen for Env.
	Server *server.Config
	// LiveReloadAddr is the address of the live reload server. If empty, uses
	// livereload.DefaultAddr.
	LiveReloadAddr string
	// Open opens a URL in a browser. If nil, uses browser.Open.
	Open func(ctx context.Context, url string) error
}

func (c *Config) setDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.Env == "" {
		c.Env = env.Development
	}
	sc := server.For(c.Env)
	if c.Server != nil {
		sc = *c.Server
	}
	c.Server = &sc
	if c.LiveReloadAddr == "" {
		c.LiveReloadAddr = livereload.DefaultAddr
	}
	if c.Server.LiveReloadScript == "" && !c.Env.Prod() {
		c.Server.LiveReloadScript = "http://" + c.LiveReloadAddr + "/livereload.js"
	}
	if c.Open == nil {
		c.Open = browser.Open
	}
}

// Site holds the tasks of a project.
type Site struct {
	c       Config
	sass    *pipeline.DartSass // owned compiler, if any
	reload  *livereload.Server
	profile *pipeline.Profile
	runner  task.Runner
}

// New returns the site configured by c.
func New(c Config) (*Site, error) {
	c.setDefaults()

	s := &Site{c: c, reload: livereload.New()}
	sass := c.Sass
	if sass == nil {
		s.sass = &pipeline.DartSass{Binary: c.SassBinary}
		sass = s.sass
	}
	s.profile = pipeline.For(c.Env, pipeline.Options{
		Sass:     sass,
		Reloader: s.reload,
		Report:   c.Report,
	})

	var members []string
	for _, at := range assetTasks {
		members = append(members, at.name)
		if err := s.runner.Define(task.Task{
			Name:  at.name,
			Usage: at.usage,
			Action: func(ctx context.Context) error {
				return s.profile.Run(ctx, c.Root, at.category)
			},
		}); err != nil {
			return nil, err
		}
	}

	for _, t := range []task.Task{
		{Name: "prod:build", Usage: "Run all asset tasks.", Deps: members},
		{Name: "build", Usage: "Build the project.", Deps: []string{"prod:build"}},
		{Name: "watch", Usage: "Serve the site and re-run tasks when sources change.", Action: s.watch},
		{Name: "open", Usage: "Open the site in a browser.", Action: s.open},
		{Name: DefaultTask, Usage: "Run watch and open.", Deps: []string{"watch", "open"}},
		{Name: "clean", Usage: "Remove the build directory.", Action: func(ctx context.Context) error {
			return Clean(ctx, c.Root)
		}},
	} {
		if err := s.runner.Define(t); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Env returns the environment of the site.
func (s *Site) Env() env.Env { return s.c.Env }

// Tasks returns all tasks sorted by name.
func (s *Site) Tasks() []task.Task { return s.runner.Tasks() }

// Plan returns the tasks that running names would run, dependencies first.
func (s *Site) Plan(names ...string) ([]string, error) { return s.runner.Plan(names...) }

// Run runs the named tasks, or the default task if none are given.
func (s *Site) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = []string{DefaultTask}
	}
	logger.Info(ctx, "running tasks",
		slog.String("tasks", strings.Join(names, ", ")),
		slog.String("env", s.c.Env.String()),
	)
	return s.runner.Run(ctx, names...)
}

// Close releases the resources held by the site.
func (s *Site) Close() error {
	if s.sass != nil {
		return s.sass.Close()
	}
	return nil
}

// bindings returns the watched patterns. Sources are watched in every
// environment, so stylesheet edits re-run the styles task even when the
// production task reads the compiled stylesheet.
func (s *Site) bindings() []watch.Binding {
	var bs []watch.Binding
	for _, c := range watched {
		bs = append(bs, watch.Binding{
			Pattern: paths.MustLookup(env.Development, c).Src,
			Task:    taskFor(c),
		})
	}
	return bs
}

func taskFor(c paths.Category) string {
	for _, at := range assetTasks {
		if at.category == c {
			return at.name
		}
	}
	return ""
}

func (s *Site) watch(ctx context.Context) error {
	go func() {
		if err := s.reload.ListenAndServe(ctx, s.c.LiveReloadAddr); err != nil {
			logger.Error(ctx, "live reload stopped", slog.Any("err", err))
		}
	}()
	go func() {
		if err := server.Serve(ctx, s.c.Root, *s.c.Server); err != nil {
			logger.Error(ctx, "server stopped", slog.Int("port", s.c.Server.Port), slog.Any("err", err))
		}
	}()

	r := &watch.Registrar{
		Root:     s.c.Root,
		Bindings: s.bindings(),
		Run: func(ctx context.Context, name string) error {
			return s.runner.Run(ctx, name)
		},
	}
	return r.Watch(ctx)
}

func (s *Site) open(ctx context.Context) error {
	return s.c.Open(ctx, OpenURL)
}

// Clean removes the build directory of the project at root. No backup is
// taken.
func Clean(ctx context.Context, root string) error {
	dir := filepath.Join(root, paths.BuildRoot)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "nothing to clean", slog.String("dir", dir))
		return nil
	}
	logger.Info(ctx, "removing build directory without a backup", slog.String("dir", dir))
	return os.RemoveAll(dir)
}
