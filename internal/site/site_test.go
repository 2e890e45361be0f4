// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/frontpipe/frontpipe/internal/env"
	"github.com/frontpipe/frontpipe/internal/server"
	"github.com/frontpipe/frontpipe/internal/watch"

	"go.astrophena.name/base/testutil"
	"go.astrophena.name/base/txtar"
)

// echoSass returns stylesheet sources unchanged.
type echoSass struct {
	mu    sync.Mutex
	calls int
}

func (s *echoSass) Compile(ctx context.Context, filename string, src []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return src, nil
}

func newSite(t *testing.T, e env.Env) (*Site, string) {
	t.Helper()
	ar, err := txtar.ParseFile(filepath.Join("testdata", "project.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	testutil.ExtractTxtar(t, ar, root)

	s, err := New(Config{
		Root: root,
		Env:  e,
		Sass: &echoSass{},
		Open: func(ctx context.Context, url string) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, root
}

func exists(t *testing.T, name string) bool {
	t.Helper()
	_, err := os.Stat(name)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return err == nil
}

func TestTasks(t *testing.T) {
	s, _ := newSite(t, env.Development)
	var names []string
	for _, tk := range s.Tasks() {
		if tk.Usage == "" {
			t.Errorf("task %q has no usage", tk.Name)
		}
		names = append(names, tk.Name)
	}
	testutil.AssertEqual(t, names, []string{
		"build", "clean", "default", "html", "images", "open",
		"prod:build", "scripts", "styles", "template", "vendor", "watch",
	})
}

func TestPlan(t *testing.T) {
	s, _ := newSite(t, env.Production)

	cases := map[string]struct {
		run  []string
		want []string
	}{
		"build": {
			run:  []string{"build"},
			want: []string{"styles", "scripts", "html", "template", "images", "vendor", "prod:build", "build"},
		},
		"default": {
			run:  []string{"default"},
			want: []string{"watch", "open", "default"},
		},
		"repeated": {
			run:  []string{"styles", "build", "prod:build"},
			want: []string{"styles", "scripts", "html", "template", "images", "vendor", "prod:build", "build"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := s.Plan(tc.run...)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestProductionBuild(t *testing.T) {
	s, root := newSite(t, env.Production)
	if err := s.Run(context.Background(), "build"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"build/css/style.min.css",
		"build/js/build.min.js",
		"build/index.html",
		"build/templates/card.html",
		"build/imgs/dot.svg",
		"build/vendor/reset.css",
	} {
		if !exists(t, filepath.Join(root, filepath.FromSlash(name))) {
			t.Errorf("%s wasn't built", name)
		}
	}

	index, err := os.ReadFile(filepath.Join(root, "build", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), "<title>production</title>") {
		t.Errorf("index.html wasn't preprocessed:\n%s", index)
	}
	if strings.Contains(string(index), "Only in development.") {
		t.Errorf("excluded block was kept:\n%s", index)
	}
}

func TestDevelopmentBuild(t *testing.T) {
	s, root := newSite(t, env.Development)
	if err := s.Run(context.Background(), "styles", "images", "vendor"); err != nil {
		t.Fatal(err)
	}
	if exists(t, filepath.Join(root, "build")) {
		t.Error("development tasks must not write the build directory")
	}
	css, err := os.ReadFile(filepath.Join(root, "public", "css", "style.css"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, strings.TrimSpace(string(css)), "body { margin: 0; }")
}

func TestUnknownTask(t *testing.T) {
	s, root := newSite(t, env.Production)
	if err := s.Run(context.Background(), "styles", "deploy"); err == nil {
		t.Fatal("want error for unknown task")
	}
	if exists(t, filepath.Join(root, "build")) {
		t.Error("tasks ran despite an unknown task being requested")
	}
}

func TestClean(t *testing.T) {
	s, root := newSite(t, env.Production)
	if err := s.Run(context.Background(), "build"); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), "clean"); err != nil {
		t.Fatal(err)
	}
	if exists(t, filepath.Join(root, "build")) {
		t.Error("build directory wasn't removed")
	}
	if !exists(t, filepath.Join(root, "public", "index.html")) {
		t.Error("clean removed sources")
	}
	// Cleaning twice is fine.
	if err := Clean(context.Background(), root); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	var opened []string
	s, err := New(Config{
		Root: t.TempDir(),
		Sass: &echoSass{},
		Open: func(ctx context.Context, url string) error {
			opened = append(opened, url)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), "open"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, opened, []string{"http://localhost:3000"})
}

func TestServerConfig(t *testing.T) {
	dev, _ := newSite(t, env.Development)
	testutil.AssertEqual(t, *dev.c.Server, server.Config{
		Root:             "public",
		Host:             "localhost",
		Port:             3000,
		LiveReloadScript: "http://localhost:35729/livereload.js",
	})

	prod, _ := newSite(t, env.Production)
	testutil.AssertEqual(t, *prod.c.Server, server.Config{Root: "build", Port: 9000})
}

func TestBindings(t *testing.T) {
	for _, e := range []env.Env{env.Development, env.Production} {
		t.Run(e.String(), func(t *testing.T) {
			s, _ := newSite(t, e)
			testutil.AssertEqual(t, s.bindings(), []watch.Binding{
				{Pattern: "public/styles/**/*.scss", Task: "styles"},
				{Pattern: "public/js/**/*.js", Task: "scripts"},
				{Pattern: "public/*.html", Task: "html"},
				{Pattern: "public/templates/*.html", Task: "template"},
				{Pattern: "public/imgs/**/*.*", Task: "images"},
			})

			// Each watched change runs exactly the task bound to its pattern.
			r := &watch.Registrar{Bindings: s.bindings()}
			for name, want := range map[string]string{
				"public/styles/site.scss":    "styles",
				"public/js/site.js":          "scripts",
				"public/index.html":          "html",
				"public/templates/card.html": "template",
				"public/imgs/dot.svg":        "images",
			} {
				got := r.Tasks(name)
				if !slices.Equal(got, []string{want}) {
					t.Errorf("Tasks(%q) = %v, want [%s]", name, got, want)
				}
			}
		})
	}
}
