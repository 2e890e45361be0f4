// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/frontpipe/frontpipe/internal/paths"

	"go.astrophena.name/base/logger"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// concat joins all files into one named name. An empty batch stays empty.
func concat(name string) Step {
	return Step{Name: "concat", Run: func(ctx context.Context, b *Batch) error {
		if len(b.Files) == 0 {
			return nil
		}
		var buf bytes.Buffer
		for i, f := range b.Files {
			if i > 0 {
				buf.WriteByte('\n')
			}
			buf.Write(f.Contents)
		}
		b.Files = []*File{{Path: name, Contents: buf.Bytes()}}
		return nil
	}}
}

// rename gives every file in the batch the path name.
func rename(name string) Step {
	return Step{Name: "rename", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			f.Path = name
		}
		return nil
	}}
}

// dest writes the batch under dir, mirroring file paths.
func dest(dir string) Step {
	return Step{Name: "dest", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			dst := filepath.Join(b.Root, filepath.FromSlash(dir), filepath.FromSlash(f.Path))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dst, f.Contents, 0o644); err != nil {
				return err
			}
		}
		return nil
	}}
}

// Reloader is notified when an asset served to the browser changes.
type Reloader interface {
	Reload(path string)
}

type nopReloader struct{}

func (nopReloader) Reload(string) {}

// notify tells the reloader about every file of the batch. Paths are turned
// into URL paths relative to the served source tree, e.g. public/css +
// style.css becomes /css/style.css.
func notify(r Reloader, dir string) Step {
	return Step{Name: "notify", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			p := path.Join(dir, f.Path)
			p = strings.TrimPrefix(p, paths.SourceRoot)
			if !strings.HasPrefix(p, "/") {
				p = "/" + p
			}
			r.Reload(p)
		}
		return nil
	}}
}

type min struct {
	m *minify.M
}

func newMin() *min {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return &min{m: m}
}

func (m *min) Bytes(mediaType string, b []byte) ([]byte, error) {
	return m.m.Bytes(mediaType, b)
}

func minifyStep(m *min, mediaType string) Step {
	return Step{Name: "minify", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			minified, err := m.Bytes(mediaType, f.Contents)
			if err != nil {
				return err
			}
			logger.Info(ctx, "minified",
				slog.String("file", f.Path),
				slog.Int("before", len(f.Contents)),
				slog.Int("after", len(minified)),
			)
			f.Contents = minified
		}
		return nil
	}}
}
