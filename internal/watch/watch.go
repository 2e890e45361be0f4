// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package watch re-runs tasks when their source files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/frontpipe/frontpipe/internal/paths"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.astrophena.name/base/logger"
)

// Binding ties a source pattern to the task that processes it.
type Binding struct {
	Pattern string // relative to the project root
	Task    string
}

// Registrar watches the sources of a set of bindings.
type Registrar struct {
	// Root is the project root.
	Root     string
	Bindings []Binding
	// Run runs the named task. It is called in a new goroutine for every
	// relevant change, so runs of the same task may overlap.
	Run func(ctx context.Context, task string) error
}

var watchReadyHook func() // used in tests, called when Watch registered all watches

// Watch watches the sources until ctx is canceled.
func (r *Registrar) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range r.dirs() {
		if err := watchRecursive(w, dir); errors.Is(err, fs.ErrNotExist) {
			logger.Info(ctx, "not watching missing directory", slog.String("dir", dir))
		} else if err != nil {
			return err
		}
	}
	logger.Info(ctx, "started watching for new changes", slog.Int("patterns", len(r.Bindings)))

	if watchReadyHook != nil {
		watchReadyHook()
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			r.handle(ctx, w, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "watch error", slog.Any("err", err))
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Registrar) handle(ctx context.Context, w *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := watchRecursive(w, event.Name); err != nil {
				logger.Error(ctx, "failed to watch new directory", slog.String("dir", event.Name), slog.Any("err", err))
			}
		}
	}
	if !shouldRebuild(event.Name, event.Op) {
		return
	}
	rel, err := filepath.Rel(r.Root, event.Name)
	if err != nil {
		return
	}
	for _, task := range r.Tasks(filepath.ToSlash(rel)) {
		logger.Info(ctx, "detected change",
			slog.String("name", event.Name),
			slog.Any("op", event.Op),
			slog.String("task", task),
		)
		go func() {
			if err := r.Run(ctx, task); err != nil {
				logger.Error(ctx, "task failed after change", slog.String("task", task), slog.Any("err", err))
			}
		}()
	}
}

// Tasks returns the tasks bound to patterns that match name, a slash
// separated path relative to the project root.
func (r *Registrar) Tasks(name string) []string {
	var tasks []string
	for _, b := range r.Bindings {
		if paths.Match(b.Pattern, name) {
			tasks = append(tasks, b.Task)
		}
	}
	return tasks
}

// dirs returns the directories to watch, without duplicates.
func (r *Registrar) dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, b := range r.Bindings {
		base, _ := doublestar.SplitPattern(b.Pattern)
		dir := filepath.Join(r.Root, filepath.FromSlash(base))
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

// Based on
// https://github.com/brandur/modulir/blob/1ff912fdc45a79cb4d8d9f199d213ae9c3598cbd/watch.go#L201.
func shouldRebuild(path string, op fsnotify.Op) bool {
	base := filepath.Base(path)

	switch {
	case base == ".DS_Store":
		return false
	// Vim probes whether it can write into a directory with this file.
	case base == "4913":
		return false
	// Vim backups.
	case strings.HasSuffix(base, "~"):
		return false
	}

	// Chmod doesn't change contents and rename is followed by a create.
	return op&(fsnotify.Create|fsnotify.Remove|fsnotify.Write) != 0
}
