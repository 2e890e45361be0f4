// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package task implements a small dependency-aware task runner.
//
// Tasks form a directed acyclic graph through their dependencies. When a set
// of tasks is requested, the runner resolves the transitive closure of their
// dependencies, rejects unknown names and cycles before anything runs, and then
// runs every task of the closure exactly once. A task starts as soon as all its
// dependencies have finished, so independent tasks run concurrently.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/base/logger"
	"golang.org/x/sync/errgroup"
)

// Possible errors, used in tests.
var (
	ErrUnknownTask      = errors.New("unknown task")
	ErrDuplicateTask    = errors.New("task already defined")
	ErrCycle            = errors.New("dependency cycle")
	ErrDependencyFailed = errors.New("dependency failed")
)

// Task is a named unit of work.
type Task struct {
	Name  string
	Usage string
	// Deps are the names of the tasks that must finish before this one starts.
	Deps []string
	// Action does the work. Tasks without an action only group their
	// dependencies.
	Action func(ctx context.Context) error
}

// Runner holds a set of task definitions.
type Runner struct {
	// Limit is the maximum number of tasks running at once. Zero means no
	// limit.
	Limit int

	mu    sync.Mutex
	tasks map[string]*Task
}

// Define adds t to the runner. Definitions are not checked for unknown
// dependencies until the task is run.
func (r *Runner) Define(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks == nil {
		r.tasks = make(map[string]*Task)
	}
	if t.Name == "" {
		return errors.New("task name is empty")
	}
	if _, ok := r.tasks[t.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
	}
	t.Deps = slices.Clone(t.Deps)
	r.tasks[t.Name] = &t
	return nil
}

// Tasks returns all defined tasks sorted by name.
func (r *Runner) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		ts = append(ts, *t)
	}
	slices.SortFunc(ts, func(a, b Task) int { return strings.Compare(a.Name, b.Name) })
	return ts
}

// Plan returns the transitive closure of names in a valid execution order,
// dependencies first.
func (r *Runner) Plan(names ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var order, stack []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			i := slices.Index(stack, name)
			cycle := append(slices.Clone(stack[i:]), name)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
		t, ok := r.tasks[name]
		if !ok {
			if len(stack) > 0 {
				return fmt.Errorf("%w: %q (required by %q)", ErrUnknownTask, name, stack[len(stack)-1])
			}
			return fmt.Errorf("%w: %q", ErrUnknownTask, name)
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = visited
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Run runs the named tasks and all their dependencies. Each task runs at
// most once. A failed task causes its dependents to be skipped but doesn't
// affect unrelated tasks. Run returns after every runnable task finished,
// with the failures joined together.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	order, err := r.Plan(names...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	tasks := make(map[string]*Task, len(order))
	for _, name := range order {
		tasks[name] = r.tasks[name]
	}
	r.mu.Unlock()

	type state struct {
		done chan struct{}
		err  error
	}
	states := make(map[string]*state, len(order))
	for _, name := range order {
		states[name] = &state{done: make(chan struct{})}
	}

	// Tasks are started in plan order, so a task holding a slot only waits
	// for tasks that already hold one or have finished.
	var g errgroup.Group
	if r.Limit > 0 {
		g.SetLimit(r.Limit)
	}
	for _, name := range order {
		t, st := tasks[name], states[name]
		g.Go(func() error {
			defer close(st.done)
			for _, dep := range t.Deps {
				ds := states[dep]
				<-ds.done
				if ds.err != nil {
					st.err = fmt.Errorf("%s: %w: %s", t.Name, ErrDependencyFailed, dep)
					logger.Info(ctx, "skipping task", slog.String("task", t.Name), slog.String("failed", dep))
					return st.err
				}
			}
			if t.Action == nil {
				return nil
			}
			st.err = run(ctx, t)
			return st.err
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	var errs []error
	for _, name := range order {
		if err := states[name].err; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, t *Task) error {
	start := time.Now()
	logger.Info(ctx, "starting task", slog.String("task", t.Name))
	if err := t.Action(ctx); err != nil {
		logger.Error(ctx, "task failed",
			slog.String("task", t.Name),
			slog.Any("err", err),
			slog.Duration("took", time.Since(start)),
		)
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Info(ctx, "finished task", slog.String("task", t.Name), slog.Duration("took", time.Since(start)))
	return nil
}
