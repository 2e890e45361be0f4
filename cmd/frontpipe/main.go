// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/frontpipe/frontpipe/internal/env"
	"github.com/frontpipe/frontpipe/internal/site"
	"github.com/frontpipe/frontpipe/internal/task"

	"go.astrophena.name/base/cli"
)

func main() { cli.Main(new(app)) }

type app struct {
	env  string
	list bool
	dir  string
	sass string

	stdout io.Writer // used in tests
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.env, "env", "", "Run in `environment` (development or production). Overrides $ENV.")
	fs.BoolVar(&a.list, "list", false, "List available tasks and exit.")
	fs.StringVar(&a.dir, "C", ".", "Run in the project `dir`.")
	fs.StringVar(&a.sass, "sass", "", "Path to the Dart Sass `binary`. If empty, sass from $PATH is used.")
}

func (a *app) Run(ctx context.Context) error {
	cenv := cli.GetEnv(ctx)

	e, err := resolveEnv(a.env, cenv.Getenv)
	if err != nil {
		return fmt.Errorf("%w: %v", cli.ErrInvalidArgs, err)
	}

	s, err := site.New(site.Config{
		Root:       a.dir,
		Env:        e,
		SassBinary: a.sass,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if a.list {
		w := a.stdout
		if w == nil {
			w = os.Stdout
		}
		return listTasks(w, s.Tasks())
	}

	return s.Run(ctx, cenv.Args...)
}

// resolveEnv returns the environment selected by the -env flag value, or by
// the ENV variable if the flag is empty.
func resolveEnv(flagValue string, getenv func(string) string) (env.Env, error) {
	if flagValue != "" {
		return env.Parse(flagValue)
	}
	return env.FromEnviron(getenv)
}

func listTasks(w io.Writer, tasks []task.Task) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, t := range tasks {
		usage := t.Usage
		if len(t.Deps) > 0 {
			usage += " [" + strings.Join(t.Deps, ", ") + "]"
		}
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, usage)
	}
	return tw.Flush()
}
