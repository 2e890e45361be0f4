// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
)

// lintJS reports script problems found by the esbuild parser, such as
// syntax errors, duplicate keys or comparisons with NaN. Scripts are left
// untouched.
func lintJS(report Reporter) Step {
	return Step{Name: "jshint", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			lint(ctx, report, "jshint", f, api.LoaderJS)
		}
		return nil
	}}
}
