// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package paths is the registry of asset locations.
//
// Each asset category has a source pattern and a destination directory. There
// are two fixed tables: the development table points back into the source tree,
// and the production table points into the build output.
//
//	public               Source tree. Served as-is in development.
//	  styles/**/*.scss   SASS sources, compiled to public/css/style.css.
//	  css/style.css      Compiled stylesheet, input of the production build.
//	  js/**/*.js         Scripts.
//	  imgs/**/*.*        Images.
//	  templates/*.html   Client-side templates.
//	  *.html             Pages.
//	  vendor/**/*.*      Third-party assets.
//	build                Production output. Removed by the clean task.
//
// Patterns use the doublestar syntax and are always slash separated and
// relative to the project root.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/frontpipe/frontpipe/internal/env"

	"github.com/bmatcuk/doublestar/v4"
)

// Roots of the two layouts.
const (
	SourceRoot = "public"
	BuildRoot  = "build"
)

// Category is a logical asset category.
type Category string

// Asset categories.
const (
	Styles    = Category("styles")
	Scripts   = Category("scripts")
	Images    = Category("images")
	Templates = Category("templates")
	Markup    = Category("markup")
	Vendor    = Category("vendor")
)

// Categories lists all categories in a stable order.
var Categories = []Category{Styles, Scripts, Images, Templates, Markup, Vendor}

// ErrUnknownCategory is returned by Lookup for categories missing from a
// table.
var ErrUnknownCategory = errors.New("unknown asset category")

// Entry tells where assets of a category are read from and written to.
type Entry struct {
	Category Category
	Src      string // doublestar pattern
	Dst      string // directory
}

// Base returns the static directory prefix of the source pattern.
func (e Entry) Base() string {
	base, _ := doublestar.SplitPattern(e.Src)
	return base
}

var development = map[Category]Entry{
	Styles:    {Styles, "public/styles/**/*.scss", "public/css"},
	Scripts:   {Scripts, "public/js/**/*.js", "public/js"},
	Images:    {Images, "public/imgs/**/*.*", "public/imgs"},
	Templates: {Templates, "public/templates/*.html", "public/templates"},
	Markup:    {Markup, "public/*.html", "public"},
	Vendor:    {Vendor, "public/vendor/**/*.*", "public/vendor"},
}

var production = map[Category]Entry{
	Styles:    {Styles, "public/css/style.css", "build/css"},
	Scripts:   {Scripts, "public/js/**/*.js", "build/js"},
	Images:    {Images, "public/imgs/**/*.*", "build/imgs"},
	Templates: {Templates, "public/templates/*.html", "build/templates"},
	Markup:    {Markup, "public/*.html", "build"},
	Vendor:    {Vendor, "public/vendor/**/*.*", "build/vendor"},
}

// Lookup returns the entry of category c in the table of environment e.
func Lookup(e env.Env, c Category) (Entry, error) {
	table := development
	if e.Prod() {
		table = production
	}
	entry, ok := table[c]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return entry, nil
}

// MustLookup is like Lookup, but panics on unknown categories. It is meant
// for static wiring where a miss is a programming error.
func MustLookup(e env.Env, c Category) Entry {
	entry, err := Lookup(e, c)
	if err != nil {
		panic(err)
	}
	return entry
}

// Glob returns the files under fsys matching pattern. Returned names are
// relative to the base of the pattern, so that the caller can mirror the
// source tree under a destination directory. A missing base directory yields
// no matches.
func Glob(fsys fs.FS, pattern string) ([]string, error) {
	base, _ := doublestar.SplitPattern(pattern)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(matches))
	for _, m := range matches {
		rel := m
		if base != "." {
			rel = m[len(base)+1:]
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// Match reports whether the slash-separated name matches pattern.
func Match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, path.Clean(name))
	return err == nil && ok
}
