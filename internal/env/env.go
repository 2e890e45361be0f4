// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package env contains definitions for the environments in which the asset
// pipeline can run.
package env

import (
	"errors"
	"fmt"
	"strings"
)

// Env is the environment in which the asset pipeline runs.
type Env string

// Available environments.
const (
	// Sources are compiled in place under public and served from there.
	Development = Env("development")
	// Assets are bundled, minified and written to build.
	Production = Env("production")
)

// Var is the name of the process environment variable that selects the
// environment.
const Var = "ENV"

// ErrInvalid is returned by Parse for unknown environment names.
var ErrInvalid = errors.New("invalid environment")

// Parse returns the Env named by s. An empty string means Development.
func Parse(s string) (Env, error) {
	switch Env(strings.ToLower(strings.TrimSpace(s))) {
	case "", Development:
		return Development, nil
	case Production:
		return Production, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalid, s, Development, Production)
}

// FromEnviron resolves the environment from the ENV variable using getenv.
func FromEnviron(getenv func(string) string) (Env, error) {
	return Parse(getenv(Var))
}

// Prod reports whether e is the production environment.
func (e Env) Prod() bool { return e == Production }

func (e Env) String() string { return string(e) }
