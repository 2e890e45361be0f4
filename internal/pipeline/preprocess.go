// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Possible preprocessor errors, used in tests.
var (
	errUnbalanced   = errors.New("unbalanced preprocessor directive")
	errUnterminated = errors.New("unterminated preprocessor block")
)

// preprocessStep evaluates preprocessor directives in every file of the
// batch against vars.
func preprocessStep(vars map[string]string) Step {
	return Step{Name: "preprocess", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			out, err := preprocess(f.Contents, vars)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			f.Contents = out
		}
		return nil
	}}
}

var directiveRe = regexp.MustCompile(`<!--\s*@(\w+)(?:[ \t]+(.*?))?\s*-->`)

type block struct {
	kind   string // "if" or "exclude"
	active bool
}

// preprocess interprets the following HTML comment directives:
//
//	<!-- @if EXPR -->, <!-- @ifdef VAR -->, <!-- @ifndef VAR --> ... <!-- @endif -->
//	<!-- @exclude --> ... <!-- @endexclude -->
//	<!-- @echo VAR -->
//
// EXPR is a list of terms joined by && or ||, where a term is VAR, !VAR,
// VAR='value' or VAR!='value'. Unknown directives are left in place.
func preprocess(src []byte, vars map[string]string) ([]byte, error) {
	var (
		out   bytes.Buffer
		stack []block
		last  int
	)
	active := func() bool {
		for _, b := range stack {
			if !b.active {
				return false
			}
		}
		return true
	}

	for _, loc := range directiveRe.FindAllSubmatchIndex(src, -1) {
		if active() {
			out.Write(src[last:loc[0]])
		}
		last = loc[1]

		name := string(src[loc[2]:loc[3]])
		var arg string
		if loc[4] >= 0 {
			arg = strings.TrimSpace(string(src[loc[4]:loc[5]]))
		}

		switch name {
		case "if":
			stack = append(stack, block{"if", evalExpr(arg, vars)})
		case "ifdef":
			_, ok := vars[arg]
			stack = append(stack, block{"if", ok})
		case "ifndef":
			_, ok := vars[arg]
			stack = append(stack, block{"if", !ok})
		case "exclude":
			stack = append(stack, block{"exclude", false})
		case "endif", "endexclude":
			want := strings.TrimPrefix(name, "end")
			if len(stack) == 0 || stack[len(stack)-1].kind != want {
				return nil, fmt.Errorf("%w: @%s at offset %d", errUnbalanced, name, loc[0])
			}
			stack = stack[:len(stack)-1]
		case "echo":
			if active() {
				out.WriteString(vars[arg])
			}
		default:
			if active() {
				out.Write(src[loc[0]:loc[1]])
			}
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: missing @end%s", errUnterminated, stack[len(stack)-1].kind)
	}
	out.Write(src[last:])
	return out.Bytes(), nil
}

var termRe = regexp.MustCompile(`^(!?)\s*(\w+)\s*(?:(!==?|={1,3})\s*(.+))?$`)

func evalExpr(expr string, vars map[string]string) bool {
	for _, or := range strings.Split(expr, "||") {
		ok := true
		for _, term := range strings.Split(or, "&&") {
			if !evalTerm(strings.TrimSpace(term), vars) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func evalTerm(term string, vars map[string]string) bool {
	m := termRe.FindStringSubmatch(term)
	if m == nil {
		return false
	}
	neg, name, op, want := m[1] == "!", m[2], m[3], unquote(m[4])
	v, ok := vars[name]

	var res bool
	switch {
	case op == "":
		res = ok && v != "" && v != "false" && v != "0"
	case strings.HasPrefix(op, "!"):
		res = v != want
	default:
		res = ok && v == want
	}
	if neg {
		return !res
	}
	return res
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
