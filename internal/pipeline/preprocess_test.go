// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"errors"
	"testing"

	"go.astrophena.name/base/testutil"
)

func TestPreprocess(t *testing.T) {
	cases := map[string]struct {
		in      string
		want    string
		wantErr error
	}{
		"no directives": {
			in:   "<p>Hello</p>",
			want: "<p>Hello</p>",
		},
		"if equals": {
			in:   "a<!-- @if NODE_ENV='production' -->b<!-- @endif -->c",
			want: "abc",
		},
		"if not equals": {
			in:   "a<!-- @if NODE_ENV!='production' -->b<!-- @endif -->c",
			want: "ac",
		},
		"double equals and double quotes": {
			in:   `<!-- @if NODE_ENV == "production" -->yes<!-- @endif -->`,
			want: "yes",
		},
		"truthy": {
			in:   "<!-- @if DEBUG -->debug<!-- @endif -->",
			want: "debug",
		},
		"negated": {
			in:   "<!-- @if !DEBUG -->quiet<!-- @endif -->",
			want: "",
		},
		"undefined is falsy": {
			in:   "<!-- @if MISSING -->x<!-- @endif -->",
			want: "",
		},
		"and": {
			in:   "<!-- @if DEBUG && NODE_ENV='production' -->x<!-- @endif -->",
			want: "x",
		},
		"or": {
			in:   "<!-- @if MISSING || NODE_ENV='production' -->x<!-- @endif -->",
			want: "x",
		},
		"ifdef and ifndef": {
			in:   "<!-- @ifdef DEBUG -->a<!-- @endif --><!-- @ifndef DEBUG -->b<!-- @endif -->",
			want: "a",
		},
		"nested": {
			in:   "<!-- @if DEBUG -->1<!-- @if MISSING -->2<!-- @endif -->3<!-- @endif -->",
			want: "13",
		},
		"exclude": {
			in:   "a<!-- @exclude -->b<!-- @endexclude -->c",
			want: "ac",
		},
		"echo": {
			in:   "<title><!-- @echo NODE_ENV --></title>",
			want: "<title>production</title>",
		},
		"echo inside inactive block": {
			in:   "<!-- @if MISSING --><!-- @echo NODE_ENV --><!-- @endif -->",
			want: "",
		},
		"unknown directive is kept": {
			in:   "<!-- @include header.html -->",
			want: "<!-- @include header.html -->",
		},
		"plain comments are kept": {
			in:   "<!-- just a comment -->",
			want: "<!-- just a comment -->",
		},
		"stray endif": {
			in:      "a<!-- @endif -->",
			wantErr: errUnbalanced,
		},
		"mismatched end": {
			in:      "<!-- @if DEBUG -->a<!-- @endexclude -->",
			wantErr: errUnbalanced,
		},
		"unterminated": {
			in:      "<!-- @if DEBUG -->a",
			wantErr: errUnterminated,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := preprocess([]byte(tc.in), ProductionContext)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, string(got), tc.want)
		})
	}
}
