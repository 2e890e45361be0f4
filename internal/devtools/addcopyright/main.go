// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Addcopyright adds the license header to Go, script and stylesheet sources.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/frontpipe/frontpipe/internal/devtools"
)

const notice = `© %d Ilya Mateyko. All rights reserved.
Use of this source code is governed by the ISC
license that can be found in the LICENSE.md file.`

// Comment prefixes of supported file types.
var prefixes = map[string]string{
	".go":   "// ",
	".js":   "// ",
	".scss": "// ",
}

// Directories that hold fixtures or vendored code are left alone.
var skipDirs = []string{"testdata", "vendor"}

func header(ext string, year int) string {
	prefix := prefixes[ext]
	var b strings.Builder
	for line := range strings.Lines(fmt.Sprintf(notice, year)) {
		b.WriteString(prefix + line)
	}
	b.WriteString("\n\n")
	return b.String()
}

func main() {
	log.SetFlags(0)
	devtools.EnsureRoot()

	if err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			for _, skip := range skipDirs {
				if name == skip {
					return filepath.SkipDir
				}
			}
			return nil
		}

		ext := filepath.Ext(path)
		prefix, ok := prefixes[ext]
		if !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.HasPrefix(content, []byte(prefix+"©")) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		buf.WriteString(header(ext, info.ModTime().Year()))
		buf.Write(content)
		log.Printf("added header to %s", path)
		return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
	}); err != nil {
		log.Fatal(err)
	}
}
