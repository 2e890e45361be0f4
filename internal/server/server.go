// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package server implements the static file server.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/frontpipe/frontpipe/internal/env"
	"github.com/frontpipe/frontpipe/internal/paths"

	"github.com/PuerkitoBio/goquery"
	"go.astrophena.name/base/logger"
)

// Default ports.
const (
	DevelopmentPort = 3000
	ProductionPort  = 9000
)

// Config configures the static server.
type Config struct {
	// Root is the directory to serve, relative to the project root.
	Root string
	// Host to bind. Empty means all interfaces.
	Host string
	Port int
	// LiveReloadScript, if set, is the URL of a script that gets injected into
	// every served HTML page.
	LiveReloadScript string
}

// For returns the server configuration of environment e.
func For(e env.Env) Config {
	if e.Prod() {
		return Config{Root: paths.BuildRoot, Port: ProductionPort}
	}
	return Config{Root: paths.SourceRoot, Host: "localhost", Port: DevelopmentPort}
}

// Addr returns the address to bind.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the address browsers should open.
func (c Config) URL() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port)) + "/"
}

var serveReadyHook func() // used in tests, called when Serve started serving

// Serve serves the directory projectRoot/c.Root until ctx is canceled.
func Serve(ctx context.Context, projectRoot string, c Config) error {
	l, err := net.Listen("tcp", c.Addr())
	if err != nil {
		logger.Error(ctx, "failed to start the server", slog.Int("port", c.Port), slog.Any("err", err))
		return err
	}
	defer l.Close()
	logger.Info(ctx, "server listening", slog.Int("port", l.Addr().(*net.TCPAddr).Port), slog.String("root", c.Root))

	httpSrv := &http.Server{Handler: NewHandler(os.DirFS(filepath.Join(projectRoot, c.Root)), c.LiveReloadScript)}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}
	}()

	if serveReadyHook != nil {
		serveReadyHook()
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "gracefully shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// NewHandler returns a handler serving files from fsys. If script isn't
// empty, HTML responses load it.
func NewHandler(fsys fs.FS, script string) http.Handler {
	return &staticHandler{fs: fsys, script: script}
}

type staticHandler struct {
	fs     fs.FS
	script string
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if p == "/" {
		p += "/index.html"
	}
	p = strings.TrimPrefix(path.Clean(p), "/")

	// /foo serves foo.html, if it exists.
	if _, err := fs.Stat(h.fs, p+".html"); err == nil {
		p += ".html"
	}

	d, err := fs.Stat(h.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		h.serveNotFound(w, r)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if d.IsDir() {
		// Directories are served by their index.html, at a URL ending in a
		// slash.
		index := path.Join(p, "index.html")
		if d, err = fs.Stat(h.fs, index); err != nil {
			h.serveNotFound(w, r)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/") {
			target := "/" + p + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		p = index
	}

	b, err := fs.ReadFile(h.fs, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b, err = h.inject(p, b); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, d.Name(), d.ModTime(), bytes.NewReader(b))
}

func (h *staticHandler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	f, err := h.fs.Open("404.html")
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b, err = h.inject("404.html", b); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(b)
}

// inject appends the live reload script to the body of HTML documents.
func (h *staticHandler) inject(name string, b []byte) ([]byte, error) {
	if h.script == "" || path.Ext(name) != ".html" {
		return b, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	tag := `<script src="` + h.script + `"></script>`
	sel := `script[src="` + h.script + `"]`
	if doc.Find(sel).Length() > 0 {
		return b, nil
	}
	doc.Find("body").AppendHtml(tag)
	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
