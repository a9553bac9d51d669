// ABOUTME: Embedded frontend shell and static asset serving
// ABOUTME: Renders help.md to HTML once at startup via goldmark

package web

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/yuin/goldmark"
)

//go:embed static
var staticFS embed.FS

//go:embed help.md
var helpMarkdown []byte

// ShellHandler serves the app shell at the site root.
func ShellHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := staticFS.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, "shell not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	})
}

// StaticHandler serves the embedded assets. Mount under /static/ with the
// prefix stripped.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}

// HelpHandler renders help.md once and serves the result. A render
// failure is a startup error.
func HelpHandler() (http.Handler, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(helpMarkdown, &buf); err != nil {
		return nil, fmt.Errorf("rendering help page: %w", err)
	}
	page := []byte("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>dushu help</title>" +
		"<link rel=\"stylesheet\" href=\"/static/style.css\"></head><body class=\"help\">" +
		buf.String() + "</body></html>")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}), nil
}
