// Package web serves the embedded frontend shell, static assets, and the
// help page rendered from Markdown at startup.
package web
