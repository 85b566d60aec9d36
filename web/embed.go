// Package web embeds the static watchdog dashboard assets. Unlike the
// telemetry dashboard this codebase is descended from, the watchdog
// dashboard has no build step: it is a single static page that talks to
// /watchdog/api/v1 directly.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// Assets returns the embedded dashboard filesystem, rooted at dist/ so
// files are accessed directly (e.g. "index.html", not "dist/index.html").
func Assets() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
