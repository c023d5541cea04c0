// Package web embeds the HTML templates served by the HTTP server.
package web

import "embed"

//go:embed templates/*.html
var TemplateFiles embed.FS
