// Package web holds the embedded page, partial templates and static assets
// of the combination finder UI.
package web

import "embed"

// TemplatesFS embeds the index page and the entries/combos partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the htmx glue script.
//
//go:embed static/*
var StaticFS embed.FS
