// Package kbadmin provides the embedded web assets served by the admin gate.
package kbadmin

import "embed"

// StaticFS holds stylesheets and scripts served under /static.
//
//go:embed all:web/static
var StaticFS embed.FS

// TemplateFS holds the login and landing page templates.
//
//go:embed web/templates/*.html
var TemplateFS embed.FS
