// Package assets embeds the pre-built web application files.
package assets

import _ "embed"

// Index is the built single-file map application, produced by cmd/minify.
//
//go:embed index.html
var Index []byte

// Favicon is the site icon.
//
//go:embed favicon.svg
var Favicon []byte
