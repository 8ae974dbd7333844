package postbook

import "embed"

// EmbeddedAssets contains the preview's static assets: preview.css and
// preview.js.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
