package web

import (
	"embed"
	"io/fs"
	"path"
)

// The gohtml templates and the static assets ship inside the binary, so a
// deployment is a single executable plus its TOML config.
var (
	//go:embed static/*
	embeddedStaticFiles embed.FS

	//go:embed templates/*
	embeddedTemplates embed.FS
)

// templateEmbedFS roots an embed.FS at the templates directory so the view
// engine sees template names without the "templates/" prefix.
type templateEmbedFS struct {
	content embed.FS
}

func (e templateEmbedFS) Open(name string) (fs.File, error) {
	return e.content.Open(path.Join("templates", name))
}
