package webui

import (
	"embed"
	"io/fs"
	"net/http"
)

// The console is a single page that signs in and shows the raw event stream.
//
//go:embed static/*
var staticFS embed.FS

func Handler() (http.Handler, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sub)), nil
}
