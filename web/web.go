package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed ui-dist
var uiFS embed.FS

func Handler() http.Handler {
	sub, err := fs.Sub(uiFS, "ui-dist")
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.html" {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}
